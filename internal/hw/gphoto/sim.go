package gphoto

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"path"
	"sync"
	"time"
)

// SimDriver is an in-process device library. It keeps a model catalog, a
// port catalog, the set of attached devices and one shared configuration
// tree, and lets callers script the result of any primitive.
type SimDriver struct {
	mu sync.Mutex

	models   []Abilities
	ports    []PortInfo
	attached []Detected
	root     *Widget

	frame     []byte
	frameMIME string

	noSingleConfig bool

	faults map[Op][]Result
	calls  map[Op][]time.Time
	shots  int
	files  map[string][]byte
}

// NewSimDriver returns a simulator with a small catalog and one Canon EOS R5
// attached at usb:001,002.
func NewSimDriver() *SimDriver {
	return &SimDriver{
		models: []Abilities{
			{Model: "Canon EOS R5"},
			{Model: "Canon EOS 5D Mark IV"},
			{Model: "Nikon DSC Z 6"},
			{Model: "Sony Alpha-A7 III", Status: "EXPERIMENTAL"},
		},
		ports: []PortInfo{
			{Path: "usb:", Name: "Universal Serial Bus", Type: PortUSB},
			{Path: "usb:001,002", Name: "Universal Serial Bus", Type: PortUSB},
			{Path: "ptpip:", Name: "PTP/IP Connection", Type: PortPTPIP},
		},
		attached:  []Detected{{Model: "Canon EOS R5", Port: "usb:001,002"}},
		root:      DefaultSimTree(),
		frame:     simFrame(),
		frameMIME: "image/jpeg",
		faults:    make(map[Op][]Result),
		calls:     make(map[Op][]time.Time),
		files:     make(map[string][]byte),
	}
}

// DefaultSimTree returns the configuration tree the simulator starts with.
func DefaultSimTree() *Widget {
	root := NewWidget(KindWindow, "main", "Camera and Driver Configuration")

	actions := root.Append(NewWidget(KindSection, "actions", "Camera Actions"))
	af := actions.Append(NewWidget(KindToggle, "autofocusdrive", "Drive Canon DSLR Autofocus"))
	_ = af.SetValue(IntValue(0))
	actions.Append(NewWidget(KindButton, "eosremoterelease", "Canon EOS Remote Release"))

	settings := root.Append(NewWidget(KindSection, "settings", "Camera Settings"))
	dt := settings.Append(NewWidget(KindDate, "datetime", "Camera Date and Time"))
	_ = dt.SetValue(IntValue(1700000000))
	owner := settings.Append(NewWidget(KindText, "ownername", "Owner Name"))
	_ = owner.SetValue(TextValue(""))

	status := root.Append(NewWidget(KindSection, "status", "Camera Status Information"))
	batt := status.Append(NewWidget(KindText, "batterylevel", "Battery Level"))
	_ = batt.SetValue(TextValue("100%"))
	batt.ReadOnly = true
	model := status.Append(NewWidget(KindText, "cameramodel", "Camera Model"))
	_ = model.SetValue(TextValue("Canon EOS R5"))
	model.ReadOnly = true

	img := root.Append(NewWidget(KindSection, "imgsettings", "Image Settings"))
	quality := img.Append(NewWidget(KindRadio, "imagequality", "Image Quality"))
	quality.Choices = []string{"Large Fine JPEG", "Large Normal JPEG", "RAW", "RAW + Large Fine JPEG"}
	_ = quality.SetValue(TextValue("Large Fine JPEG"))
	iso := img.Append(NewWidget(KindRadio, "iso", "ISO Speed"))
	iso.Choices = []string{"Auto", "100", "200", "400", "800", "1600", "3200", "6400"}
	_ = iso.SetValue(TextValue("100"))

	capture := root.Append(NewWidget(KindSection, "capturesettings", "Capture Settings"))
	aperture := capture.Append(NewWidget(KindRadio, "aperture", "Aperture"))
	aperture.Choices = []string{"2.8", "4", "5.6", "8", "11", "16", "22"}
	_ = aperture.SetValue(TextValue("5.6"))
	shutter := capture.Append(NewWidget(KindRadio, "shutterspeed", "Shutter Speed"))
	shutter.Choices = []string{"bulb", "30", "1", "1/60", "1/125", "1/250", "1/1000"}
	_ = shutter.SetValue(TextValue("1/125"))
	focal := capture.Append(NewWidget(KindRange, "focallength", "Focal Length"))
	focal.Min, focal.Max, focal.Step = 24, 105, 1
	_ = focal.SetValue(FloatValue(50))
	ec := capture.Append(NewWidget(KindRange, "exposurecompensation", "Exposure Compensation"))
	ec.Min, ec.Max, ec.Step = -3, 3, 0.5
	_ = ec.SetValue(FloatValue(0))
	drive := capture.Append(NewWidget(KindMenu, "drivemode", "Drive Mode"))
	drive.Choices = []string{"Single", "Continuous", "Timer 10 sec"}
	_ = drive.SetValue(TextValue("Single"))

	root.Walk(func(w *Widget) { w.ClearChanged() })
	return root
}

func simFrame() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 20), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80})
	return buf.Bytes()
}

// Fail queues results for op. Each call of op consumes one queued result;
// once the queue is empty the primitive behaves normally again.
func (s *SimDriver) Fail(op Op, codes ...Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], codes...)
}

// FailN queues code n times for op.
func (s *SimDriver) FailN(op Op, code Result, n int) {
	codes := make([]Result, n)
	for i := range codes {
		codes[i] = code
	}
	s.Fail(op, codes...)
}

// Calls returns how many times op was invoked.
func (s *SimDriver) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls[op])
}

// CallTimes returns when op was invoked.
func (s *SimDriver) CallTimes(op Op) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.calls[op]...)
}

// Attach plugs in a device.
func (s *SimDriver) Attach(model, port string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = append(s.attached, Detected{Model: model, Port: port})
}

// DetachAll unplugs every device. Open handles start failing with ErrorIO.
func (s *SimDriver) DetachAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = nil
}

// DisableSingleConfig makes SingleConfig report ErrorNotSupported, forcing
// callers onto the full tree.
func (s *SimDriver) DisableSingleConfig() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noSingleConfig = true
}

// SetFrame replaces the image data returned by captures and previews.
func (s *SimDriver) SetFrame(data []byte, mimeType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = data
	s.frameMIME = mimeType
}

// Widget returns a copy of the device-side widget with the given name.
func (s *SimDriver) Widget(name string) (*Widget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.root.ChildByName(name)
	if err != nil {
		return nil, false
	}
	return w.Clone(), true
}

// enter records the call and returns a scripted result, if any.
// Callers hold s.mu.
func (s *SimDriver) enter(op Op) error {
	s.calls[op] = append(s.calls[op], time.Now())
	q := s.faults[op]
	if len(q) == 0 {
		return nil
	}
	code := q[0]
	s.faults[op] = q[1:]
	if code == OK {
		return nil
	}
	return code
}

func (s *SimDriver) Autodetect(ctx context.Context) ([]Detected, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpAutodetect); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ErrorCancel
	}
	return append([]Detected(nil), s.attached...), nil
}

func (s *SimDriver) LoadAbilities(ctx context.Context) (AbilitiesList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpLoadAbilities); err != nil {
		return nil, err
	}
	return &simAbilities{sim: s, table: abilitiesTable(append([]Abilities(nil), s.models...))}, nil
}

func (s *SimDriver) LoadPortInfo(ctx context.Context) (PortInfoList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpLoadPortInfo); err != nil {
		return nil, err
	}
	return &simPorts{sim: s, table: portTable(append([]PortInfo(nil), s.ports...))}, nil
}

func (s *SimDriver) NewDevice() (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpNewDevice); err != nil {
		return nil, err
	}
	return &simDevice{sim: s}, nil
}

type simAbilities struct {
	sim   *SimDriver
	table abilitiesTable
}

func (a *simAbilities) LookupModel(model string) (int, error) {
	a.sim.mu.Lock()
	err := a.sim.enter(OpLookupModel)
	a.sim.mu.Unlock()
	if err != nil {
		return -1, err
	}
	return a.table.LookupModel(model)
}

func (a *simAbilities) Abilities(index int) (Abilities, error) {
	a.sim.mu.Lock()
	err := a.sim.enter(OpAbilities)
	a.sim.mu.Unlock()
	if err != nil {
		return Abilities{}, err
	}
	return a.table.Abilities(index)
}

type simPorts struct {
	sim   *SimDriver
	table portTable
}

func (p *simPorts) LookupPath(path string) (int, error) {
	p.sim.mu.Lock()
	err := p.sim.enter(OpLookupPath)
	p.sim.mu.Unlock()
	if err != nil {
		return -1, err
	}
	return p.table.LookupPath(path)
}

func (p *simPorts) Info(index int) (PortInfo, error) {
	p.sim.mu.Lock()
	err := p.sim.enter(OpPortInfo)
	p.sim.mu.Unlock()
	if err != nil {
		return PortInfo{}, err
	}
	return p.table.Info(index)
}

type simDevice struct {
	sim       *SimDriver
	abilities *Abilities
	port      *PortInfo
	bound     *Detected
	freed     bool
}

func (d *simDevice) SetAbilities(a Abilities) error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if err := d.sim.enter(OpSetAbilities); err != nil {
		return err
	}
	d.abilities = &a
	return nil
}

func (d *simDevice) SetPortInfo(p PortInfo) error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if err := d.sim.enter(OpSetPortInfo); err != nil {
		return err
	}
	d.port = &p
	return nil
}

func (d *simDevice) Init(ctx context.Context) error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if err := d.sim.enter(OpInit); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ErrorCancel
	}
	for _, a := range d.sim.attached {
		if d.abilities != nil && a.Model != d.abilities.Model {
			continue
		}
		if d.port != nil && d.port.Path != a.Port && d.port.Path != string(PortTypeOf(a.Port))+":" {
			continue
		}
		found := a
		d.bound = &found
		return nil
	}
	return ErrorModelNotFound
}

// live checks that the bound device is still attached. Callers hold sim.mu.
func (d *simDevice) live(ctx context.Context) error {
	if d.freed || d.bound == nil {
		return ErrorBadParameters
	}
	if ctx.Err() != nil {
		return ErrorCancel
	}
	for _, a := range d.sim.attached {
		if a == *d.bound {
			return nil
		}
	}
	return ErrorIO
}

func (d *simDevice) Config(ctx context.Context) (*Widget, error) {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if err := d.sim.enter(OpConfig); err != nil {
		return nil, err
	}
	if err := d.live(ctx); err != nil {
		return nil, err
	}
	return d.sim.root.Clone(), nil
}

func (d *simDevice) SingleConfig(ctx context.Context, name string) (*Widget, error) {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if err := d.sim.enter(OpSingleConfig); err != nil {
		return nil, err
	}
	if d.sim.noSingleConfig {
		return nil, ErrorNotSupported
	}
	if err := d.live(ctx); err != nil {
		return nil, err
	}
	w, err := d.sim.root.ChildByName(name)
	if err != nil {
		return nil, err
	}
	return w.Clone(), nil
}

func (d *simDevice) SetConfig(ctx context.Context, root *Widget) error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if err := d.sim.enter(OpSetConfig); err != nil {
		return err
	}
	if err := d.live(ctx); err != nil {
		return err
	}
	var err error
	root.Walk(func(w *Widget) {
		if err != nil || !w.Changed() {
			return
		}
		err = d.sim.apply(w.Name, w)
	})
	return err
}

func (d *simDevice) SetSingleConfig(ctx context.Context, name string, w *Widget) error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if err := d.sim.enter(OpSetSingleConfig); err != nil {
		return err
	}
	if d.sim.noSingleConfig {
		return ErrorNotSupported
	}
	if err := d.live(ctx); err != nil {
		return err
	}
	return d.sim.apply(name, w)
}

// apply copies the value of w onto the device widget called name.
// Callers hold s.mu.
func (s *SimDriver) apply(name string, w *Widget) error {
	target, err := s.root.ChildByName(name)
	if err != nil {
		return err
	}
	if target.ReadOnly {
		return ErrorNotSupported
	}
	if err := target.SetValue(w.Value()); err != nil {
		return ErrorBadParameters
	}
	target.ClearChanged()
	return nil
}

func (d *simDevice) Capture(ctx context.Context, fp *FilePath) error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if err := d.sim.enter(OpCapture); err != nil {
		return err
	}
	if err := d.live(ctx); err != nil {
		return err
	}
	d.sim.shots++
	fp.Folder = "/store_00020001/DCIM/100CANON"
	fp.Name = fmt.Sprintf("IMG_%04d.JPG", d.sim.shots)
	d.sim.files[fp.String()] = d.sim.frame
	return nil
}

func (d *simDevice) CapturePreview(ctx context.Context, f *File) error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if err := d.sim.enter(OpCapturePreview); err != nil {
		return err
	}
	if err := d.live(ctx); err != nil {
		return err
	}
	f.SetData("preview.jpg", d.sim.frameMIME, d.sim.frame)
	return nil
}

func (d *simDevice) FileGet(ctx context.Context, folder, name string, f *File) error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if err := d.sim.enter(OpFileGet); err != nil {
		return err
	}
	if err := d.live(ctx); err != nil {
		return err
	}
	data, ok := d.sim.files[path.Join(folder, name)]
	if !ok {
		return ErrorFileNotFound
	}
	f.SetData(name, d.sim.frameMIME, data)
	return nil
}

func (d *simDevice) Exit(ctx context.Context) error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	if err := d.sim.enter(OpExit); err != nil {
		return err
	}
	d.bound = nil
	return nil
}

func (d *simDevice) Free() error {
	d.sim.mu.Lock()
	defer d.sim.mu.Unlock()
	d.freed = true
	d.bound = nil
	return nil
}
