// Package gphoto is the boundary to the device-access library.
//
// It models what the camera layer needs from a libgphoto2-style library:
// auto-detection, the abilities and port catalogs, device handles with
// their configuration tree, capture primitives and result codes. Two
// backends implement it: CLIDriver drives the gphoto2 command-line tool,
// SimDriver is an in-process simulator with fault injection.
package gphoto

import (
	"context"
	"path"
	"strings"
)

// Op names a device-library primitive. Used in diagnostics and by the
// simulator to script results.
type Op string

const (
	OpAutodetect      Op = "autodetect"
	OpLoadAbilities   Op = "load_abilities"
	OpLookupModel     Op = "lookup_model"
	OpAbilities       Op = "get_abilities"
	OpNewDevice       Op = "new_device"
	OpSetAbilities    Op = "set_abilities"
	OpLoadPortInfo    Op = "load_port_info"
	OpLookupPath      Op = "lookup_port"
	OpPortInfo        Op = "get_port_info"
	OpSetPortInfo     Op = "set_port_info"
	OpInit            Op = "init"
	OpConfig          Op = "get_config"
	OpSingleConfig    Op = "get_single_config"
	OpSetConfig       Op = "set_config"
	OpSetSingleConfig Op = "set_single_config"
	OpCapture         Op = "capture"
	OpCapturePreview  Op = "capture_preview"
	OpFileGet         Op = "file_get"
	OpExit            Op = "exit"
)

// Detected is one entry of an auto-detection run.
type Detected struct {
	Model string
	Port  string
}

// Abilities describes what a camera model supports.
type Abilities struct {
	Model  string
	Status string // e.g. "EXPERIMENTAL"; empty for production drivers
}

// PortType is the transport family of a port.
type PortType string

const (
	PortUSB    PortType = "usb"
	PortSerial PortType = "serial"
	PortPTPIP  PortType = "ptpip"
	PortIP     PortType = "ip"
	PortDisk   PortType = "disk"
)

// PortInfo describes one transport address.
type PortInfo struct {
	Path string
	Name string
	Type PortType
}

// PortTypeOf derives the transport family from a port path like "usb:001,002".
func PortTypeOf(p string) PortType {
	prefix, _, _ := strings.Cut(p, ":")
	return PortType(prefix)
}

// FilePath locates a file on the device.
type FilePath struct {
	Folder string
	Name   string
}

func (p FilePath) String() string {
	return path.Join(p.Folder, p.Name)
}

// Driver is the process-wide entry point of the device library.
type Driver interface {
	// Autodetect lists reachable devices. It talks to hardware and may be slow.
	Autodetect(ctx context.Context) ([]Detected, error)
	LoadAbilities(ctx context.Context) (AbilitiesList, error)
	LoadPortInfo(ctx context.Context) (PortInfoList, error)
	// NewDevice returns an unbound handle. Without SetAbilities/SetPortInfo,
	// Init binds to the first auto-detected device.
	NewDevice() (Device, error)
}

// AbilitiesList is a loaded abilities catalog.
type AbilitiesList interface {
	LookupModel(model string) (int, error)
	Abilities(index int) (Abilities, error)
}

// PortInfoList is a loaded port catalog.
type PortInfoList interface {
	LookupPath(path string) (int, error)
	Info(index int) (PortInfo, error)
}

// Device is a handle to one camera. Handles are not safe for concurrent use.
type Device interface {
	SetAbilities(a Abilities) error
	SetPortInfo(p PortInfo) error
	Init(ctx context.Context) error

	// Config returns the whole configuration tree.
	Config(ctx context.Context) (*Widget, error)
	// SingleConfig returns one widget by name. Backends without a direct
	// lookup return ErrorNotSupported.
	SingleConfig(ctx context.Context, name string) (*Widget, error)
	// SetConfig writes every changed widget of the tree.
	SetConfig(ctx context.Context, root *Widget) error
	SetSingleConfig(ctx context.Context, name string, w *Widget) error

	// Capture takes a still. On success fp holds the device-side location.
	Capture(ctx context.Context, fp *FilePath) error
	CapturePreview(ctx context.Context, f *File) error
	FileGet(ctx context.Context, folder, name string, f *File) error

	Exit(ctx context.Context) error
	Free() error
}

// abilitiesTable is the catalog implementation shared by the backends.
type abilitiesTable []Abilities

// NewAbilitiesList builds a catalog from entries.
func NewAbilitiesList(entries []Abilities) AbilitiesList {
	return abilitiesTable(entries)
}

func (t abilitiesTable) LookupModel(model string) (int, error) {
	for i, a := range t {
		if a.Model == model {
			return i, nil
		}
	}
	for i, a := range t {
		if strings.EqualFold(a.Model, model) {
			return i, nil
		}
	}
	return -1, ErrorModelNotFound
}

func (t abilitiesTable) Abilities(index int) (Abilities, error) {
	if index < 0 || index >= len(t) {
		return Abilities{}, ErrorBadParameters
	}
	return t[index], nil
}

// portTable is the port catalog implementation shared by the backends.
type portTable []PortInfo

// NewPortInfoList builds a port catalog from entries.
func NewPortInfoList(entries []PortInfo) PortInfoList {
	return portTable(entries)
}

// LookupPath matches the exact path first, then a generic entry of the same
// family ("usb:") which then stands for the requested address.
func (t portTable) LookupPath(p string) (int, error) {
	for i, info := range t {
		if info.Path == p {
			return i, nil
		}
	}
	generic := string(PortTypeOf(p)) + ":"
	for i, info := range t {
		if info.Path == generic {
			return i, nil
		}
	}
	return -1, ErrorUnknownPort
}

func (t portTable) Info(index int) (PortInfo, error) {
	if index < 0 || index >= len(t) {
		return PortInfo{}, ErrorBadParameters
	}
	return t[index], nil
}
