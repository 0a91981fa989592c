package gphoto

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	errorCodeRe   = regexp.MustCompile(`\*\*\* Error \((-?\d+):`)
	errorQuotedRe = regexp.MustCompile(`\('([^']+)'\)`)
	quotedModelRe = regexp.MustCompile(`^\s*"([^"]+)"\s*(.*)$`)
	newFileRe     = regexp.MustCompile(`New file is in location (\S+) on the camera`)
	savingFileRe  = regexp.MustCompile(`Saving file as (\S+)`)
	rangeBoundsRe = regexp.MustCompile(`Bottom:\s*(\S+)\s+Top:\s*(\S+)\s+Step:\s*(\S+)`)
	choiceLineRe  = regexp.MustCompile(`^Choice:\s*(\d+)\s?(.*)$`)
)

const noCameraFound = "No camera found"

// parseStderr classifies the diagnostics printed by a failed gphoto2 run.
func parseStderr(stderr []byte) Result {
	text := string(stderr)
	if m := errorCodeRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Result(n)
		}
	}
	if strings.Contains(text, noCameraFound) {
		return ErrorModelNotFound
	}
	for _, m := range errorQuotedRe.FindAllStringSubmatch(text, -1) {
		if r, ok := resultFromText(m[1]); ok {
			return r
		}
	}
	return ErrorGeneric
}

// parseAutodetect reads the two-column table of --auto-detect.
func parseAutodetect(out []byte) []Detected {
	var found []Detected
	sc := bufio.NewScanner(bytes.NewReader(out))
	pastHeader := false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if !pastHeader {
			if strings.HasPrefix(line, "---") {
				pastHeader = true
			}
			continue
		}
		if line == "" {
			continue
		}
		i := strings.LastIndexAny(line, " \t")
		if i < 0 {
			continue
		}
		model := strings.TrimSpace(line[:i])
		port := strings.TrimSpace(line[i+1:])
		if model == "" || port == "" {
			continue
		}
		found = append(found, Detected{Model: model, Port: port})
	}
	return found
}

// parseCameraList reads the quoted model names of --list-cameras.
func parseCameraList(out []byte) []Abilities {
	var list []Abilities
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := quotedModelRe.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		status := strings.Trim(strings.TrimSpace(m[2]), "()")
		list = append(list, Abilities{Model: m[1], Status: status})
	}
	return list
}

// parsePortList reads the path/description table of --list-ports.
func parsePortList(out []byte) []PortInfo {
	var ports []PortInfo
	sc := bufio.NewScanner(bytes.NewReader(out))
	pastHeader := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !pastHeader {
			if strings.HasPrefix(line, "---") {
				pastHeader = true
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		p := fields[0]
		ports = append(ports, PortInfo{
			Path: p,
			Name: strings.TrimSpace(strings.TrimPrefix(line, p)),
			Type: PortTypeOf(p),
		})
	}
	return ports
}

// parseCaptureOutput extracts device locations and the local files they
// were saved to, in the order printed.
func parseCaptureOutput(out []byte) (locations []string, saved []string) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if m := newFileRe.FindStringSubmatch(line); m != nil {
			locations = append(locations, m[1])
		}
		if m := savingFileRe.FindStringSubmatch(line); m != nil {
			saved = append(saved, m[1])
		}
	}
	return locations, saved
}

// configBlock is one widget description from --list-all-config or --get-config.
type configBlock struct {
	path     string
	label    string
	readOnly bool
	kind     WidgetKind
	current  string
	choices  []string
	min, max float32
	step     float32
}

// parseConfigBlocks splits the output into END-terminated blocks. Blocks
// without a leading path line (--get-config) get an empty path.
func parseConfigBlocks(out []byte) ([]configBlock, error) {
	var (
		blocks []configBlock
		cur    *configBlock
	)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line == "END" {
			if cur != nil {
				blocks = append(blocks, *cur)
			}
			cur = nil
			continue
		}
		if cur == nil {
			cur = &configBlock{}
			if strings.HasPrefix(line, "/") {
				cur.path = line
				continue
			}
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimPrefix(val, " ")
		switch key {
		case "Label":
			cur.label = val
		case "Readonly":
			cur.readOnly = strings.TrimSpace(val) == "1"
		case "Type":
			k, err := ParseWidgetKind(val)
			if err != nil {
				return nil, err
			}
			cur.kind = k
		case "Current":
			cur.current = val
		case "Choice":
			if m := choiceLineRe.FindStringSubmatch(line); m != nil {
				cur.choices = append(cur.choices, m[2])
			}
		case "Bottom":
			if m := rangeBoundsRe.FindStringSubmatch(line); m != nil {
				cur.min = parseFloat32(m[1])
				cur.max = parseFloat32(m[2])
				cur.step = parseFloat32(m[3])
			}
		}
	}
	if cur != nil {
		return nil, fmt.Errorf("config block %q not terminated", cur.path)
	}
	return blocks, nil
}

func parseFloat32(s string) float32 {
	f, _ := strconv.ParseFloat(s, 32)
	return float32(f)
}

// widget materializes a block. name overrides the block path when set.
func (b configBlock) widget(name string) (*Widget, error) {
	if name == "" {
		name = b.path[strings.LastIndex(b.path, "/")+1:]
	}
	w := NewWidget(b.kind, name, b.label)
	w.ReadOnly = b.readOnly
	w.Choices = b.choices
	w.Min, w.Max, w.Step = b.min, b.max, b.step

	var err error
	switch b.kind {
	case KindText, KindMenu, KindRadio:
		err = w.SetValue(TextValue(b.current))
	case KindToggle, KindDate:
		var n int
		if b.current != "" {
			n, err = strconv.Atoi(strings.TrimSpace(b.current))
		}
		if err == nil {
			err = w.SetValue(IntValue(n))
		}
	case KindRange:
		var f float64
		if b.current != "" {
			f, err = strconv.ParseFloat(strings.TrimSpace(b.current), 32)
		}
		if err == nil {
			err = w.SetValue(FloatValue(f))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("widget %s: bad value %q: %w", name, b.current, err)
	}
	w.ClearChanged()
	return w, nil
}

// buildTree assembles blocks from --list-all-config into a tree. Sections
// are implied by the paths; their labels are not printed so they reuse the
// path component.
func buildTree(blocks []configBlock) (*Widget, error) {
	var root *Widget
	sections := make(map[string]*Widget)
	for _, b := range blocks {
		parts := strings.Split(strings.Trim(b.path, "/"), "/")
		if len(parts) < 2 {
			return nil, fmt.Errorf("config path %q has no parent", b.path)
		}
		if root == nil {
			root = NewWidget(KindWindow, parts[0], parts[0])
		} else if root.Name != parts[0] {
			return nil, fmt.Errorf("config path %q outside root %q", b.path, root.Name)
		}
		parent := root
		for i := 1; i < len(parts)-1; i++ {
			key := strings.Join(parts[:i+1], "/")
			sec, ok := sections[key]
			if !ok {
				sec = parent.Append(NewWidget(KindSection, parts[i], parts[i]))
				sections[key] = sec
			}
			parent = sec
		}
		w, err := b.widget("")
		if err != nil {
			return nil, err
		}
		parent.Append(w)
	}
	if root == nil {
		return nil, ErrorNotSupported
	}
	return root, nil
}

// formatForCLI renders a widget value the way --set-config-value expects.
func formatForCLI(w *Widget) (string, error) {
	switch v := w.Value().(type) {
	case TextValue:
		return string(v), nil
	case IntValue:
		return strconv.Itoa(int(v)), nil
	case FloatValue:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	}
	return "", ErrorBadParameters
}
