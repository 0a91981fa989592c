package camera

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cjeanneret/camctl/internal/hw/gphoto"
)

// formatValue renders a widget value as its canonical string. Widgets
// without a scalar value render as "".
func formatValue(w *gphoto.Widget) string {
	switch v := w.Value().(type) {
	case gphoto.TextValue:
		return string(v)
	case gphoto.IntValue:
		return strconv.Itoa(int(v))
	case gphoto.FloatValue:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return ""
}

// coerce converts s to the native value of w.
func coerce(w *gphoto.Widget, s string) (gphoto.Value, error) {
	if w.ReadOnly {
		return nil, fmt.Errorf("%s is read-only", w.Name)
	}
	switch w.Kind {
	case gphoto.KindText:
		return gphoto.TextValue(s), nil

	case gphoto.KindMenu, gphoto.KindRadio:
		for _, c := range w.Choices {
			if c == s {
				return gphoto.TextValue(c), nil
			}
		}
		if len(w.Choices) == 0 {
			return gphoto.TextValue(s), nil
		}
		return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(w.Choices, ", "))

	case gphoto.KindToggle:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "on", "yes":
			return gphoto.IntValue(1), nil
		case "false", "off", "no":
			return gphoto.IntValue(0), nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%q is not a toggle value", s)
		}
		return gphoto.IntValue(n), nil

	case gphoto.KindDate:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%q is not a unix time", s)
		}
		return gphoto.IntValue(n), nil

	case gphoto.KindRange:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		if w.Max > w.Min && (float32(f) < w.Min || float32(f) > w.Max) {
			return nil, fmt.Errorf("%v outside [%v, %v]", f, w.Min, w.Max)
		}
		return gphoto.FloatValue(f), nil
	}
	return nil, fmt.Errorf("%s widgets take no value", w.Kind)
}
