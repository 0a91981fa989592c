package gphoto

import (
	"fmt"
	"path"
	"strings"
)

// WidgetKind is the type tag of a configuration widget.
type WidgetKind int

const (
	KindWindow WidgetKind = iota
	KindSection
	KindText
	KindRange
	KindToggle
	KindRadio
	KindMenu
	KindButton
	KindDate
)

var kindNames = [...]string{
	KindWindow:  "window",
	KindSection: "section",
	KindText:    "text",
	KindRange:   "range",
	KindToggle:  "toggle",
	KindRadio:   "radio",
	KindMenu:    "menu",
	KindButton:  "button",
	KindDate:    "date",
}

func (k WidgetKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseWidgetKind accepts the kind names used by String and the upper-case
// names printed by the gphoto2 tool ("RADIO", "TOGGLE", ...).
func ParseWidgetKind(s string) (WidgetKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return WidgetKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown widget type %q", s)
}

// IsContainer reports whether widgets of this kind hold children instead of a value.
func (k WidgetKind) IsContainer() bool {
	return k == KindWindow || k == KindSection
}

// IsEnum reports whether widgets of this kind pick from a choice list.
func (k WidgetKind) IsEnum() bool {
	return k == KindMenu || k == KindRadio
}

// Value is the tagged value of a leaf widget.
type Value interface {
	isValue()
}

// TextValue is carried by text, menu and radio widgets.
type TextValue string

// IntValue is carried by toggle and date widgets.
type IntValue int

// FloatValue is carried by range widgets.
type FloatValue float32

func (TextValue) isValue()  {}
func (IntValue) isValue()   {}
func (FloatValue) isValue() {}

// Widget is a node of a device configuration tree.
type Widget struct {
	Name     string
	Label    string
	Info     string
	Kind     WidgetKind
	ReadOnly bool

	// Choices lists the allowed values of menu and radio widgets.
	Choices []string

	// Min, Max and Step bound range widgets.
	Min, Max, Step float32

	Children []*Widget

	parent  *Widget
	value   Value
	changed bool
}

// NewWidget creates a widget with the zero value for its kind.
func NewWidget(kind WidgetKind, name, label string) *Widget {
	w := &Widget{Name: name, Label: label, Kind: kind}
	switch kind {
	case KindText, KindMenu, KindRadio:
		w.value = TextValue("")
	case KindToggle, KindDate:
		w.value = IntValue(0)
	case KindRange:
		w.value = FloatValue(0)
	}
	return w
}

// Append adds child to w and returns child.
func (w *Widget) Append(child *Widget) *Widget {
	child.parent = w
	w.Children = append(w.Children, child)
	return child
}

// Parent returns the containing widget, nil for the root.
func (w *Widget) Parent() *Widget {
	return w.parent
}

// Root walks up to the top of the tree.
func (w *Widget) Root() *Widget {
	for w.parent != nil {
		w = w.parent
	}
	return w
}

// Path returns the slash-separated path from the root, e.g.
// "/main/capturesettings/aperture".
func (w *Widget) Path() string {
	var parts []string
	for n := w; n != nil; n = n.parent {
		parts = append(parts, n.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + path.Join(parts...)
}

// Value returns the current value, nil for containers and buttons.
func (w *Widget) Value() Value {
	return w.value
}

// SetValue stores v if its variant matches the widget kind and marks the
// widget changed. The device is only written when the tree is committed.
func (w *Widget) SetValue(v Value) error {
	ok := false
	switch v.(type) {
	case TextValue:
		ok = w.Kind == KindText || w.Kind.IsEnum()
	case IntValue:
		ok = w.Kind == KindToggle || w.Kind == KindDate
	case FloatValue:
		ok = w.Kind == KindRange
	}
	if !ok {
		return fmt.Errorf("widget %s (%s) does not take %T: %w", w.Name, w.Kind, v, ErrorBadParameters)
	}
	w.value = v
	w.changed = true
	return nil
}

// Changed reports whether SetValue was called since the last ClearChanged.
func (w *Widget) Changed() bool {
	return w.changed
}

// ClearChanged resets the changed flag.
func (w *Widget) ClearChanged() {
	w.changed = false
}

// ChildByName searches the subtree below w, depth first.
// A name starting with "/" is matched against the full widget path.
func (w *Widget) ChildByName(name string) (*Widget, error) {
	if strings.HasPrefix(name, "/") {
		return w.find(func(c *Widget) bool { return c.Path() == name })
	}
	return w.find(func(c *Widget) bool { return c.Name == name })
}

// ChildByLabel searches the subtree below w, depth first.
func (w *Widget) ChildByLabel(label string) (*Widget, error) {
	return w.find(func(c *Widget) bool { return c.Label == label })
}

func (w *Widget) find(match func(*Widget) bool) (*Widget, error) {
	for _, c := range w.Children {
		if match(c) {
			return c, nil
		}
		if found, err := c.find(match); err == nil {
			return found, nil
		}
	}
	return nil, ErrorBadParameters
}

// Walk calls fn for w and every descendant, parents first.
func (w *Widget) Walk(fn func(*Widget)) {
	fn(w)
	for _, c := range w.Children {
		c.Walk(fn)
	}
}

// Clone deep-copies the subtree rooted at w. The copy has no parent.
func (w *Widget) Clone() *Widget {
	c := *w
	c.parent = nil
	c.Choices = append([]string(nil), w.Choices...)
	c.Children = nil
	for _, child := range w.Children {
		c.Append(child.Clone())
	}
	return &c
}
