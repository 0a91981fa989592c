package camera

import (
	"context"

	"github.com/cjeanneret/camctl/internal/debug"
	"github.com/cjeanneret/camctl/internal/hw/gphoto"
)

// Setting is one leaf of the configuration tree.
type Setting struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Value    string   `json:"value"`
	ReadOnly bool     `json:"readonly"`
	Choices  []string `json:"choices,omitempty"`
}

// resolve finds the widget for name: the single-config lookup first, then
// the whole tree by name and by label. root is nil when the fast path
// answered, so the caller commits with a single-config write.
func resolve(ctx context.Context, s *Session, name string) (w, root *gphoto.Widget, err error) {
	fast, err := s.device.SingleConfig(ctx, name)
	if err == nil {
		return fast, nil, nil
	}
	debug.Trace("single config %q: %v, walking tree", name, err)

	root, err = s.device.Config(ctx)
	if err != nil {
		return nil, nil, fail(gphoto.OpConfig, name, ErrNotFound, err)
	}
	if w, err = root.ChildByName(name); err == nil {
		return w, root, nil
	}
	if w, err = root.ChildByLabel(name); err == nil {
		return w, root, nil
	}
	return nil, nil, fail(gphoto.OpConfig, name, ErrNotFound, err)
}

// GetValue returns the canonical string value of the named setting. The
// name is matched against widget names, then labels.
func (c *Camera) GetValue(ctx context.Context, name string) (string, error) {
	var out string
	err := c.withSession(ctx, func(ctx context.Context, s *Session) error {
		w, _, err := resolve(ctx, s, name)
		if err != nil {
			return err
		}
		out = formatValue(w)
		return nil
	})
	return out, err
}

// ListChoices returns the allowed values of a menu or radio setting.
func (c *Camera) ListChoices(ctx context.Context, name string) ([]string, error) {
	var out []string
	err := c.withSession(ctx, func(ctx context.Context, s *Session) error {
		w, _, err := resolve(ctx, s, name)
		if err != nil {
			return err
		}
		if !w.Kind.IsEnum() {
			return newOpError(gphoto.OpConfig, name, ErrNotEnum, nil)
		}
		out = append([]string(nil), w.Choices...)
		return nil
	})
	return out, err
}

// SetValue converts value to the setting's native type and writes it to
// the device.
func (c *Camera) SetValue(ctx context.Context, name, value string) error {
	return c.withSession(ctx, func(ctx context.Context, s *Session) error {
		w, root, err := resolve(ctx, s, name)
		if err != nil {
			return err
		}
		v, err := coerce(w, value)
		if err == nil {
			err = w.SetValue(v)
		}
		if err != nil {
			return fail(gphoto.OpSetConfig, name, ErrCoercionFailed, err)
		}

		if root == nil {
			err = s.device.SetSingleConfig(ctx, name, w)
			if err != nil {
				return fail(gphoto.OpSetSingleConfig, name, ErrWriteFailed, err)
			}
		} else if err = s.device.SetConfig(ctx, root); err != nil {
			return fail(gphoto.OpSetConfig, name, ErrWriteFailed, err)
		}
		debug.Live("Set %s = %q", name, formatValue(w))
		return nil
	})
}

// ListConfig returns every leaf setting, in tree order.
func (c *Camera) ListConfig(ctx context.Context) ([]Setting, error) {
	var out []Setting
	err := c.withSession(ctx, func(ctx context.Context, s *Session) error {
		root, err := s.device.Config(ctx)
		if err != nil {
			return fail(gphoto.OpConfig, "", ErrLookupFailed, err)
		}
		root.Walk(func(w *gphoto.Widget) {
			if w.Kind.IsContainer() {
				return
			}
			out = append(out, Setting{
				Name:     w.Name,
				Path:     w.Path(),
				Label:    w.Label,
				Kind:     w.Kind.String(),
				Value:    formatValue(w),
				ReadOnly: w.ReadOnly,
				Choices:  append([]string(nil), w.Choices...),
			})
		})
		return nil
	})
	return out, err
}
