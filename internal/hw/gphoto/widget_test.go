package gphoto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWidgetKind(t *testing.T) {
	k, err := ParseWidgetKind("RADIO")
	require.NoError(t, err)
	assert.Equal(t, KindRadio, k)

	k, err = ParseWidgetKind(" toggle ")
	require.NoError(t, err)
	assert.Equal(t, KindToggle, k)

	_, err = ParseWidgetKind("slider")
	assert.Error(t, err)
}

func TestWidget_SetValueChecksVariant(t *testing.T) {
	w := NewWidget(KindRange, "focallength", "Focal Length")
	assert.Equal(t, FloatValue(0), w.Value())

	err := w.SetValue(TextValue("50"))
	assert.True(t, errors.Is(err, ErrorBadParameters))
	assert.False(t, w.Changed())

	require.NoError(t, w.SetValue(FloatValue(50)))
	assert.True(t, w.Changed())
	w.ClearChanged()
	assert.False(t, w.Changed())

	b := NewWidget(KindButton, "release", "Release")
	assert.Nil(t, b.Value())
	assert.Error(t, b.SetValue(IntValue(1)))
}

func TestWidget_LookupAndPath(t *testing.T) {
	root := DefaultSimTree()

	w, err := root.ChildByName("aperture")
	require.NoError(t, err)
	assert.Equal(t, "/main/capturesettings/aperture", w.Path())
	assert.Same(t, root, w.Root())

	w, err = root.ChildByLabel("ISO Speed")
	require.NoError(t, err)
	assert.Equal(t, "iso", w.Name)

	w, err = root.ChildByName("/main/imgsettings/iso")
	require.NoError(t, err)
	assert.Equal(t, "iso", w.Name)

	_, err = root.ChildByName("/main/capturesettings/iso")
	assert.True(t, errors.Is(err, ErrorBadParameters))

	_, err = root.ChildByName("nope")
	assert.True(t, errors.Is(err, ErrorBadParameters))
}

func TestWidget_CloneIsDeep(t *testing.T) {
	root := DefaultSimTree()
	c := root.Clone()

	w, err := c.ChildByName("iso")
	require.NoError(t, err)
	require.NoError(t, w.SetValue(TextValue("800")))
	w.Choices[0] = "changed"

	orig, err := root.ChildByName("iso")
	require.NoError(t, err)
	assert.Equal(t, TextValue("100"), orig.Value())
	assert.Equal(t, "Auto", orig.Choices[0])
	assert.Nil(t, c.Parent())
	assert.Same(t, c, w.Root())
}
