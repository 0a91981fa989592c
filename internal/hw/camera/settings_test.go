package camera

import (
	"context"
	"testing"

	"github.com/cjeanneret/camctl/internal/hw/gphoto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bothPaths runs fn against a camera whose driver answers single-config
// lookups and against one that only serves the whole tree.
func bothPaths(t *testing.T, fn func(t *testing.T, cam *Camera, sim *gphoto.SimDriver)) {
	t.Run("fast path", func(t *testing.T) {
		cam, sim := newConnectedCamera(t, Options{})
		fn(t, cam, sim)
	})
	t.Run("tree walk", func(t *testing.T) {
		cam, sim := newConnectedCamera(t, Options{})
		sim.DisableSingleConfig()
		fn(t, cam, sim)
	})
}

func TestSetValue_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"ownername", "Jane Doe", "Jane Doe"},
		{"ownername", "", ""},
		{"iso", "800", "800"},
		{"aperture", "8", "8"},
		{"drivemode", "Timer 10 sec", "Timer 10 sec"},
		{"focallength", "70", "70"},
		{"focallength", "70.0", "70"},
		{"focallength", "35.5", "35.5"},
		{"exposurecompensation", "-1.5", "-1.5"},
		{"autofocusdrive", "1", "1"},
		{"autofocusdrive", "on", "1"},
		{"autofocusdrive", "false", "0"},
		{"datetime", "1700000100", "1700000100"},
	}
	bothPaths(t, func(t *testing.T, cam *Camera, sim *gphoto.SimDriver) {
		ctx := context.Background()
		for _, tt := range tests {
			require.NoError(t, cam.SetValue(ctx, tt.name, tt.value), "%s=%q", tt.name, tt.value)
			got, err := cam.GetValue(ctx, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "%s=%q", tt.name, tt.value)
		}
	})
}

func TestSetValue_NumbersAreNotChoiceIndexes(t *testing.T) {
	bothPaths(t, func(t *testing.T, cam *Camera, sim *gphoto.SimDriver) {
		ctx := context.Background()

		assert.ErrorIs(t, cam.SetValue(ctx, "iso", "5"), ErrCoercionFailed)
		assert.ErrorIs(t, cam.SetValue(ctx, "shutterspeed", "2"), ErrCoercionFailed)
		assert.ErrorIs(t, cam.SetISO(ctx, 5), ErrCoercionFailed)
		assert.Equal(t, 0, sim.Calls(gphoto.OpSetConfig)+sim.Calls(gphoto.OpSetSingleConfig))

		iso, err := cam.ISO(ctx)
		require.NoError(t, err)
		assert.Equal(t, "100", iso)
		speed, err := cam.GetValue(ctx, "shutterspeed")
		require.NoError(t, err)
		assert.Equal(t, "1/125", speed)

		// A choice that is itself a number is matched by value.
		require.NoError(t, cam.SetValue(ctx, "shutterspeed", "1"))
		speed, err = cam.GetValue(ctx, "shutterspeed")
		require.NoError(t, err)
		assert.Equal(t, "1", speed)
	})
}

func TestSetValue_UsesSingleWriteOnFastPath(t *testing.T) {
	cam, sim := newConnectedCamera(t, Options{})
	require.NoError(t, cam.SetValue(context.Background(), "iso", "400"))
	assert.Equal(t, 1, sim.Calls(gphoto.OpSetSingleConfig))
	assert.Equal(t, 0, sim.Calls(gphoto.OpSetConfig))

	w, ok := sim.Widget("iso")
	require.True(t, ok)
	assert.Equal(t, gphoto.TextValue("400"), w.Value())
}

func TestGetValue_NotFound(t *testing.T) {
	bothPaths(t, func(t *testing.T, cam *Camera, sim *gphoto.SimDriver) {
		_, err := cam.GetValue(context.Background(), "nosuchsetting")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "nosuchsetting")
		assert.True(t, cam.IsConnected())
	})
}

func TestGetValue_TreeFetchFailure(t *testing.T) {
	cam, sim := newConnectedCamera(t, Options{})
	sim.DisableSingleConfig()
	sim.Fail(gphoto.OpConfig, gphoto.ErrorIO)

	_, err := cam.GetValue(context.Background(), "iso")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, cam.IsConnected(), "only captures demote the session")
}

func TestGetValue_ByLabel(t *testing.T) {
	cam, sim := newConnectedCamera(t, Options{})

	got, err := cam.GetValue(context.Background(), "ISO Speed")
	require.NoError(t, err)
	assert.Equal(t, "100", got)
	assert.Equal(t, 1, sim.Calls(gphoto.OpConfig), "label lookup walks the tree")
}

func TestGetValue_Kinds(t *testing.T) {
	cam, _ := newConnectedCamera(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name string
		want string
	}{
		{"batterylevel", "100%"},
		{"focallength", "50"},
		{"exposurecompensation", "0"},
		{"autofocusdrive", "0"},
		{"datetime", "1700000000"},
		{"eosremoterelease", ""},
		{"capturesettings", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cam.GetValue(ctx, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetValue_CoercionFailures(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"focallength", "wide"},
		{"focallength", "500"},
		{"aperture", "7.1"},
		{"aperture", "99"},
		{"autofocusdrive", "maybe"},
		{"datetime", "yesterday"},
		{"batterylevel", "50%"},
		{"eosremoterelease", "1"},
		{"capturesettings", "x"},
	}
	bothPaths(t, func(t *testing.T, cam *Camera, sim *gphoto.SimDriver) {
		for _, tt := range tests {
			err := cam.SetValue(context.Background(), tt.name, tt.value)
			assert.ErrorIs(t, err, ErrCoercionFailed, "%s=%q", tt.name, tt.value)
		}
		assert.Equal(t, 0, sim.Calls(gphoto.OpSetConfig)+sim.Calls(gphoto.OpSetSingleConfig))
	})
}

func TestSetValue_WriteFailure(t *testing.T) {
	cam, sim := newConnectedCamera(t, Options{})
	sim.Fail(gphoto.OpSetSingleConfig, gphoto.ErrorCameraBusy)

	err := cam.SetValue(context.Background(), "iso", "200")
	assert.ErrorIs(t, err, ErrWriteFailed)
	var code gphoto.Result
	require.ErrorAs(t, err, &code)
	assert.Equal(t, gphoto.ErrorCameraBusy, code)
}

func TestListChoices(t *testing.T) {
	cam, _ := newConnectedCamera(t, Options{})
	ctx := context.Background()

	got, err := cam.ListChoices(ctx, "shutterspeed")
	require.NoError(t, err)
	assert.Contains(t, got, "1/125")
	got[0] = "mutated"
	again, err := cam.ListChoices(ctx, "shutterspeed")
	require.NoError(t, err)
	assert.Equal(t, "bulb", again[0])

	_, err = cam.ListChoices(ctx, "focallength")
	assert.ErrorIs(t, err, ErrNotEnum)
	assert.ErrorIs(t, err, ErrCoercionFailed)

	_, err = cam.ListChoices(ctx, "nosuchsetting")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListConfig(t *testing.T) {
	cam, _ := newConnectedCamera(t, Options{})

	settings, err := cam.ListConfig(context.Background())
	require.NoError(t, err)
	byPath := make(map[string]Setting)
	for _, s := range settings {
		byPath[s.Path] = s
	}
	ap, ok := byPath["/main/capturesettings/aperture"]
	require.True(t, ok)
	assert.Equal(t, "radio", ap.Kind)
	assert.Equal(t, "5.6", ap.Value)
	assert.True(t, byPath["/main/status/batterylevel"].ReadOnly)
	_, ok = byPath["/main/capturesettings"]
	assert.False(t, ok, "sections are not listed")
}

func TestSettings_NotConnected(t *testing.T) {
	cam, _ := newTestCamera(t, Options{})
	ctx := context.Background()

	_, err := cam.GetValue(ctx, "iso")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, cam.SetValue(ctx, "iso", "100"), ErrNotConnected)
	_, err = cam.ListConfig(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConvenienceAccessors(t *testing.T) {
	cam, _ := newConnectedCamera(t, Options{})
	ctx := context.Background()

	require.NoError(t, cam.SetAperture(ctx, 8))
	require.NoError(t, cam.SetISO(ctx, 1600))
	require.NoError(t, cam.SetShutterSpeed(ctx, "1/250"))
	require.NoError(t, cam.SetAutoFocus(ctx, true))

	got, err := cam.Aperture(ctx)
	require.NoError(t, err)
	assert.Equal(t, "8", got)
	got, err = cam.ISO(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1600", got)
	got, err = cam.ShutterSpeed(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1/250", got)
	got, err = cam.GetValue(ctx, "autofocusdrive")
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	got, err = cam.FocalLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, "50", got)
	got, err = cam.ImageQuality(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Large Fine JPEG", got)
	got, err = cam.BatteryLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100%", got)

	assert.ErrorIs(t, cam.SetAperture(ctx, 7.1), ErrCoercionFailed)
}

func TestConvenienceAccessors_CustomKeys(t *testing.T) {
	keys := DefaultSettingKeys()
	keys.Aperture = "Aperture" // matched by label
	keys.BatteryLevel = ""
	cam, _ := newConnectedCamera(t, Options{Keys: keys})
	ctx := context.Background()

	got, err := cam.Aperture(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5.6", got)

	_, err = cam.BatteryLevel(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
