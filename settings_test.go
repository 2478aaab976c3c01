package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	manager := newSettingsManager()

	settings := newUserSettings()
	settings.SteamID = steamid.New("[U:1:32653229]")
	settings.RconPassword = "hunter2"
	settings.Lists = []ListConfig{{Name: "shared", Enabled: true, URL: "https://example.com/list.json"}}
	manager.replace(settings)

	var buf bytes.Buffer
	require.NoError(t, manager.write(&buf))

	reloaded := newSettingsManager()
	require.NoError(t, reloaded.read(&buf))
	require.Equal(t, settings, reloaded.Settings())
}

func TestSettingsValidate(t *testing.T) {
	t.Parallel()

	settings := newUserSettings()
	require.ErrorIs(t, settings.Validate(), errSettingsInvalid)

	settings.SteamID = steamid.New("[U:1:32653229]")
	require.NoError(t, settings.Validate())

	settings.RconPassword = ""
	require.ErrorIs(t, settings.Validate(), errSettingsInvalid)
}

func TestSettingsPollInterval(t *testing.T) {
	t.Parallel()

	settings := newUserSettings()
	require.Equal(t, 3*time.Second, settings.pollInterval())

	settings.UpdateRate = 10
	require.Equal(t, 10*time.Second, settings.pollInterval())

	// Nonsense rates fall back to the default.
	settings.UpdateRate = -1
	require.Equal(t, 3*time.Second, settings.pollInterval())
}
