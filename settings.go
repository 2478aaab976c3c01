package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kirsle/configdir"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"gopkg.in/yaml.v3"
)

const (
	configRoot         = "votekicker"
	defaultConfigName  = "votekicker.yaml"
	localPlayerList    = "playerlist.local.json"
	defaultAcceptKey   = "F6"
	defaultDeclineKey  = "F7"
	defaultAlertSound  = "ui/vote_started.wav"
	defaultUpdateRate  = 3
	defaultGracePolls  = 2
	defaultRconAddress = "127.0.0.1:21212"
)

type ListConfig struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type userSettings struct {
	// SteamID of the operator, used to find our own lobby slot.
	SteamID steamid.SteamID `yaml:"steam_id"`

	// TF2Dir is the `tf` game directory holding console.log and voice_ban.dt.
	TF2Dir string `yaml:"tf2_dir"`

	RconAddress  string `yaml:"rcon_address"`
	RconPassword string `yaml:"rcon_password"`

	LogLevel        string `yaml:"log_level"`
	DebugLogEnabled bool   `yaml:"debug_log_enabled"`

	KickerEnabled  bool   `yaml:"kicker_enabled"`
	KickAcceptKey  string `yaml:"kick_accept_key"`
	KickDeclineKey string `yaml:"kick_decline_key"`
	KickAlertSound string `yaml:"kick_alert_sound"`

	VoiceBansEnabled bool `yaml:"voice_bans_enabled"`

	// UpdateRate is the roster poll interval in seconds.
	UpdateRate int `yaml:"update_rate"`

	// MissingGracePolls is how many consecutive lobby snapshots a player may
	// be absent from before being dropped from the roster.
	MissingGracePolls int `yaml:"missing_grace_polls"`

	Lists []ListConfig `yaml:"lists"`
}

func newUserSettings() userSettings {
	return userSettings{
		RconAddress:       defaultRconAddress,
		RconPassword:      "votekicker",
		LogLevel:          "info",
		DebugLogEnabled:   false,
		KickerEnabled:     true,
		KickAcceptKey:     defaultAcceptKey,
		KickDeclineKey:    defaultDeclineKey,
		KickAlertSound:    defaultAlertSound,
		VoiceBansEnabled:  false,
		UpdateRate:        defaultUpdateRate,
		MissingGracePolls: defaultGracePolls,
		Lists:             []ListConfig{},
	}
}

func (s userSettings) Validate() error {
	var err error

	if !s.SteamID.Valid() {
		err = errors.Join(err, fmt.Errorf("%w: steam_id", errSettingsInvalid))
	}

	if s.RconAddress == "" {
		err = errors.Join(err, fmt.Errorf("%w: rcon_address", errSettingsInvalid))
	}

	if s.RconPassword == "" {
		err = errors.Join(err, fmt.Errorf("%w: rcon_password", errSettingsInvalid))
	}

	if s.KickerEnabled && (s.KickAcceptKey == "" || s.KickDeclineKey == "") {
		err = errors.Join(err, fmt.Errorf("%w: kick keys", errSettingsInvalid))
	}

	if s.TF2Dir != "" {
		if errExists := checkExists(s.TF2Dir); errExists != nil {
			err = errors.Join(err, errExists)
		}
	}

	return err
}

func (s userSettings) pollInterval() time.Duration {
	rate := s.UpdateRate
	if rate < 1 {
		rate = defaultUpdateRate
	}

	return time.Duration(rate) * time.Second
}

func checkExists(path string) error {
	if _, errStat := os.Stat(path); errStat != nil {
		return errors.Join(errStat, fmt.Errorf("%w: %s", errConfigNotFound, path))
	}

	return nil
}

type settingsManager struct {
	mu       sync.RWMutex
	settings userSettings
}

func newSettingsManager() *settingsManager {
	return &settingsManager{settings: newUserSettings()}
}

func (sm *settingsManager) ConfigRoot() string {
	return configdir.LocalConfig(configRoot)
}

func (sm *settingsManager) ListRoot() string {
	return filepath.Join(sm.ConfigRoot(), "lists")
}

func (sm *settingsManager) ConfigPath() string {
	return filepath.Join(sm.ConfigRoot(), defaultConfigName)
}

func (sm *settingsManager) LocalPlayerListPath() string {
	return filepath.Join(sm.ListRoot(), localPlayerList)
}

func (sm *settingsManager) Settings() userSettings {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.settings
}

func (sm *settingsManager) replace(settings userSettings) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.settings = settings
}

// validateAndLoad reads the settings file, creating a default one on first
// run, and makes sure the local playerlist exists so the list store always
// has a writable user document.
func (sm *settingsManager) validateAndLoad() error {
	if errDirs := configdir.MakePath(sm.ListRoot()); errDirs != nil {
		return errors.Join(errDirs, errSettingDirectoryCreate)
	}

	if errRead := sm.readDefaultOrCreate(); errRead != nil {
		return errRead
	}

	if errValidate := sm.Settings().Validate(); errValidate != nil {
		return errValidate
	}

	if errList := sm.ensureLocalPlayerList(); errList != nil {
		return errList
	}

	return nil
}

func (sm *settingsManager) readDefaultOrCreate() error {
	settingsFile, errOpen := os.Open(sm.ConfigPath())
	if errOpen != nil {
		if !os.IsNotExist(errOpen) {
			return errors.Join(errOpen, errSettingsOpen)
		}

		return sm.save()
	}

	defer IgnoreClose(settingsFile)

	return sm.read(settingsFile)
}

func (sm *settingsManager) read(reader io.Reader) error {
	var settings userSettings
	if errDecode := yaml.NewDecoder(reader).Decode(&settings); errDecode != nil {
		return errors.Join(errDecode, errSettingsDecode)
	}

	sm.replace(settings)

	return nil
}

func (sm *settingsManager) save() error {
	outputFile, errOpen := os.OpenFile(sm.ConfigPath(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o755)
	if errOpen != nil {
		return errors.Join(errOpen, errSettingsOpenOutput)
	}

	defer LogClose(outputFile)

	return sm.write(outputFile)
}

func (sm *settingsManager) write(writer io.Writer) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if errEncode := yaml.NewEncoder(writer).Encode(sm.settings); errEncode != nil {
		return errors.Join(errEncode, errSettingsEncode)
	}

	return nil
}

// ensureLocalPlayerList writes an empty user playerlist when none exists so
// the first document loaded into the store is always a local, writable one.
func (sm *settingsManager) ensureLocalPlayerList() error {
	path := sm.LocalPlayerListPath()

	if errExists := checkExists(path); errExists == nil {
		return nil
	}

	outputFile, errOpen := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o755)
	if errOpen != nil {
		return errors.Join(errOpen, errListSave)
	}

	defer LogClose(outputFile)

	encoder := json.NewEncoder(outputFile)
	encoder.SetIndent("", strings.Repeat(" ", exportIndentSize))

	if errEncode := encoder.Encode(newUserListSchema()); errEncode != nil {
		return errors.Join(errEncode, errListSave)
	}

	return nil
}
