package main

import "errors"

var (
	errRCONConnect = errors.New("failed to connect to rcon")
	errRCONExec    = errors.New("failed to write rcon command")
	errRCONRead    = errors.New("failed to read rcon response")

	errRCONStatus = errors.New("failed to get status output")
	errRCONLobby  = errors.New("failed to get lobby debug output")

	errCaptureTimeout = errors.New("capture file never appeared")

	errLogTailCreate = errors.New("failed to configure console.log tail")

	errVoiceBanOpen  = errors.New("failed to open voice ban file")
	errVoiceBanRead  = errors.New("failed to read voice ban file")
	errVoiceBanWrite = errors.New("failed to write voice ban file")

	errListRead     = errors.New("failed to read ban list document")
	errListDecode   = errors.New("failed to decode ban list document")
	errListFetch    = errors.New("failed to fetch remote ban list")
	errListNoUser   = errors.New("no user ban list loaded")
	errListSave     = errors.New("failed to save user ban list")
	errDuplicateID  = errors.New("steam id already present")
	errDuplicateURL = errors.New("duplicate list source")

	errSettingsOpen           = errors.New("failed to open settings file")
	errSettingsDecode         = errors.New("failed to decode settings")
	errSettingsEncode         = errors.New("failed to encode settings")
	errSettingsOpenOutput     = errors.New("failed to open settings file for writing")
	errSettingDirectoryCreate = errors.New("failed to create config directory")
	errSettingsInvalid        = errors.New("invalid settings")
	errConfigNotFound         = errors.New("config path does not exist")

	errPlayerNotFound = errors.New("player not found")
	errDuration       = errors.New("failed to parse connected duration")
)
