package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
)

var (
	// Populated by goreleaser.
	version = "master"
	commit  = "latest"
	date    = "n/a"
)

func run(ctx context.Context) int {
	settingsMgr := newSettingsManager()
	if errSettings := settingsMgr.validateAndLoad(); errSettings != nil {
		slog.Error("Failed to load settings", errAttr(errSettings))

		return 1
	}

	settings := settingsMgr.Settings()

	logCloser := MustCreateLogger(settings, settingsMgr.ConfigRoot())
	defer logCloser()

	slog.Info("Starting votekicker",
		slog.String("version", version), slog.String("commit", commit), slog.String("date", date))

	lists := newListStore()

	// The local playerlist is loaded first so it becomes the writable user
	// document. Remote list failures are logged and skipped, a dead mirror
	// should not take the whole session down.
	if errLocal := lists.LoadFile(settingsMgr.LocalPlayerListPath()); errLocal != nil {
		slog.Error("Failed to load local player list", errAttr(errLocal))

		return 1
	}

	for _, listConfig := range settings.Lists {
		if !listConfig.Enabled {
			continue
		}

		var errLoad error
		if strings.HasPrefix(listConfig.URL, "http://") || strings.HasPrefix(listConfig.URL, "https://") {
			errLoad = lists.LoadURL(ctx, listConfig.URL)
		} else {
			errLoad = lists.LoadFile(listConfig.URL)
		}

		if errLoad != nil {
			slog.Error("Failed to load ban list",
				slog.String("name", listConfig.Name), errAttr(errLoad))
		}
	}

	voiceBans := newVoiceBanState(settings.TF2Dir)

	if settings.TF2Dir != "" {
		if _, errLoad := voiceBans.Load(); errLoad != nil {
			slog.Warn("Failed to load voice bans", errAttr(errLoad))
		}
	}

	process := newProcessState(voiceBans)

	if settings.VoiceBansEnabled && settings.TF2Dir != "" {
		if running, _ := isGameRunning(); !running {
			if errExport := exportVoiceBans(settings.TF2Dir, lists); errExport != nil {
				slog.Error("Failed to export voice bans", errAttr(errExport))
			}
		} else {
			slog.Warn("Skipping voice ban export, game is running")
		}
	}

	rcon := newRconConnection(settings.RconAddress, settings.RconPassword)
	runner := newLoggedRunner(rcon, settings.TF2Dir)
	players := newRoster(settings.SteamID, lists, voiceBans, settings.MissingGracePolls)
	updater := newRosterUpdater(rcon, runner, process, players, settings.pollInterval())

	serviceGroup, serviceCtx := errgroup.WithContext(ctx)

	serviceGroup.Go(func() error {
		process.start(serviceCtx)

		return nil
	})

	serviceGroup.Go(func() error {
		updater.start(serviceCtx)

		return nil
	})

	if settings.KickerEnabled {
		voteKicker := newKicker(rcon, players, settings)

		serviceGroup.Go(func() error {
			voteKicker.run(serviceCtx)

			return nil
		})
	}

	if settings.TF2Dir != "" {
		ingest, errIngest := newLogIngest(settings.TF2Dir, players)
		if errIngest != nil {
			slog.Error("Failed to open console.log", errAttr(errIngest))

			return 1
		}

		serviceGroup.Go(func() error {
			ingest.start(serviceCtx)

			return nil
		})
	}

	if errGroup := serviceGroup.Wait(); errGroup != nil {
		slog.Error("Service error", errAttr(errGroup))
	}

	if errSave := lists.SaveUserFile(); errSave != nil {
		slog.Error("Failed to save user player list", errAttr(errSave))
	}

	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx))
}
