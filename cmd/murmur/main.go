package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/murmur/internal/client"
	"github.com/matheus3301/murmur/internal/config"
	"github.com/matheus3301/murmur/internal/lock"
	"github.com/matheus3301/murmur/internal/logging"
	"github.com/matheus3301/murmur/internal/session"
	"github.com/matheus3301/murmur/internal/tui"
	"go.uber.org/zap"
)

func main() {
	configFlag := flag.String("config", "", "config file (default $MURMUR_HOME/config.toml)")
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	dataDirFlag := flag.String("data-dir", "", "profile data directory (overrides the profile location)")
	flag.Parse()

	if err := run(*configFlag, *profileFlag, *dataDirFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, profileFlag, dataDir string) error {
	if configPath == "" {
		configPath = session.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	profile := session.Resolve(profileFlag, cfg)
	if err := session.ValidateName(profile); err != nil {
		return err
	}
	layout := session.ForProfile(profile)
	if dataDir != "" {
		layout = session.Layout{Dir: dataDir}
	}
	if err := layout.EnsureDir(); err != nil {
		return fmt.Errorf("prepare profile dir: %w", err)
	}

	lk, err := lock.Acquire(layout.Dir)
	if err != nil {
		var held *lock.HeldError
		if errors.As(err, &held) {
			return fmt.Errorf("profile %q is already open: %w", profile, err)
		}
		return err
	}
	defer func() { _ = lk.Release() }()

	logger, err := logging.NewFileOnly(layout.LogPath(), "murmur")
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting", zap.String("profile", profile), zap.String("dir", layout.Dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := client.Open(ctx, layout, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("failed to close runtime", zap.Error(err))
		}
	}()

	app := tui.NewApp(tui.Options{
		Profile:     profile,
		ReplySource: cfg.ReplySource,
		Session:     rt.Session,
		Bus:         rt.Bus,
		Start:       rt.Start,
		Logger:      logger,
	})
	if err := app.Run(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
