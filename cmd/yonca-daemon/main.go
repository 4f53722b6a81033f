package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yonca-ai/yonca/internal/classifier"
	"github.com/yonca-ai/yonca/internal/config"
	"github.com/yonca-ai/yonca/internal/daemon"
	"github.com/yonca-ai/yonca/internal/logger"
	"github.com/yonca-ai/yonca/internal/mail"
	"github.com/yonca-ai/yonca/internal/router"
	"github.com/yonca-ai/yonca/internal/session"
	"github.com/yonca-ai/yonca/internal/store"
	"github.com/yonca-ai/yonca/internal/tracker/academic"
	"github.com/yonca-ai/yonca/internal/tracker/email"
	"github.com/yonca-ai/yonca/internal/tracker/expense"
	"github.com/yonca-ai/yonca/internal/tracker/project"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "yonca-daemon: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.LogLevel)
	logCfg.Format = cfg.LogFormat
	logger.Init(logCfg)
	log := logger.ForComponent("main")

	pidFile := daemon.NewPIDFile(filepath.Join(filepath.Dir(cfg.SocketPath), "daemon.pid"))
	if pidFile.IsProcessAlive() {
		log.Info("daemon already running")
		return nil
	}
	if err := pidFile.Write(); err != nil {
		return err
	}
	defer pidFile.Remove()

	st, err := store.New(cfg.DataDir)
	if err != nil {
		return err
	}
	watcher, err := store.NewWatcher(st, store.DefaultIgnorePatterns())
	if err != nil {
		return err
	}
	if err := watcher.Start(context.Background()); err != nil {
		return err
	}
	defer watcher.Close()

	sessions, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		return err
	}
	defer sessions.Close()

	cls := buildClassifier(cfg)

	expenseTracker, err := expense.New(st, cls)
	if err != nil {
		return err
	}
	academicTracker, err := academic.New(st, cls)
	if err != nil {
		return err
	}
	projectTracker, err := project.New(st, cls)
	if err != nil {
		return err
	}

	trackers := []router.Tracker{expenseTracker, academicTracker, projectTracker}

	// Mail needs OAuth client credentials; without them the email domain
	// is simply not offered.
	if auth, err := mail.NewAuthenticator(cfg.ClientSecretPath); err != nil {
		log.Warn("email domain disabled", "error", err)
	} else {
		tokens := mail.NewTokenStore(cfg.TokenDir, cfg.TokenPassphrase)
		emailTracker, err := email.New(email.NewManager(auth, tokens, nil), cls)
		if err != nil {
			return err
		}
		trackers = append(trackers, emailTracker)
	}

	d := daemon.NewDaemon(cfg.SocketPath, router.New(cls, trackers...), sessions)
	if err := d.Start(); err != nil {
		return err
	}
	d.Wait()
	return nil
}

// buildClassifier prefers the model-backed classifier and falls back to the
// keyword rules when no API key is configured.
func buildClassifier(cfg *config.Config) classifier.Classifier {
	log := logger.ForComponent("main")
	cls, err := classifier.NewOpenAIClassifier(cfg.OpenAIKey, cfg.OpenAIModel)
	if err != nil {
		log.Warn("using keyword classifier", "error", err)
		return classifier.NewRuleClassifier()
	}
	return cls
}
