// Package app assembles the academy's components from configuration: the
// challenge catalog, the local state store, the progress backend and the
// draft cache. Commands and the HTTP API open challenge sessions through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/datadetective/academy/internal/catalog"
	"github.com/datadetective/academy/internal/client"
	"github.com/datadetective/academy/internal/drafts"
	"github.com/datadetective/academy/internal/gateway"
	"github.com/datadetective/academy/internal/hints"
	"github.com/datadetective/academy/internal/progress"
	"github.com/datadetective/academy/internal/session"
	"github.com/datadetective/academy/internal/state"
	"github.com/datadetective/academy/pkg/core"
)

// Config holds what App needs to assemble its components.
type Config struct {
	// Engine, Params and QueryTimeout configure session databases.
	Engine       string
	Params       map[string]any
	QueryTimeout time.Duration

	// CatalogDir holds pack files. Empty uses the built-in pack.
	CatalogDir string
	// StatePath is the local state database. ":memory:" keeps nothing.
	StatePath string
	// QuietPeriod delays draft writes.
	QuietPeriod time.Duration

	// APIBaseURL selects the remote progress backend. Empty records
	// progress in the state database.
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// progressSource is where completed challenges and hint accesses go.
type progressSource interface {
	hints.Recorder
	gateway.ProgressRecorder
}

// App owns the long-lived components shared by sessions.
type App struct {
	cfg     Config
	catalog *catalog.Catalog
	store   *state.SQLiteStore
	drafts  *drafts.Cache
	local   *progress.Recorder
	remote  *client.Client
	gateway *gateway.Gateway
	logger  *slog.Logger
}

// New builds an App. Close releases it.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var (
		cat *catalog.Catalog
		err error
	)
	if cfg.CatalogDir != "" {
		cat, err = catalog.LoadDir(cfg.CatalogDir, logger)
	} else {
		cat, err = catalog.Default(logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenges: %w", err)
	}

	// Ensure state directory exists
	if cfg.StatePath != "" && cfg.StatePath != state.MemoryPath {
		if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		catalog: cat,
		store:   store,
		drafts:  drafts.New(store, cfg.QuietPeriod, logger),
		local:   progress.NewRecorder(store, cat, logger),
		logger:  logger,
	}

	var source progressSource = a.local
	if cfg.APIBaseURL != "" {
		a.remote, err = client.New(client.Config{
			BaseURL: cfg.APIBaseURL,
			Token:   cfg.APIToken,
			Timeout: cfg.APITimeout,
			Logger:  logger,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		source = &remoteSource{remote: a.remote, store: store, logger: logger}
		logger.Debug("recording progress remotely", "base_url", cfg.APIBaseURL)
	}
	a.gateway = gateway.New(source, logger)

	return a, nil
}

// Catalog returns the challenge catalog.
func (a *App) Catalog() *catalog.Catalog { return a.catalog }

// Online reports whether progress goes to a remote backend.
func (a *App) Online() bool { return a.remote != nil }

// OpenChallenge opens a session for the challenge identified by key. The
// unlocked hint count and the saved draft are restored.
func (a *App) OpenChallenge(ctx context.Context, key core.ChallengeKey, onOutcome func(core.Outcome)) (*session.Controller, error) {
	ch, err := a.catalog.Challenge(key)
	if err != nil {
		return nil, err
	}

	used, err := a.local.HintsUsed(ctx, key)
	if err != nil {
		a.logger.Warn("failed to read hint accesses", "challenge", key, "error", err)
		used = 0
	}

	return session.Open(ctx, session.Options{
		Key:          key,
		Reference:    ch.Solution,
		Hints:        ch.Hints,
		InitialHints: used,
		Engine:       a.cfg.Engine,
		Params:       a.cfg.Params,
		Dataset:      ch.Dataset,
		QueryTimeout: a.cfg.QueryTimeout,
		Drafts:       a.drafts,
		HintRecorder: a.hintRecorder(),
		Gateway:      a.gateway,
		OnOutcome:    onOutcome,
		Logger:       a.logger,
	})
}

// OpenPractice opens a free practice session over the catalog's dataset.
// It cannot be checked or submitted.
func (a *App) OpenPractice(ctx context.Context, onOutcome func(core.Outcome)) (*session.Controller, error) {
	return session.Open(ctx, session.Options{
		Engine:       a.cfg.Engine,
		Params:       a.cfg.Params,
		Dataset:      a.catalog.Dataset(),
		QueryTimeout: a.cfg.QueryTimeout,
		OnOutcome:    onOutcome,
		Logger:       a.logger,
	})
}

func (a *App) hintRecorder() hints.Recorder {
	if a.remote != nil {
		return &remoteSource{remote: a.remote, store: a.store, logger: a.logger}
	}
	return a.local
}

// Progress returns the student's progress report.
func (a *App) Progress(ctx context.Context) (core.ProgressReport, error) {
	if a.remote != nil {
		return a.remote.Progress(ctx)
	}
	return a.local.Report(ctx)
}

// Close flushes pending drafts and closes the state store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.drafts.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// remoteSource records to the backend and mirrors hint accesses into the
// local store, which the backend offers no way to read back.
type remoteSource struct {
	remote *client.Client
	store  *state.SQLiteStore
	logger *slog.Logger
}

func (s *remoteSource) RecordHintAccess(ctx context.Context, key core.ChallengeKey, level int) error {
	if err := s.remote.RecordHintAccess(ctx, key, level); err != nil {
		return err
	}
	if err := s.store.RecordHintAccess(ctx, key, level); err != nil {
		s.logger.Warn("failed to mirror hint access", "challenge", key, "level", level, "error", err)
	}
	return nil
}

func (s *remoteSource) SubmitSolution(ctx context.Context, sub gateway.Submission) (gateway.Award, error) {
	return s.remote.SubmitSolution(ctx, sub)
}
