package cli

import (
	"log/slog"

	"github.com/roach88/intake/internal/config"
	"github.com/roach88/intake/internal/ingest"
	"github.com/roach88/intake/internal/project"
	"github.com/roach88/intake/internal/quarantine"
	"github.com/roach88/intake/internal/source"
	"github.com/roach88/intake/internal/store"
)

// appEnv bundles the wired pipeline collaborators a command needs.
type appEnv struct {
	cfg       config.Config
	store     *store.Store
	source    *source.Local
	processor *ingest.Processor
	service   *quarantine.Service
}

// openEnv loads configuration, opens the database, and wires the pipeline.
// Non-empty overrides win over the config file.
func openEnv(opts *RootOptions, storageOverride, dbOverride string) (*appEnv, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if storageOverride != "" {
		cfg.Storage.Path = storageOverride
	}
	if dbOverride != "" {
		cfg.Database.Path = dbOverride
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	src := source.NewLocal(cfg.Storage.Path)
	clock := project.SystemClock{}
	proj := project.New(st, clock)

	return &appEnv{
		cfg:       cfg,
		store:     st,
		source:    src,
		processor: ingest.NewProcessor(src, st, proj, clock),
		service:   quarantine.New(st, proj, src, clock),
	}, nil
}

func (e *appEnv) Close() {
	if err := e.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
