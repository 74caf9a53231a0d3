package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/satishbabariya/relq/backend/csvfile"
	"github.com/satishbabariya/relq/backend/memory"
	"github.com/satishbabariya/relq/backend/sqldb"
	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/engine"
	"github.com/satishbabariya/relq/internal/config"
	"github.com/satishbabariya/relq/internal/debug"
	"github.com/satishbabariya/relq/internal/pool"
)

// session is an engine together with the resources of its backend.
type session struct {
	*engine.Engine
	closers []func() error
}

func (s *session) Close() error {
	errs := []error{s.Engine.Close()}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	s := &session{}
	backend, updater, err := openBackend(ctx, cfg.Datasource, s)
	if err != nil {
		for _, c := range s.closers {
			_ = c()
		}
		return nil, err
	}

	e, err := engine.New(backend,
		engine.WithLogger(debug.Logger()),
		engine.WithParallelism(cfg.Engine.Parallelism),
		engine.WithQueryCache(cfg.Engine.CacheSize, cfg.Engine.CacheTTL),
		engine.WithUpdater(updater),
	)
	if err != nil {
		for _, c := range s.closers {
			_ = c()
		}
		return nil, err
	}
	s.Engine = e
	return s, nil
}

func openBackend(ctx context.Context, ds config.DatasourceConfig, s *session) (engine.Backend, engine.Updater, error) {
	switch strings.ToLower(ds.Provider) {
	case "csv":
		b, err := csvfile.New(afero.NewOsFs(), ds.Path)
		if err != nil {
			return nil, engine.Updater{}, err
		}
		s.closers = append(s.closers, b.Close)
		if ds.Watch {
			if err := b.Watch(); err != nil {
				return nil, engine.Updater{}, err
			}
		}
		return b, engine.Updater{}, nil

	case "memory":
		b, err := loadMemory(ctx, afero.NewOsFs(), ds.Path)
		if err != nil {
			return nil, engine.Updater{}, err
		}
		return b, b.Updater(), nil

	case "sqlite", "sqlite3", "postgresql", "postgres", "mysql":
		if ds.DSN == "" {
			return nil, engine.Updater{}, fmt.Errorf("datasource %s needs a dsn", ds.Provider)
		}
		b, err := sqldb.Open(ctx, ds.Provider, ds.DSN, pool.DefaultConfig())
		if err != nil {
			return nil, engine.Updater{}, err
		}
		s.closers = append(s.closers, b.Close)
		return b, b.Updater(), nil
	}
	return nil, engine.Updater{}, fmt.Errorf("unsupported provider %q", ds.Provider)
}

// loadMemory copies the CSV files of dir into a writable in-memory backend.
func loadMemory(ctx context.Context, fs afero.Fs, dir string) (*memory.Backend, error) {
	src, err := csvfile.New(fs, dir)
	if err != nil {
		return nil, err
	}
	s, err := src.MainSchema(ctx)
	if err != nil {
		return nil, err
	}
	mem := memory.New(s)
	for _, t := range s.Tables() {
		ds, err := src.Materialize(ctx, t, t.Columns(), 1, -1)
		if err != nil {
			return nil, err
		}
		rows, err := dataset.CollectValues(ds)
		if err != nil {
			return nil, err
		}
		if err := mem.Load(t.Name(), rows...); err != nil {
			return nil, err
		}
	}
	return mem, nil
}
