// Package builder wires configuration into a ready session manager and its
// collaborators.
package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/chessboard-core/internal/archive"
	"github.com/park285/chessboard-core/internal/config"
	"github.com/park285/chessboard-core/internal/movegen"
	"github.com/park285/chessboard-core/internal/msgcat"
	"github.com/park285/chessboard-core/internal/obslog"
	"github.com/park285/chessboard-core/internal/presenter"
	"github.com/park285/chessboard-core/internal/render"
	"github.com/park285/chessboard-core/internal/session"
	"go.uber.org/zap"
)

// Store backends reported by Deps.StoreKind.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBadger = "badger"
)

type Deps struct {
	Config    *config.AppConfig
	Store     session.Store
	StoreKind string
	Manager   *session.Manager
	Archive   *archive.Repository
	Renderer  *render.PNGRenderer
	Catalog   *msgcat.Catalog
	Formatter *presenter.Formatter

	closers []func() error
}

// New builds the dependency graph. REDIS_URL selects the Redis store,
// otherwise STORE_DIR selects Badger, otherwise sessions live in memory.
// DATABASE_URL attaches the Postgres archive.
func New(ctx context.Context, cfg *config.AppConfig) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	d := &Deps{Config: cfg}

	if err := d.openStore(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}

	var opts []session.Option
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		d.Archive = repo
		d.closers = append(d.closers, repo.Close)
		opts = append(opts, session.WithArchiver(repo))
	}

	gen := movegen.New(movegen.Options{
		LegacyDoubleStep: cfg.LegacyPawnDoubleStep,
		PawnCaptures:     cfg.PawnCaptures,
	})
	d.Manager = session.NewManager(d.Store, gen, opts...)
	d.Renderer = render.NewPNGRenderer(cfg.RenderSquareSize)

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Catalog = cat
	d.Formatter = presenter.NewFormatter(cat)

	obslog.L().Info("builder_ready",
		zap.String("store", d.StoreKind),
		zap.Bool("archive", d.Archive != nil),
		zap.Bool("legacy_double_step", cfg.LegacyPawnDoubleStep),
		zap.Bool("pawn_captures", cfg.PawnCaptures),
	)
	return d, nil
}

func (d *Deps) openStore(ctx context.Context) error {
	cfg := d.Config
	switch {
	case cfg.RedisURL != "":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rdb, err := session.DialRedis(dialCtx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		d.closers = append(d.closers, rdb.Close)
		d.Store = session.NewRedisStore(rdb, cfg.SessionTTL)
		d.StoreKind = StoreRedis
	case cfg.StoreDir != "":
		st, err := session.OpenBadgerStore(cfg.StoreDir, cfg.SessionTTL)
		if err != nil {
			return fmt.Errorf("init badger: %w", err)
		}
		d.closers = append(d.closers, st.Close)
		d.Store = st
		d.StoreKind = StoreBadger
	default:
		d.Store = session.NewMemoryStore()
		d.StoreKind = StoreMemory
	}
	return nil
}

// Close releases every opened backend in reverse order.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
