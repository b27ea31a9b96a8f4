package chessbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	corechess "github.com/park285/cheese-sparring/internal/chess"
	"github.com/park285/cheese-sparring/internal/chess/openingbook"
	"github.com/park285/cheese-sparring/internal/chess/stockfishapi"
	"github.com/park285/cheese-sparring/internal/chess/uci"
	"github.com/park285/cheese-sparring/internal/config"
	"github.com/park285/cheese-sparring/internal/msgcat"
	svcchess "github.com/park285/cheese-sparring/internal/service/chess"
)

const pingTimeout = 5 * time.Second

type Deps struct {
	Service *svcchess.Service
	Engine  *corechess.Engine
	Store   svcchess.SessionStore
	Repo    svcchess.Repository

	closers []func() error
}

// Close releases the engine, Redis and DB handles in reverse order of creation.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New wires the sparring service from cfg. Redis and Postgres are optional;
// without them sessions and archived games live in process memory.
func New(cfg *config.AppConfig, logger *zap.Logger, opts ...svcchess.Option) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{}
	fail := func(err error) (*Deps, error) {
		_ = deps.Close()
		return nil, err
	}

	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return fail(err)
	}
	deps.Engine = engine
	deps.closers = append(deps.closers, engine.Close)

	// Sessions (Redis optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		ropts, perr := redis.ParseURL(cfg.RedisURL)
		if perr != nil {
			return fail(fmt.Errorf("parse redis url: %w", perr))
		}
		rdb := redis.NewClient(ropts)
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return fail(fmt.Errorf("ping redis: %w", err))
		}
		deps.closers = append(deps.closers, rdb.Close)
		deps.Store = svcchess.NewRedisStore(rdb)
	} else {
		logger.Warn("REDIS_URL not set; sessions are kept in memory")
		deps.Store = svcchess.NewMemoryStore()
	}

	// Repository (DB optional)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := openDB(cfg.DatabaseURL, cfg.DatabaseMigrate)
		if err != nil {
			return fail(err)
		}
		deps.closers = append(deps.closers, db.Close)
		deps.Repo = svcchess.NewRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set; finished games are kept in memory")
		deps.Repo = svcchess.NewMemoryRepository()
	}

	texts, err := msgcat.New(cfg.ChessMessagesDir)
	if err != nil {
		return fail(fmt.Errorf("load messages: %w", err))
	}

	svcCfg := svcchess.Config{
		DefaultPreset: cfg.ChessDefaultPreset,
		SessionTTL:    cfg.ChessSessionTTL,
		HistoryLimit:  cfg.ChessHistoryLimit,
		SearchEnabled: cfg.SearchConfigured(),
	}
	service, err := svcchess.NewService(engine, deps.Store, deps.Repo, texts, svcCfg, logger, opts...)
	if err != nil {
		return fail(err)
	}
	deps.Service = service
	return deps, nil
}

// NewEngine builds the move chooser: a local Stockfish when STOCKFISH_PATH is set,
// otherwise the hosted API when STOCKFISH_API_URL is set, otherwise book and heuristics only.
func NewEngine(cfg *config.AppConfig, logger *zap.Logger) (*corechess.Engine, error) {
	tuning, err := corechess.LoadTuning(cfg.ChessTuningFile)
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}

	searcher, err := newSearcher(cfg, tuning, logger)
	if err != nil {
		return nil, err
	}

	var engineOpts []corechess.Option
	book, err := openingbook.OpenDefault(cfg.ChessPolyglotBook)
	if err != nil {
		if c, ok := searcher.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, fmt.Errorf("open polyglot book: %w", err)
	}
	if book != nil {
		logger.Info("polyglot_book_loaded", zap.String("path", book.Path()))
		engineOpts = append(engineOpts, corechess.WithPolyglot(book))
	}
	return corechess.NewEngine(searcher, tuning, logger, engineOpts...), nil
}

func newSearcher(cfg *config.AppConfig, tuning corechess.Tuning, logger *zap.Logger) (corechess.Searcher, error) {
	switch {
	case cfg.StockfishPath != "":
		pool, err := uci.NewPool(uci.PoolConfig{
			BinaryPath:        cfg.StockfishPath,
			PerOptionCapacity: cfg.StockfishPoolSize,
			Logger:            logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init stockfish pool: %w", err)
		}
		logger.Info("search_backend", zap.String("kind", corechess.SourceUCI), zap.String("path", cfg.StockfishPath))
		return corechess.NewUCISearcher(pool, uci.DefaultOptions()), nil
	case cfg.StockfishAPIURL != "":
		client := stockfishapi.NewClient(cfg.StockfishAPIURL,
			stockfishapi.WithAPIKey(cfg.StockfishAPIKey, cfg.StockfishAPIHost),
			stockfishapi.WithTimeout(tuning.SearchTimeout()),
		)
		logger.Info("search_backend", zap.String("kind", corechess.SourceAPI), zap.String("url", cfg.StockfishAPIURL))
		return corechess.NewAPISearcher(client), nil
	default:
		logger.Warn("no search backend configured; engine plays from book and heuristics")
		return nil, nil
	}
}

func openDB(dsn string, migrate bool) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	// basic pool settings
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if migrate {
		if err := svcchess.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return db, nil
}
