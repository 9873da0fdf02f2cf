// Package cli wires configuration into the running services shared by the
// libris commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/libris/internal/config"
	"github.com/aretw0/libris/internal/logging"
	"github.com/aretw0/libris/internal/runtime"
	"github.com/aretw0/libris/pkg/adapters/bus"
	"github.com/aretw0/libris/pkg/adapters/cache"
	"github.com/aretw0/libris/pkg/adapters/file"
	"github.com/aretw0/libris/pkg/adapters/gormstore"
	"github.com/aretw0/libris/pkg/adapters/mail"
	"github.com/aretw0/libris/pkg/adapters/memory"
	"github.com/aretw0/libris/pkg/adapters/qr"
	"github.com/aretw0/libris/pkg/adapters/redis"
	"github.com/aretw0/libris/pkg/capability"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/observability"
	"github.com/aretw0/libris/pkg/persistence/middleware"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/aretw0/libris/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// App holds the services built from a configuration.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	DB       *gorm.DB
	Entities *gormstore.Store
	Sessions *session.Manager
	Engine   *runtime.Engine
	Registry *prometheus.Registry

	// Worker renders QR codes published by the engine when bot.async_qr is set.
	Worker *bus.Worker

	closers []io.Closer
}

// Option customises Build.
type Option func(*options)

type options struct {
	logger *slog.Logger
	hooks  []domain.LifecycleHooks
	mailer ports.Mailer
}

// WithLogger overrides the logger derived from the log section.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHooks adds lifecycle hooks to the engine.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(o *options) { o.hooks = append(o.hooks, h) }
}

// WithMailer overrides the mailer derived from the smtp section.
func WithMailer(m ports.Mailer) Option {
	return func(o *options) { o.mailer = m }
}

// NewLogger builds the application logger. A configured file wins over stderr.
func NewLogger(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if cfg.File == "" {
		return logging.New(level), nopCloser, nil
	}
	logger, closer := logging.NewFile(level, logging.Rotation{
		Path:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   true,
	})
	return logger, closer, nil
}

// OpenDatabase opens and migrates the entity database and seeds the roles.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*gorm.DB, *gormstore.Store, error) {
	dbCfg := gormstore.DefaultConfig()
	dbCfg.Driver = cfg.Driver
	dbCfg.DSN = cfg.DSN
	if cfg.MaxIdleConns > 0 {
		dbCfg.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns > 0 {
		dbCfg.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime > 0 {
		dbCfg.ConnMaxLifetime = cfg.ConnMaxLifetime
	}

	db, err := gormstore.Open(dbCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := gormstore.Migrate(ctx, db); err != nil {
		return nil, nil, err
	}
	store := gormstore.New(db)
	if err := gormstore.SeedRoles(ctx, store); err != nil {
		return nil, nil, err
	}
	return db, store, nil
}

// OpenSessions builds the session store named by cfg.Backend, wrapped in
// encryption when a key is configured. The locker is nil for single-process backends.
func OpenSessions(cfg config.SessionConfig, db *gorm.DB) (ports.StateStore, ports.DistributedLocker, io.Closer, error) {
	var (
		store  ports.StateStore
		locker ports.DistributedLocker
		closer io.Closer = nopCloser
	)
	switch cfg.Backend {
	case "memory", "":
		store = memory.NewStore()
	case "file":
		store = file.New(cfg.Dir)
	case "cache":
		store = cache.NewStore(cfg.TTL, 10*time.Minute)
	case "redis":
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redis.WithTTL(cfg.TTL),
			redis.WithPrefix(cfg.Prefix),
		)
		store, locker, closer = rs, redis.NewLocker(rs.Client(), cfg.Prefix), rs
	case "sql":
		if db == nil {
			return nil, nil, nil, errors.New("sql sessions need an open database")
		}
		store = gormstore.NewSessionStore(db)
	default:
		return nil, nil, nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}

	if cfg.EncryptionKey != "" {
		seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte(cfg.EncryptionKey)})
		if err != nil {
			_ = closer.Close()
			return nil, nil, nil, err
		}
		store = seal(store)
	}
	return store, locker, closer, nil
}

// NewMailer returns an SMTP mailer, or one that only logs when no host is set.
func NewMailer(cfg config.SMTPConfig, logger *slog.Logger) ports.Mailer {
	if cfg.Host == "" {
		return mail.NewLog(logger)
	}
	return mail.NewSMTP(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From, cfg.SenderName)
}

// Build wires every service. Close releases them.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger, closer, err := NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		app.Logger = logger
		app.closers = append(app.closers, closer)
	}

	fail := func(err error) (*App, error) {
		_ = app.Close()
		return nil, err
	}

	db, entities, err := OpenDatabase(ctx, cfg.Database, app.Logger)
	if err != nil {
		return fail(err)
	}
	app.DB, app.Entities = db, entities
	if sqlDB, err := db.DB(); err == nil {
		app.closers = append(app.closers, sqlDB)
	}

	store, locker, closer, err := OpenSessions(cfg.Session, db)
	if err != nil {
		return fail(err)
	}
	app.closers = append(app.closers, closer)

	managerOpts := []session.Option{session.WithLogger(app.Logger)}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker), session.WithLockTTL(cfg.Session.LockTTL))
	}
	app.Sessions = session.NewManager(store, managerOpts...)

	metrics, err := observability.NewMetrics(app.Registry)
	if err != nil {
		return fail(err)
	}

	mailer := o.mailer
	if mailer == nil {
		mailer = NewMailer(cfg.SMTP, app.Logger)
	}

	var attacher ports.QRAttacher = qr.NewAttacher(qr.NewGenerator(), entities)
	if cfg.Bot.AsyncQR {
		ch := bus.NewGoChannel()
		app.Worker = bus.NewWorker(ch, attacher, bus.WithLogger(app.Logger))
		attacher = bus.NewPublisher(ch)
		app.closers = append(app.closers, ch)
	}

	engineOpts := []runtime.Option{
		runtime.WithLogger(app.Logger),
		runtime.WithBotLink(cfg.Bot.Link),
		runtime.WithPageSize(cfg.Bot.PageSize),
		runtime.WithMailer(mailer),
		runtime.WithQRAttacher(attacher),
		runtime.WithHooks(metrics.Hooks()),
		runtime.WithHooks(observability.LogHooks(app.Logger)),
	}
	for _, h := range o.hooks {
		engineOpts = append(engineOpts, runtime.WithHooks(h))
	}
	resolver := capability.NewResolver(entities,
		capability.WithLogger(app.Logger),
		capability.WithTTL(cfg.Bot.IdentityTTL),
	)
	app.Engine = runtime.New(entities, app.Sessions, resolver, engineOpts...)

	app.Logger.Debug("services ready",
		"db_driver", cfg.Database.Driver,
		"session_backend", cfg.Session.Backend,
		"async_qr", cfg.Bot.AsyncQR,
	)
	return app, nil
}

// Close releases what Build opened, last first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser io.Closer = closerFunc(func() error { return nil })
