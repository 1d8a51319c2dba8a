// Package app собирает процесс сервера из конфигурации: логирование,
// трассировка, хранилище, шина событий, сессия и HTTP-шлюз.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/voxelmem/internal/api"
	"github.com/annel0/voxelmem/internal/auth"
	"github.com/annel0/voxelmem/internal/config"
	"github.com/annel0/voxelmem/internal/console"
	"github.com/annel0/voxelmem/internal/eventbus"
	"github.com/annel0/voxelmem/internal/logging"
	"github.com/annel0/voxelmem/internal/memory"
	"github.com/annel0/voxelmem/internal/metrics"
	"github.com/annel0/voxelmem/internal/observability"
	"github.com/annel0/voxelmem/internal/session"
	"github.com/annel0/voxelmem/internal/storage"
	"github.com/annel0/voxelmem/internal/world"
)

// App владеет всеми компонентами процесса
type App struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *session.Registry
	session  *session.Session
	server   *api.RestServer
	console  *console.Console
	exporter *eventbus.MetricsExporter
	listener eventbus.Subscription

	shutdownTelemetry func(context.Context) error
}

// Options: зависимости, которые удобно подменять в тестах
type Options struct {
	Registry prometheus.Registerer // nil: prometheus.DefaultRegisterer
	Gatherer prometheus.Gatherer   // nil: prometheus.DefaultGatherer
	Console  io.Writer             // куда консоль печатает результаты; nil: без консоли
}

// ConfigureLogging применяет раздел logging конфигурации
func ConfigureLogging(cfg config.LoggingConfig) error {
	consoleLevel, err := logging.ParseLevel(cfg.ConsoleLevel)
	if err != nil {
		return err
	}
	fileLevel, err := logging.ParseLevel(cfg.FileLevel)
	if err != nil {
		return err
	}
	logging.Configure(logging.Options{
		Dir:          cfg.Dir,
		ConsoleLevel: consoleLevel,
		FileLevel:    fileLevel,
	})
	return nil
}

// SessionOptions переводит конфигурацию в параметры сессии
func SessionOptions(cfg *config.Config) (session.Options, error) {
	polarity, err := memory.ParsePolarity(cfg.Memory.Polarity)
	if err != nil {
		return session.Options{}, err
	}
	worldCfg := world.Config{MinY: cfg.World.MinY, MaxY: cfg.World.MaxY}
	if cfg.World.Terrain {
		worldCfg.Terrain = world.NewTerrainGenerator(cfg.World.Seed)
	}
	return session.Options{
		World: worldCfg,
		Layout: memory.Layout{
			ZStride:    cfg.Memory.ZStride,
			WriteDelta: cfg.Memory.WriteDelta,
			Polarity:   polarity,
		},
		TPS:              cfg.Bridge.TPS,
		FeedbackBuffer:   cfg.Bridge.FeedbackBuffer,
		AutosaveInterval: cfg.Storage.AutosaveInterval(),
	}, nil
}

// New создаёт и запускает сессию. HTTP-шлюз создан, но не слушает порт
// до вызова Run.
func New(ctx context.Context, cfg *config.Config, opts Options) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	a = &App{
		cfg:      cfg,
		logger:   logging.GetServerLogger(),
		registry: session.NewRegistry(),
	}
	// При ошибке освобождаем то, что успели создать
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: cfg.Telemetry.Service,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации трассировки: %w", err)
		}
		a.shutdownTelemetry = shutdown
	}

	sessOpts, err := SessionOptions(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Server.MetricsEnabled {
		sessOpts.Metrics = metrics.New(opts.Registry)
	}

	store, err := storage.Open(ctx, storage.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		Redis: storage.RedisConfig{
			Addr:      cfg.Storage.RedisAddr,
			Password:  cfg.Storage.RedisPassword,
			DB:        cfg.Storage.RedisDB,
			KeyPrefix: cfg.Storage.KeyPrefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия хранилища: %w", err)
	}
	sessOpts.Storage = store

	bus, err := openBus(cfg.EventBus)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	sessOpts.Bus = bus

	if cfg.Server.MetricsEnabled {
		a.exporter = eventbus.NewMetricsExporter(bus, opts.Registry)
		if err := a.exporter.Start(ctx); err != nil {
			bus.Close()
			if store != nil {
				store.Close()
			}
			return nil, err
		}
	}
	if a.listener, err = eventbus.StartLoggingListener(ctx, bus); err != nil {
		bus.Close()
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	// Дальше хранилище и шина принадлежат сессии
	sess, err := session.New(sessOpts)
	if err != nil {
		bus.Close()
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	if err := sess.Start(ctx); err != nil {
		sess.Stop(context.Background())
		return nil, err
	}
	a.session = sess
	a.registry.Add(sess)

	var signer *auth.Signer
	if cfg.Auth.JWTSecret != "" {
		if signer, err = auth.NewSigner(cfg.Auth.JWTSecret); err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
	}

	a.server, err = api.NewRestServer(api.Config{
		Port:       ":" + strconv.Itoa(cfg.Server.GetHTTPPort()),
		Backend:    sess,
		Signer:     signer,
		RPS:        cfg.RateLimit.RPS,
		Burst:      cfg.RateLimit.Burst,
		Registerer: opts.Registry,
		Gatherer:   opts.Gatherer,
	})
	if err != nil {
		return nil, err
	}

	if opts.Console != nil {
		a.console = console.New(sess, opts.Console)
	}

	a.logger.Info("Сессия %s: высота %d..%d, ёмкость региона %d байт",
		sess.ID(), cfg.World.MinY, cfg.World.MaxY,
		memory.NewGeometry(cfg.World.MinY, cfg.World.MaxY, world.ChunkWidth, sess.Layout()).Capacity())
	return a, nil
}

func openBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	}
	bus, err := eventbus.NewJetStreamBus(eventbus.JetStreamConfig{
		URL:       cfg.URL,
		Stream:    cfg.Stream,
		Prefix:    cfg.Subject,
		Retention: time.Duration(cfg.Retention) * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к NATS: %w", err)
	}
	return bus, nil
}

// Session возвращает сессию процесса
func (a *App) Session() *session.Session {
	return a.session
}

// Server возвращает HTTP-шлюз
func (a *App) Server() *api.RestServer {
	return a.server
}

// Console возвращает консоль оператора (nil, если она не включена)
func (a *App) Console() *console.Console {
	return a.console
}

// Run запускает HTTP-шлюз и блокируется до отмены ctx или ошибки сервера
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			a.logger.Warn("Ошибка остановки HTTP-шлюза: %v", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// Close останавливает сессии (с сохранением регионов) и вспомогательные компоненты
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.registry.StopAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.listener != nil {
		a.listener.Unsubscribe()
	}
	if a.exporter != nil {
		a.exporter.Stop()
	}
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.logger.Info("Сервер остановлен")
	return errors.Join(errs...)
}
