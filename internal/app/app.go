package app

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/appetiteclub/posconsole/internal/backend"
	"github.com/appetiteclub/posconsole/internal/console"
	"github.com/appetiteclub/posconsole/internal/health"
	"github.com/appetiteclub/posconsole/internal/journal"
	"github.com/appetiteclub/posconsole/internal/mongo"
	"github.com/appetiteclub/posconsole/pkg"
	"github.com/appetiteclub/posconsole/pkg/event"
	"github.com/aquamarinepk/aqm"
	aqmevents "github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/fileserver"
	aqmmw "github.com/aquamarinepk/aqm/middleware"
	"github.com/aquamarinepk/aqm/template"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	AppName    = "posconsole"
	AppVersion = "0.1.0"
)

const (
	defaultBackendURL     = "http://localhost:5000/api"
	defaultBackendTimeout = 15 * time.Second
)

// App encapsulates the admin console application
type App struct {
	config *aqm.Config
	logger aqm.Logger
	assets fs.FS
	micro  *aqm.Micro
}

// New creates the console application. assets holds the templates and
// static files.
func New(config *aqm.Config, logger aqm.Logger, assets fs.FS) (*App, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &App{
		config: config,
		logger: logger,
		assets: assets,
	}, nil
}

// Initialize sets up all dependencies and components
func (a *App) Initialize(ctx context.Context) error {
	client := a.backendClient()
	settings := console.SettingsFromConfig(a.config)

	fileServer := fileserver.New(a.assets, fileserver.WithLogger(a.logger))
	tmplMgr := template.NewManager(a.assets, template.WithLogger(a.logger))

	lifecycles := []interface{}{tmplMgr}
	probes := []health.Probe{{Name: "backend", Check: client.Ping}}

	sessions, err := a.sessionStore()
	if err != nil {
		return err
	}
	lifecycles = append(lifecycles, sessions)
	if redisStore, ok := sessions.(*console.RedisSessionStore); ok {
		probes = append(probes, health.Probe{Name: "sessions", Check: redisStore.Ping})
	}

	var settlements journal.Journal = journal.NewMemoryJournal()
	if a.config.GetStringOrDef("journal.backend", "memory") == "mongo" {
		repo := mongo.NewSettlementRepo(a.config, a.logger)
		settlements = repo
		lifecycles = append(lifecycles, repo)
		probes = append(probes, health.Probe{Name: "journal", Check: repo.Ping})
	}

	// Settlement events are optional; the console works without NATS.
	publisher, closer, err := a.eventPublisher(ctx)
	if err != nil {
		return err
	}
	if closer != nil {
		lifecycles = append(lifecycles, aqm.LifecycleHooks{
			OnStop: func(context.Context) error { return closer() },
		})
	}

	uploads := console.NewUploadTracker(settings.UploadTimeout, a.logger)
	lifecycles = append(lifecycles, aqm.LifecycleHooks{OnStop: uploads.Stop})

	handler := console.NewHandler(console.HandlerDeps{
		Templates: tmplMgr,
		Backend:   client,
		Sessions:  sessions,
		Journal:   settlements,
		Publisher: publisher,
		Uploads:   uploads,
	}, settings, a.logger)

	healthServer := health.NewServer(AppName, a.logger, probes...)
	lifecycles = append(lifecycles, healthServer)

	stack := aqmmw.DefaultStack(aqmmw.StackOptions{
		Logger: a.logger,
	})
	stack = append(stack, chimw.NoCache)

	options := []aqm.Option{
		aqm.WithConfig(a.config),
		aqm.WithLogger(a.logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithRouterConfigurator(func(mux *chi.Mux) {
			aqm.RedirectNotFound(mux, "/")
		}),
		aqm.WithHTTPServerModules("web.port", fileServer, handler),
		aqm.WithGRPCServerModules("grpc.port", healthServer),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(AppName),
	}

	a.micro = aqm.NewMicro(options...)
	return nil
}

func (a *App) backendClient() *backend.Client {
	timeout := defaultBackendTimeout
	if d, err := time.ParseDuration(a.config.GetStringOrDef("backend.timeout", "")); err == nil && d > 0 {
		timeout = d
	}

	return backend.NewClient(
		a.config.GetStringOrDef("backend.url", defaultBackendURL),
		backend.WithTimeout(timeout),
		backend.WithLogger(a.logger),
	)
}

func (a *App) eventPublisher(ctx context.Context) (aqmevents.Publisher, func() error, error) {
	natsURL, _ := a.config.GetString("nats.url")
	if natsURL == "" {
		return nil, nil, nil
	}

	if a.config.GetStringOrDef("nats.stream.enabled", "false") == "true" {
		maxAge, err := time.ParseDuration(a.config.GetStringOrDef("nats.stream.max_age", "168h"))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid nats.stream.max_age: %w", err)
		}
		stream, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
			URL:        natsURL,
			Name:       AppName,
			StreamName: a.config.GetStringOrDef("nats.stream.name", event.PaymentsStream),
			Subjects:   []string{event.PaymentsTopic},
			MaxAge:     maxAge,
		})
		if err != nil {
			return nil, nil, err
		}
		a.logger.Infof("Publishing settlement events to stream on %s", natsURL)
		return stream, stream.Close, nil
	}

	publisher, err := pkg.NewNATSPublisher(natsURL, AppName)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Infof("Publishing settlement events to %s", natsURL)
	return publisher, publisher.Close, nil
}

func (a *App) sessionStore() (console.SessionStore, error) {
	switch store := a.config.GetStringOrDef("auth.session.store", "memory"); store {
	case "memory":
		return console.NewMemorySessionStore(), nil
	case "redis":
		addr := a.config.GetStringOrDef("redis.addr", "localhost:6379")
		return console.NewRedisSessionStore(addr, AppName, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", store)
	}
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	if a.micro == nil {
		return fmt.Errorf("%s not initialized", AppName)
	}
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	// Lifecycle cleanup is handled by aqm.Micro
	return nil
}
