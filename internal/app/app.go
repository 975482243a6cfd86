package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"NewsBroadcaster/internal/config"
	"NewsBroadcaster/internal/distiller"
	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
	"NewsBroadcaster/internal/infrastructure/httpapi"
	"NewsBroadcaster/internal/infrastructure/llm"
	"NewsBroadcaster/internal/infrastructure/metrics"
	"NewsBroadcaster/internal/infrastructure/scheduler"
	"NewsBroadcaster/internal/infrastructure/serial"
	"NewsBroadcaster/internal/infrastructure/sms"
	"NewsBroadcaster/internal/infrastructure/status"
	"NewsBroadcaster/internal/infrastructure/storage"
	"NewsBroadcaster/internal/infrastructure/telegram"
	"NewsBroadcaster/internal/logging"
	"NewsBroadcaster/internal/ports"
	"NewsBroadcaster/internal/usecase"
)

// ErrStatusLookupDisabled is returned when no carrier status API is configured.
var ErrStatusLookupDisabled = errors.New("delivery status lookup is not configured")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	repo       *storage.Repository
	metrics    *metrics.Metrics
	dispatcher *gateway.Dispatcher
	modem      *gateway.Modem
	serial     *serial.Driver
	status     ports.StatusLookup

	pipeline  *usecase.Pipeline
	jobs      *usecase.Jobs
	scheduler *usecase.Scheduler
}

// New opens the delivery store and builds every adapter the configuration enables.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := storage.Open(ctx, storage.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Migrate:      cfg.Database.Migrate,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &Application{cfg: cfg, logger: baseLogger, repo: repo, metrics: metrics.New()}

	a.serial = serial.NewDriver(serial.Config{Port: cfg.Gateways.SIM800C.Port, BaudRate: cfg.Gateways.SIM800C.BaudRate})
	a.modem = gateway.NewModem(a.serial, gateway.ModemConfig{
		PollInterval:     cfg.Gateways.SIM800C.PollInterval,
		Timeout:          cfg.Gateways.SIM800C.Timeout,
		TimeoutIsFailure: cfg.Gateways.SIM800C.TimeoutIsFailure,
	}, baseLogger.With("component", "gateway.sim800c"))

	a.dispatcher = gateway.NewDispatcher(gateway.DispatcherDeps{
		Logger:   baseLogger.With("component", "dispatcher"),
		Observer: a.metrics,
	}, a.modem)
	if token := cfg.Gateways.IPROG.APIToken; token != "" {
		a.dispatcher.Register(sms.NewIPROG(sms.IPROGConfig{
			Endpoint: cfg.Gateways.IPROG.Endpoint,
			APIToken: token,
			Timeout:  cfg.Gateways.IPROG.Timeout,
		}, nil, baseLogger.With("component", "gateway.iprog")))
	}
	if key := cfg.Gateways.Semaphore.APIKey; key != "" {
		a.dispatcher.Register(sms.NewSemaphore(sms.SemaphoreConfig{
			Endpoint:         cfg.Gateways.Semaphore.Endpoint,
			PriorityEndpoint: cfg.Gateways.Semaphore.PriorityEndpoint,
			APIKey:           key,
			SenderName:       cfg.Gateways.Semaphore.SenderName,
			Priority:         cfg.Gateways.Semaphore.Priority,
			Timeout:          cfg.Gateways.Semaphore.Timeout,
		}, nil, baseLogger.With("component", "gateway.semaphore")))
	}

	var generator ports.TextGenerator
	if cfg.LLM.APIKey != "" {
		client, err := llm.NewClient(llm.Config{
			BaseURL:   cfg.LLM.BaseURL,
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			Timeout:   cfg.LLM.Timeout,
			MaxTokens: cfg.LLM.MaxTokens,
		}, nil)
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("build llm client: %w", err)
		}
		generator = client
	} else {
		baseLogger.Warn("llm api key missing; article broadcasts are disabled")
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID).WithAPIBase(tg.APIBase)
	}

	if ib := cfg.Status.Infobip; ib.BaseURL != "" && ib.APIKey != "" {
		a.status = status.NewInfobip(ib.BaseURL, ib.APIKey, nil)
	}

	broadcaster := usecase.NewBroadcaster(usecase.BroadcasterDeps{
		Recipients: repo,
		Log:        repo,
		Sender:     a.dispatcher,
		Throttle:   throttleFrom(cfg.Throttle),
		Logger:     baseLogger.With("component", "broadcaster"),
	})

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Articles:     repo,
		Distiller:    distiller.New(generator, cfg.LLM.Language, baseLogger.With("component", "distiller")),
		Broadcaster:  broadcaster,
		Notifier:     notifier,
		Stages:       a.metrics,
		Logger:       baseLogger.With("component", "pipeline"),
		ScoreQuality: cfg.Quality.Enabled,
	})

	a.jobs = usecase.NewJobs(baseLogger.With("component", "jobs"))
	a.scheduler = usecase.NewScheduler(
		scheduler.NewCronScheduler(cfg.Scheduler.Location()),
		a.pipeline,
		baseLogger.With("component", "scheduler"),
	)

	return a, nil
}

// Pipeline exposes the broadcast workflows to the CLI.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// DefaultGateway is the gateway used when a command names none.
func (a *Application) DefaultGateway() gateway.Kind {
	kind, err := a.cfg.DefaultGateway()
	if err != nil {
		return gateway.IPROG
	}
	return kind
}

// Stats aggregates the delivery log.
func (a *Application) Stats(ctx context.Context) (domain.DeliveryStats, error) {
	return a.repo.DeliveryStats(ctx)
}

// LookupStatus asks the carrier for the delivery status of one message id.
func (a *Application) LookupStatus(ctx context.Context, messageID string) (domain.StatusReport, error) {
	if a.status == nil {
		return domain.StatusReport{}, ErrStatusLookupDisabled
	}
	return a.status.Lookup(ctx, messageID)
}

// RecentStatuses lists the newest carrier log entries.
func (a *Application) RecentStatuses(ctx context.Context, limit int) ([]domain.StatusReport, error) {
	if a.status == nil {
		return nil, ErrStatusLookupDisabled
	}
	return a.status.Recent(ctx, limit)
}

// ModemStatus probes the SIM800C bridge and lists the serial ports the OS reports.
func (a *Application) ModemStatus(ctx context.Context) (gateway.ModemStatus, []string) {
	available, err := a.serial.Ports()
	if err != nil {
		a.logger.Warn("list serial ports", "error", err)
	}
	return a.modem.Status(ctx), available
}

// Serve runs the HTTP API and the announcement schedules until ctx ends.
// Schedules are reloaded whenever the config file changes.
func (a *Application) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.scheduler.Apply(schedulesFrom(a.cfg)); err != nil {
		a.logger.Warn("some schedules were skipped", "error", err)
	}
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	if a.cfg.Path != "" {
		go func() {
			err := config.Watch(ctx, a.cfg.Path, a.logger.With("component", "config"), func(cfg config.Config) {
				if err := a.scheduler.Apply(schedulesFrom(cfg)); err != nil {
					a.logger.Warn("some schedules were skipped", "error", err)
				}
			})
			if err != nil {
				a.logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	if a.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.Deps{
		Pipeline:       a.pipeline,
		Jobs:           a.jobs,
		Stats:          a.repo,
		Metrics:        a.metrics.Handler(),
		DefaultGateway: a.DefaultGateway(),
		Logger:         a.logger.With("component", "httpapi"),
	})
	serveErr := httpapi.NewServer(a.cfg.HTTP.Addr, router, a.logger).Run(ctx)

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer stop()
	var errs []error
	if serveErr != nil {
		errs = append(errs, serveErr)
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}
	if err := a.jobs.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop jobs: %w", err))
	}
	return errors.Join(errs...)
}

// Close releases the delivery store.
func (a *Application) Close() error {
	return a.repo.Close()
}

func throttleFrom(cfg config.ThrottleConfig) ports.Throttle {
	if cfg.RatePerSecond > 0 {
		return usecase.NewTokenBucket(cfg.RatePerSecond, cfg.Burst)
	}
	return usecase.FixedDelay{Delay: cfg.Delay}
}

func schedulesFrom(cfg config.Config) []usecase.Schedule {
	fallback, err := cfg.DefaultGateway()
	if err != nil {
		fallback = gateway.IPROG
	}

	out := make([]usecase.Schedule, 0, len(cfg.Schedules))
	for _, s := range cfg.Schedules {
		kind := fallback
		if s.Gateway != "" {
			if parsed, err := gateway.ParseKind(s.Gateway); err == nil {
				kind = parsed
			}
		}
		out = append(out, usecase.Schedule{
			Name:       s.Name,
			Cron:       s.Cron,
			Message:    s.Message,
			Gateway:    kind,
			Recipients: s.Recipients,
		})
	}
	return out
}
