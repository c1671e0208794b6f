package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/campushub/notify/handler"
	"github.com/campushub/notify/modules/notifications"
	"github.com/campushub/notify/pkg/audience"
	"github.com/campushub/notify/pkg/audit"
	"github.com/campushub/notify/pkg/config"
	"github.com/campushub/notify/pkg/email"
	"github.com/campushub/notify/pkg/httpserver"
	"github.com/campushub/notify/pkg/inbox"
	"github.com/campushub/notify/pkg/logger"
	"github.com/campushub/notify/pkg/notification"
	"github.com/campushub/notify/pkg/notifier"
	"github.com/campushub/notify/pkg/pg"
	"github.com/campushub/notify/pkg/preference"
	"github.com/campushub/notify/pkg/queue"
	"github.com/campushub/notify/pkg/ratelimit"
	"github.com/campushub/notify/pkg/redis"
	"github.com/campushub/notify/pkg/requestid"
	"github.com/campushub/notify/pkg/sender"
	"github.com/campushub/notify/pkg/template"
)

type appConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"notifyd"`

	// StorageDriver selects the queue backend: "memory" or "postgres".
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`

	// EmailDriver selects the email transport: "dev" or "postmark".
	EmailDriver string `env:"EMAIL_DRIVER" envDefault:"dev"`
	EmailDevDir string `env:"EMAIL_DEV_DIR" envDefault:"tmp/emails"`

	// RateLimitStore selects the limiter backend: "memory" or "redis".
	// A zero SendRateLimit disables rate limiting entirely.
	RateLimitStore string        `env:"RATE_LIMIT_STORE" envDefault:"memory"`
	SendRateLimit  int           `env:"SEND_RATE_LIMIT" envDefault:"0"`
	SendRateWindow time.Duration `env:"SEND_RATE_WINDOW" envDefault:"1m"`

	WorkerPollInterval time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	WorkerConcurrency  int           `env:"QUEUE_MAX_CONCURRENT" envDefault:"10"`
	WorkerSendTimeout  time.Duration `env:"QUEUE_SEND_TIMEOUT" envDefault:"15s"`
	SchedulerInterval  time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"15s"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Environment, cfg.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	var healthchecks []func(context.Context) error

	// Queue storage.
	var repo queue.Repository
	switch cfg.StorageDriver {
	case "postgres":
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pg.MigrateFS(ctx, pool, queue.MigrationsFS, "migrations", pgCfg, log); err != nil {
			return err
		}
		store, err := queue.NewPostgresStorage(pool)
		if err != nil {
			return err
		}
		repo = store
		healthchecks = append(healthchecks, pg.Healthcheck(pool))
	default:
		repo = queue.NewMemoryStorage()
	}

	// Per-channel send rate limiter.
	var limiter queue.RateLimiter
	if cfg.SendRateLimit > 0 {
		var store ratelimit.Store
		if cfg.RateLimitStore == "redis" {
			var redisCfg redis.Config
			if err := config.Load(&redisCfg); err != nil {
				return err
			}
			client, err := redis.Connect(ctx, redisCfg)
			if err != nil {
				return err
			}
			defer client.Close()
			store = ratelimit.NewRedisStore(client, "notify:ratelimit")
			healthchecks = append(healthchecks, redis.Healthcheck(client))
		} else {
			store = ratelimit.NewMemoryStore()
		}
		var err error
		limiter, err = ratelimit.New(store, cfg.SendRateLimit, cfg.SendRateWindow)
		if err != nil {
			return err
		}
	}

	// Directory and recipient stores. The user directory belongs to the host
	// platform; outside a real integration the service runs on fixtures.
	users, contacts, prefs, templates := fixtures(cfg.Environment)
	resolver, err := audience.NewResolver(users, audience.WithSegments(users), audience.WithLogger(log))
	if err != nil {
		return err
	}

	// In-app feed.
	box := inbox.New(inbox.NewMemoryStorage(), inbox.WithLogger(log))

	// Email transport.
	var mailer email.EmailSender
	if cfg.EmailDriver == "postmark" {
		var emailCfg email.Config
		if err := config.Load(&emailCfg); err != nil {
			return err
		}
		mailer, err = email.NewPostmarkClient(emailCfg)
		if err != nil {
			return err
		}
	} else {
		mailer = email.NewDevSender(cfg.EmailDevDir)
	}

	directory := sender.NewStaticDirectory(contacts)

	// Audit trail.
	auditStore := audit.NewMemoryStore()
	asyncWriter, closeAudit := audit.NewAsyncWriter(auditStore, audit.AsyncOptions{})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeAudit(closeCtx); err != nil {
			log.Warn("audit writer close failed", slog.Any("error", err))
		}
	}()
	trail := audit.NewLogger(asyncWriter, audit.WithErrorLog(log))

	// Queue control shared between the orchestrator and the worker pool.
	control := queue.NewControl()

	worker, err := queue.NewWorker(repo,
		queue.WithControl(control),
		queue.WithRateLimiter(limiter),
		queue.WithPollInterval(cfg.WorkerPollInterval),
		queue.WithMaxConcurrentSends(cfg.WorkerConcurrency),
		queue.WithSendTimeout(cfg.WorkerSendTimeout),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		return err
	}
	worker.RegisterSender(notification.ChannelEmail, sender.NewEmail(mailer, directory))
	worker.RegisterSender(notification.ChannelSMS, sender.NewSMS(sender.NewDevSMSGateway(log), directory))
	worker.RegisterSender(notification.ChannelPush, sender.NewPush(sender.NewDevPushGateway(log), directory))
	worker.RegisterSender(notification.ChannelWebhook, sender.NewWebhook(directory))
	worker.RegisterSender(notification.ChannelInApp, sender.NewInApp(box))

	svc, err := notifier.NewService(repo, resolver, prefs, template.NewResolver(templates), control,
		notifier.WithAudit(trail),
		notifier.WithServiceLogger(log),
	)
	if err != nil {
		return err
	}

	sched, err := notifier.NewScheduler(repo, svc,
		notifier.WithTickInterval(cfg.SchedulerInterval),
		notifier.WithSchedulerLogger(log),
	)
	if err != nil {
		return err
	}

	errHandler := handler.NewErrorHandler(log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(requestid.Middleware)
	r.Use(chimiddleware.Recoverer)
	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, healthchecks...))
	r.Mount("/v1", notifications.Router(notifications.RouterOptions{
		Dispatch: notifications.NewDispatchService(svc, errHandler),
		Queue:    notifications.NewQueueService(svc, sched, errHandler),
		Inbox:    notifications.NewInboxService(box, errHandler),
	}))

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(worker.Run(ctx))
	g.Go(func() error { return sched.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx, r) })

	log.Info("notification service started",
		slog.String("environment", cfg.Environment),
		slog.String("storage", cfg.StorageDriver),
		slog.String("addr", httpCfg.Addr),
	)
	return g.Wait()
}

// fixtures returns the static directory the service runs on without a host
// platform integration. Development gets a populated campus roster so every
// channel can be exercised end to end; other environments start empty.
func fixtures(environment string) (*audience.StaticUserStore, map[string]sender.Contact, preference.Store, template.StaticStore) {
	templates := template.StaticStore{
		"event-reminder": {
			ID:      "event-reminder",
			Subject: "Reminder: {{event}}",
			Body:    "Hi {{name}}, {{event}} starts at {{time}}. See you there!",
		},
		"grade-posted": {
			ID:      "grade-posted",
			Subject: "A grade was posted for {{course}}",
			Body:    "Hi {{name}}, your grade for {{course}} is now available.",
		},
	}

	if environment != "development" {
		return &audience.StaticUserStore{}, nil, preference.StaticStore{}, templates
	}

	users := &audience.StaticUserStore{
		Users: []audience.StaticUser{
			{ID: "alice", Role: notification.RoleStudent},
			{ID: "bob", Role: notification.RoleStudent},
			{ID: "carol", Role: notification.RoleOrganizer},
		},
		Segments: map[string][]string{
			"cs-101": {"alice", "bob"},
		},
	}
	contacts := map[string]sender.Contact{
		"alice": {Email: "alice@example.edu", Phone: "+15550100", PushTokens: []string{"tok-alice"}},
		"bob":   {Email: "bob@example.edu"},
		"carol": {Email: "carol@example.edu", Phone: "+15550102"},
	}
	prefs := preference.StaticStore{
		"bob": {DisabledChannels: []notification.Channel{notification.ChannelPush}},
	}
	return users, contacts, prefs, templates
}
