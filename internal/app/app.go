package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/glowcart/storefront/internal/domain/audit"
	"github.com/glowcart/storefront/internal/domain/auth"
	"github.com/glowcart/storefront/internal/domain/coupon"
	"github.com/glowcart/storefront/internal/domain/order"
	"github.com/glowcart/storefront/internal/domain/review"
	"github.com/glowcart/storefront/internal/domain/stats"
	"github.com/glowcart/storefront/internal/handler"
	"github.com/glowcart/storefront/internal/notify"
	"github.com/glowcart/storefront/pkg/health"
	"github.com/glowcart/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer store.Close()

	healthSvc := health.New()
	healthSvc.Register(health.Readiness, cfg.Storage, health.Options{Timeout: 5 * time.Second}, health.PingCheck(store.Pinger))
	healthSvc.Register(health.Liveness, "goroutines", health.Options{}, health.GoroutineCountCheck(10000))
	healthSvc.Register(health.Liveness, "gc_pause", health.Options{}, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()

	// Notifications fan out to SSE subscribers and, optionally, Kafka.
	hub := notify.NewHub()
	publishers := []notify.Publisher{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, lg.Named("kafka"))
		defer func() {
			if err := kp.Close(); err != nil {
				lg.Warn("Close kafka publisher", zap.Error(err))
			}
		}()
		publishers = append(publishers, kp)
		lg.Info("Publishing notifications to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}
	dispatcher := notify.NewDispatcher(publishers...)

	// Domain services.
	recorder := audit.NewRecorder(store.Audit)
	couponValidator := coupon.NewRepoValidator(store.Coupons)
	orderService, err := order.NewService(order.Deps{
		Products:       store.Products,
		Coupons:        couponValidator,
		Orders:         store.Orders,
		Audit:          recorder,
		Notifier:       dispatcher,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	h := handler.New(handler.Deps{
		Products:   store.Products,
		Categories: store.Categories,
		Coupons:    store.Coupons,
		Validator:  couponValidator,
		Orders:     orderService,
		Reviews:    review.NewService(store.Reviews, store.Products, recorder, dispatcher),
		Stats:      stats.NewService(store.Orders, store.Products),
		Tickets:    store.Tickets,
		Audit:      recorder,
		Auth:       auth.NewAuthenticator(store.APIKeys, []byte(cfg.APIKeyPepper)),
		Hub:        hub,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:     cfg.CORS.Origins,
				Headers:     []string{"Content-Type", "Authorization", handler.APIKeyHeader, httpmiddleware.RequestIDHeader},
				Expose:      []string{httpmiddleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
				Credentials: cfg.CORS.AllowCredentials,
				MaxAge:      86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				RPS:   cfg.RateLimit.RPS,
				Burst: cfg.RateLimit.Burst,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m),
			httpmiddleware.LogRequests(),
		),
	}
	// Open notification streams never finish on their own.
	server.RegisterOnShutdown(hub.Close)
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
