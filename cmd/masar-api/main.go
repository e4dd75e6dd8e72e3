// README: Entry point; loads config, wires services and runs the HTTP server until signalled.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"masar/internal/config"
	httptransport "masar/internal/http"
	"masar/internal/http/middleware"
	"masar/internal/infra"
	"masar/internal/logging"
	"masar/internal/metrics"
	"masar/internal/modules/assistant"
	"masar/internal/modules/location"
	"masar/internal/modules/notify"
	"masar/internal/modules/parcel"
	"masar/internal/modules/payment"
	"masar/internal/modules/pricing"
	"masar/internal/modules/profile"
	"masar/internal/modules/tariff"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.RegisterDefault()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	var fbApp *firebase.App
	if cfg.Auth.Mode == config.AuthFirebase || cfg.Push.Enabled {
		fbApp, err = infra.NewFirebaseApp(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentialsFile)
		if err != nil {
			logger.Fatal("firebase init failed", zap.Error(err))
		}
	}

	var verifier infra.TokenVerifier
	switch cfg.Auth.Mode {
	case config.AuthFirebase:
		verifier, err = infra.NewFirebaseVerifier(ctx, fbApp)
		if err != nil {
			logger.Fatal("firebase auth init failed", zap.Error(err))
		}
	case config.AuthJWT:
		verifier = infra.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	}

	var publisher parcel.Publisher = infra.NopPublisher{}
	switch cfg.Events.Backend {
	case config.EventsRedis:
		publisher = infra.NewRedisPublisher(redisClient, "masar:")
	case config.EventsAMQP:
		amqpPub, err := infra.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			logger.Fatal("amqp init failed", zap.Error(err))
		}
		defer amqpPub.Close()
		publisher = amqpPub
	}

	settingsStore := pricing.NewStore(dbPool)
	tariffStore := tariff.NewStore(dbPool)
	snapshots := pricing.NewCachedSource(pricing.Loader{Settings: settingsStore, Rules: tariffStore}, redisClient, logger)
	pricingSvc := pricing.NewService(pricing.ServiceDeps{
		Source:   snapshots,
		Settings: settingsStore,
		Rules:    tariffStore,
		Cache:    snapshots,
		Logger:   logger,
	})

	profileSvc := profile.NewService(profile.NewStore(dbPool))

	renderer, err := newRenderer(cfg, dbPool, logger)
	if err != nil {
		logger.Fatal("notification templates init failed", zap.Error(err))
	}
	channels := []notify.Channel{}
	if cfg.Email.Host != "" {
		channels = append(channels, notify.NewEmailChannel(notify.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			Timeout:  cfg.Email.Timeout,
		}))
	}
	if cfg.WhatsApp.Enabled {
		channels = append(channels, notify.NewWhatsAppChannel(notify.WhatsAppConfig{
			GraphURL: cfg.WhatsApp.GraphURL,
			Token:    cfg.WhatsApp.Token,
			PhoneID:  cfg.WhatsApp.PhoneID,
			Timeout:  cfg.WhatsApp.Timeout,
		}))
	}
	if cfg.Push.Enabled {
		fcm, err := infra.NewMessaging(ctx, fbApp)
		if err != nil {
			logger.Fatal("firebase messaging init failed", zap.Error(err))
		}
		channels = append(channels, notify.NewPushChannel(fcm))
	}
	notifier := notify.NewNotifier(notify.NotifierDeps{
		Dispatcher: notify.NewDispatcher(renderer, logger, notify.DefaultSendTimeout, channels...),
		Contacts:   profileSvc,
		Admin: notify.Recipient{
			Name:     cfg.Admin.Name,
			Email:    cfg.Admin.Email,
			Phone:    cfg.Admin.Phone,
			Language: cfg.Admin.Language,
		},
		Logger: logger,
		Async:  true,
	})
	defer notifier.Wait()

	var geocoder location.Geocoder
	if cfg.Maps.APIKey != "" {
		geocoder, err = location.NewMapsGeocoder(cfg.Maps.APIKey, cfg.Maps.Region)
		if err != nil {
			logger.Fatal("maps init failed", zap.Error(err))
		}
	}

	parcelSvc := parcel.NewService(parcel.ServiceDeps{
		Store:     parcel.NewPostgresStore(dbPool),
		Pricing:   snapshots,
		Notifier:  notifier,
		Publisher: publisher,
		Geocoder:  geocoder,
		Logger:    logger,
	})

	paymentSvc := payment.NewService(payment.ServiceDeps{
		Parcels: parcelSvc,
		Gateway: payment.NewThawani(payment.ThawaniConfig{
			APIURL:         cfg.Payment.APIURL,
			CheckoutURL:    cfg.Payment.CheckoutURL,
			SecretKey:      cfg.Payment.SecretKey,
			PublishableKey: cfg.Payment.PublishableKey,
			Timeout:        cfg.Payment.Timeout,
		}),
		Settings:      pricingSvc,
		Contacts:      profileSvc,
		SuccessURL:    cfg.Payment.SuccessURL,
		CancelURL:     cfg.Payment.CancelURL,
		WebhookSecret: cfg.Payment.WebhookSecret,
		Logger:        logger,
	})

	var model assistant.Model
	if cfg.Assistant.GeminiKey != "" {
		gemini, err := assistant.NewGemini(ctx, cfg.Assistant.GeminiKey)
		if err != nil {
			logger.Fatal("gemini init failed", zap.Error(err))
		}
		defer gemini.Close()
		model = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set; assistant disabled")
	}
	assistantSvc := assistant.NewService(assistant.ServiceDeps{
		Quota:   assistant.NewStore(dbPool, cfg.Assistant.MonthlyQuota),
		Model:   model,
		Tracker: parcelSvc,
		Logger:  logger,
	})

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Verifier:  verifier,
		Logger:    logger,
		Limiter:   middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Pricing:   pricingSvc,
		Parcels:   parcelSvc,
		Payments:  paymentSvc,
		Profiles:  profileSvc,
		Assistant: assistantSvc,
		Contact:   notifier,
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}, router, logger)
	if err := server.Run(ctx); err != nil {
		logger.Error("http server stopped", zap.Error(err))
	}
}

// newRenderer layers database overrides over the optional YAML file over the
// built-in defaults.
func newRenderer(cfg config.Config, db *pgxpool.Pool, logger *zap.Logger) (*notify.Renderer, error) {
	sources := []notify.Source{notify.NewStore(db)}
	if cfg.TemplatesFile != "" {
		file, err := notify.LoadYAML(cfg.TemplatesFile)
		if err != nil {
			return nil, err
		}
		sources = append(sources, file)
	}
	return notify.NewRenderer(logger, sources...), nil
}
