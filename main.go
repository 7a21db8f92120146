package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yvetteluxe63/yvetteluxe/common/logger"
	"github.com/yvetteluxe63/yvetteluxe/config"
	"github.com/yvetteluxe63/yvetteluxe/controllers"
	"github.com/yvetteluxe63/yvetteluxe/database"
	"github.com/yvetteluxe63/yvetteluxe/events"
	"github.com/yvetteluxe63/yvetteluxe/middleware"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"github.com/yvetteluxe63/yvetteluxe/payment"
	awspkg "github.com/yvetteluxe63/yvetteluxe/pkg/aws"
	"github.com/yvetteluxe63/yvetteluxe/repository"
	"github.com/yvetteluxe63/yvetteluxe/routes"
	"github.com/yvetteluxe63/yvetteluxe/sender"
	"github.com/yvetteluxe63/yvetteluxe/services"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const logGroup = "/storefront/app"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- AWS + logging ---
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)
	log := logger.Initialize(cfg.Env)
	if awsErr != nil {
		log.Warn("AWS config unavailable, AWS-backed features disabled", zap.Error(awsErr))
	} else if cfg.CloudWatchEnabled {
		if w, err := awspkg.NewCloudWatchLogsWriter(ctx, awsCfg, logGroup, "storefront"); err != nil {
			log.Warn("CloudWatch logs writer init failed (non-fatal)", zap.Error(err))
		} else {
			log = logger.InitializeWithWriter(cfg.Env, w)
		}
	}
	defer func() { _ = log.Sync() }()

	if cfg.UseSecrets && awsErr == nil {
		cfg.ApplySecrets(ctx, awspkg.NewSecretsClient(awsCfg, cfg.SecretsNamespace))
	}
	if cfg.Env != "production" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var metrics *awspkg.MetricsClient
	if awsErr == nil {
		metrics = awspkg.NewMetricsClient(awsCfg, "Storefront", cfg.CloudWatchEnabled)
	}

	// --- durable key/value state ---
	kv, redisClient := openKV(ctx, cfg, awsCfg, awsErr, log)

	// --- relational / document stores ---
	var (
		db       *gorm.DB
		mongoDB  *mongo.Database
		products repository.ProductRepository
		users    repository.UserRepository
		profiles repository.ProfileRepository
	)
	db, err = database.ConnectPostgres(cfg.PostgresDSN(), log, &models.Product{}, &models.User{}, &models.Profile{})
	if err != nil {
		log.Warn("PostgreSQL unavailable, accounts disabled", zap.Error(err))
	} else {
		users = repository.NewGormUserRepository(db)
		profiles = repository.NewGormProfileRepository(db)
		products = repository.NewGormProductRepository(db)
	}
	if cfg.ProductStore == "mongo" {
		mongoDB, err = database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			log.Fatal("MongoDB connection failed", zap.Error(err))
		}
		products = repository.NewMongoProductRepository(mongoDB)
	}
	if products == nil {
		log.Fatal("no product store available", zap.String("product_store", cfg.ProductStore))
	}

	// --- object storage ---
	var storage services.ObjectStorage
	if awsErr == nil && cfg.ImageBucket != "" {
		storage = awspkg.NewS3Storage(awsCfg, cfg.ImageBucket, cfg.ImagePublicURL)
	}

	catalog := services.NewAdminCatalog(products, storage, kv, cfg.DefaultCurrency, log)
	if err := catalog.Hydrate(ctx); err != nil {
		log.Warn("failed to hydrate admin catalog", zap.Error(err))
	}
	if err := catalog.FetchAll(ctx); err != nil {
		log.Warn("initial product fetch failed", zap.Error(err))
	}

	// --- mail ---
	relay := openMailRelay(ctx, cfg, awsCfg, awsErr, log)
	notifier := services.NewOrderNotifier(relay, cfg.AdminEmail, cfg.StoreName, metrics, log)

	// --- payments + events ---
	gateway := openGateway(cfg, log)

	checkoutOpts := []services.CheckoutOption{
		services.WithCheckoutMetrics(metrics),
		services.WithIdempotencyStore(kv, cfg.IdempotencyTTL),
	}
	if claims, ok := kv.(database.Claimer); ok {
		checkoutOpts = append(checkoutOpts, services.WithPaymentClaims(claims))
	}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		checkoutOpts = append(checkoutOpts, services.WithOrderEvents(producer))
	}
	checkout := services.NewCheckoutService(catalog, gateway, notifier, cfg.MomoDelay, log, checkoutOpts...)

	// --- shopper sessions ---
	var auth services.AuthProvider
	if users != nil {
		tokens := services.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL)
		auth = services.NewLocalAuthProvider(users, tokens, log)
	}
	registry := services.NewSessionRegistry(kv, auth, profiles, cfg.AdminPassword, log)
	go registry.RunSweeper(ctx, cfg.SessionSweepEvery, cfg.SessionIdleTTL)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)
	go limiter.Cleanup(ctx)

	feed := controllers.NewOrderFeed(cfg.AllowedOrigins, log)
	catalog.OnOrderAppended(feed.Broadcast)

	// --- HTTP ---
	r := routes.NewRouter(routes.Dependencies{
		Registry:            registry,
		Catalog:             catalog,
		Checkout:            checkout,
		Contact:             notifier,
		Feed:                feed,
		Metrics:             metrics,
		RateLimiter:         limiter,
		Logger:              log,
		AllowedOrigins:      cfg.AllowedOrigins,
		RequireCustomerAuth: cfg.RequireCustomerAuth,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Storefront starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down storefront...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	checkout.Wait()
	notifier.Wait()
	registry.Close()

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}
	if err := database.ClosePostgres(db); err != nil {
		log.Error("Failed to close PostgreSQL", zap.Error(err))
	}
	if mongoDB != nil {
		if err := database.DisconnectMongo(mongoDB); err != nil {
			log.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}
	log.Info("Storefront stopped gracefully")
}

func openKV(ctx context.Context, cfg *config.Config, awsCfg sdkaws.Config, awsErr error, log *zap.Logger) (database.KV, *redis.Client) {
	switch cfg.StorageBackend {
	case "redis":
		client, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
		if err == nil {
			return database.NewRedisKV(client, 0), client
		}
		log.Warn("Redis unavailable, falling back to in-memory state", zap.Error(err))
	case "dynamodb":
		if awsErr == nil {
			return database.NewDynamoKV(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable), nil
		}
		log.Warn("DynamoDB selected without AWS config, falling back to in-memory state")
	case "memory":
	default:
		log.Warn("unknown storage backend, using in-memory state", zap.String("backend", cfg.StorageBackend))
	}
	return database.NewMemoryKV(), nil
}

func openMailRelay(ctx context.Context, cfg *config.Config, awsCfg sdkaws.Config, awsErr error, log *zap.Logger) sender.MailRelay {
	switch cfg.MailRelay {
	case "form":
		relay, err := sender.NewFormRelay(cfg.FormRelayURL, cfg.AdminEmail)
		if err == nil {
			return relay
		}
		log.Warn("form relay misconfigured", zap.Error(err))
	case "smtp":
		relay, err := sender.NewSMTPRelay(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		if err == nil {
			return relay
		}
		log.Warn("SMTP relay misconfigured", zap.Error(err))
	case "sns":
		if awsErr == nil {
			relay, err := sender.NewSNSRelay(awspkg.NewSNSClient(awsCfg), cfg.MailSNSTopic)
			if err == nil {
				return relay
			}
			log.Warn("SNS relay misconfigured", zap.Error(err))
		}
	case "sqs":
		if awsErr == nil && cfg.MailSQSQueue != "" {
			queue := awspkg.NewSQSQueue(awsCfg, cfg.MailSQSQueue, log)
			// Queued mail is delivered by SMTP when it is configured, otherwise only logged.
			var delivery sender.MailRelay = sender.NewLogRelay(log)
			if smtp, err := sender.NewSMTPRelay(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass); err == nil {
				delivery = smtp
			}
			worker := sender.NewQueueWorker(delivery, log)
			go func() {
				if err := queue.StartPolling(ctx, worker.Handle); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("mail queue polling stopped", zap.Error(err))
				}
			}()
			return sender.NewSQSRelay(queue)
		}
	}
	log.Warn("no mail relay configured, mails are only logged", zap.String("relay", cfg.MailRelay))
	return sender.NewLogRelay(log)
}

func openGateway(cfg *config.Config, log *zap.Logger) payment.Gateway {
	switch cfg.PaymentProvider {
	case "stripe":
		if cfg.StripeSecretKey != "" {
			return payment.NewStripeGateway(cfg.StripeSecretKey)
		}
	case "paystack":
		gw, err := payment.NewPaystackGateway(cfg.PaystackBaseURL, cfg.PaystackSecretKey)
		if err == nil {
			return gw
		}
		log.Warn("Paystack gateway misconfigured", zap.Error(err))
	}
	log.Warn("no payment gateway configured, only mobile money checkout is available",
		zap.String("provider", cfg.PaymentProvider))
	return nil
}
