package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"brasul/fretes/internal/api"
	"brasul/fretes/internal/auth"
	"brasul/fretes/internal/cache"
	"brasul/fretes/internal/captcha"
	"brasul/fretes/internal/catalog"
	"brasul/fretes/internal/config"
	"brasul/fretes/internal/db"
	"brasul/fretes/internal/email"
	"brasul/fretes/internal/events"
	"brasul/fretes/internal/logging"
	"brasul/fretes/internal/services"
	"brasul/fretes/internal/store"
	"brasul/fretes/internal/store/mongostore"
	"brasul/fretes/internal/store/postgres"
	"brasul/fretes/internal/tasks"
)

var (
	runMode      = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default), 'token' (print an admin JWT)")
	tokenSubject = flag.String("sub", "operador", "Subject of the admin JWT printed in 'token' mode")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.RunMode == "token" {
		token, err := auth.GenerateJWT(*tokenSubject, true, cfg.JwtSecret, cfg.JwtTTL)
		if err != nil {
			log.Fatalf("Failed to generate token: %v", err)
		}
		fmt.Println(token)
		return
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	gin.SetMode(gin.ReleaseMode)

	ctx := context.Background()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Error("failed to close store", zap.Error(err))
		}
	}()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient, logger); err != nil {
			logger.Error("failed to disconnect from Redis", zap.Error(err))
		}
	}()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close event publisher", zap.Error(err))
		}
	}()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}

	emailTemplateService, err := services.NewEmailTemplateService(cfg.EmailTemplatesPath)
	if err != nil {
		logger.Fatal("failed to load email templates", zap.Error(err))
	}

	taskClient := tasks.NewClient(redisClient)
	defer func() { _ = taskClient.Close() }()
	emailQueue := tasks.NewEmailQueue(taskClient, logger)

	freightService := services.NewFreightService(st, cat, cache.NewRedisCache(redisClient, "fretes:"), publisher, logger,
		services.FreightServiceOptions{PageSize: cfg.PageSize, CacheTTL: cfg.CacheTTL})
	agentService := services.NewAgentService(st, emailQueue, publisher, logger)
	referralService := services.NewReferralService(st, emailQueue, publisher, services.ContactSettings{
		ServiceURL: cfg.WhatsAppServiceURL,
		Phone:      cfg.WhatsAppPhone,
		SiteURL:    cfg.SiteURL,
	}, logger)
	municipalityService := services.NewMunicipalityService(st, logger)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// The service API always runs and is bound to localhost.
	serviceSrv := &http.Server{
		Addr:    "127.0.0.1:" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, shutdownChan, logger),
	}
	serve(&wg, serviceSrv, "service API", logger)

	var (
		mainApiSrv      *http.Server
		stopRateLimiter func()
		taskSrv         *asynq.Server
		scheduler       *asynq.Scheduler
	)

	logger.Info("starting application", zap.String("mode", cfg.RunMode), zap.String("store", cfg.StoreDriver))

	apiMode := func() {
		var router *gin.Engine
		router, stopRateLimiter = api.SetupRouter(cfg, api.Services{
			Freights:       freightService,
			Agents:         agentService,
			Referrals:      referralService,
			Municipalities: municipalityService,
			Gate:           services.NewSearchGate(),
			Catalog:        cat,
			Verifier:       captcha.NewTurnstileVerifier(cfg, logger),
		}, logger)
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		serve(&wg, mainApiSrv, "main API", logger)
	}

	bgMode := func() {
		processor := tasks.NewTaskProcessor(
			tasks.ProcessorConfig{FromAddress: cfg.SmtpFromAddress, Retention: cfg.FreightRetention},
			buildEmailSender(cfg, redisClient, logger),
			emailTemplateService,
			freightService,
			logger,
		)
		var mux *asynq.ServeMux
		taskSrv, mux = tasks.NewServer(redisClient, processor, logger)
		if err := taskSrv.Start(mux); err != nil {
			logger.Fatal("failed to start task server", zap.Error(err))
		}

		scheduler, err = tasks.NewScheduler(redisClient, cfg.CleanupSchedule, cfg.FreightRetention, cfg.Timezone, logger)
		if err != nil {
			logger.Fatal("failed to configure scheduler", zap.Error(err))
		}
		if err := scheduler.Start(); err != nil {
			logger.Fatal("failed to start scheduler", zap.Error(err))
		}
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		logger.Fatal("invalid run mode", zap.String("mode", cfg.RunMode))
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case <-shutdownChan:
		logger.Info("shutdown requested via service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		logger.Error("service API shutdown error", zap.Error(err))
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			logger.Error("main API shutdown error", zap.Error(err))
		}
		stopRateLimiter()
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	wg.Wait()
	logger.Info("server gracefully stopped")
}

func serve(wg *sync.WaitGroup, srv *http.Server, name string, logger *zap.Logger) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("listening", zap.String("server", name), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ListenAndServe error", zap.String("server", name), zap.Error(err))
		}
	}()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		conn, err := db.ConnectPostgres(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, conn, logger); err != nil {
			_ = db.DisconnectPostgres(conn, logger)
			return nil, err
		}
		return postgres.New(conn, logger), nil
	case config.StoreDriverMongo:
		client, database, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName, logger)
		if err != nil {
			return nil, err
		}
		st := mongostore.New(client, database, logger)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = db.DisconnectDB(client, logger)
			return nil, err
		}
		return st, nil
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// buildEmailSender picks SMTP (or logging) delivery, or the Redis mock under
// MOCK_SERVICES, and adds the file copy when LOG_EMAILS names a file.
func buildEmailSender(cfg *config.Config, rdb *redis.Client, logger *zap.Logger) email.Sender {
	var primary email.Sender
	if cfg.MockServices {
		logger.Info("MOCK_SERVICES enabled, emails are stored in Redis")
		primary = email.NewRedisSender(rdb, cfg.SmtpFromAddress, logger)
	} else {
		primary = email.NewSMTPSender(cfg, logger)
	}

	composite := email.NewCompositeEmailSender(primary)
	if cfg.LogEmailsPath != "" {
		fileSender, err := email.NewFileEmailSender(cfg.LogEmailsPath)
		if err != nil {
			logger.Warn("file email logger disabled", zap.String("path", cfg.LogEmailsPath), zap.Error(err))
		} else {
			composite.AddSender(fileSender)
		}
	}
	return composite
}
