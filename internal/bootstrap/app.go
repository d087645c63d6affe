package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"lexhub/internal/ai"
	appsvc "lexhub/internal/app"
	"lexhub/internal/billing"
	"lexhub/internal/cache"
	"lexhub/internal/config"
	"lexhub/internal/model"
	"lexhub/internal/ocr"
	mysqlClient "lexhub/internal/platform/mysql"
	rabbitmqClient "lexhub/internal/platform/rabbitmq"
	redisClient "lexhub/internal/platform/redis"
	"lexhub/internal/repository"
	"lexhub/internal/storage"
	"lexhub/internal/worker"
)

type App struct {
	Config *config.Config
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	AuthService         *appsvc.AuthService
	DocumentService     *appsvc.DocumentService
	QAService           *appsvc.QAService
	FirmService         *appsvc.FirmService
	TemplateService     *appsvc.TemplateService
	SubscriptionService *appsvc.SubscriptionService

	RateLimiter    *cache.RateLimiter
	DocumentWorker *worker.DocumentWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.RecoveryCode{},
		&model.Document{},
		&model.DocumentChunk{},
		&model.LawFirm{},
		&model.FirmRating{},
		&model.Template{},
		&model.TemplatePurchase{},
		&model.Question{},
		&model.Answer{},
		&model.Subscription{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	blobs, err := storage.NewFileStore(cfg.Storage.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init file store failed: %w", err)
	}

	userRepo := repository.NewUserRepository(mysqlDB)
	recoveryRepo := repository.NewRecoveryCodeRepository(mysqlDB)
	docRepo := repository.NewDocumentRepository(mysqlDB)
	chunkRepo := repository.NewDocumentChunkRepository(mysqlDB)
	firmRepo := repository.NewFirmRepository(mysqlDB)
	tplRepo := repository.NewTemplateRepository(mysqlDB)
	qaRepo := repository.NewQARepository(mysqlDB)
	subRepo := repository.NewSubscriptionRepository(mysqlDB)

	llmClient := ai.NewOpenAICompatibleClient()
	chatCfg := ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	}
	embedCfg := ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	}
	analyzer := appsvc.NewLLMAnalyzer(llmClient, chatCfg)
	embedder := appsvc.NewConfiguredEmbedder(llmClient, embedCfg)
	completer := appsvc.NewConfiguredCompleter(llmClient, chatCfg)
	ocrClient := ocr.NewClient(cfg.OCR.BaseURL, cfg.OCR.APIKey, time.Duration(cfg.OCR.TimeoutSeconds)*time.Second)
	billingClient := billing.NewClient(cfg.Billing.BaseURL, cfg.Billing.APIKey)

	pipeline := appsvc.NewPipeline(ocrClient, analyzer, embedder, appsvc.PipelineOptions{
		RetryAttempts:      cfg.Pipeline.RetryAttempts,
		RetryBaseDelay:     time.Duration(cfg.Pipeline.RetryBaseDelayMS) * time.Millisecond,
		ChunkSize:          cfg.Pipeline.ChunkSize,
		ChunkOverlap:       cfg.Pipeline.ChunkOverlap,
		EmbeddingBatchSize: cfg.Pipeline.EmbeddingBatchSize,
	})

	quotaStore := cache.NewQuotaStore(redisCli)
	directoryCache := cache.NewDirectoryCache(
		redisCli,
		time.Duration(cfg.Redis.DirectoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.DirectoryDirtyTTLSeconds)*time.Second,
	)
	rateLimiter := cache.NewRateLimiter(redisCli, cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	taskPublisher := rabbitmqClient.NewTaskPublisher(mqConn, cfg.RabbitMQ.DocumentProcessQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		recoveryRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		cfg.Auth.TOTPIssuer,
	)
	subscriptionService := appsvc.NewSubscriptionService(subRepo, billingClient, quotaStore)
	documentService := appsvc.NewDocumentService(docRepo, chunkRepo, taskPublisher, blobs, subscriptionService, pipeline)
	qaService := appsvc.NewQAService(qaRepo, docRepo, chunkRepo, userRepo, embedder, completer, subscriptionService)
	firmService := appsvc.NewFirmService(firmRepo, userRepo, directoryCache)
	templateService := appsvc.NewTemplateService(tplRepo, blobs, billingClient)

	documentWorker := worker.NewDocumentWorker(mqConn, documentService, cfg.RabbitMQ.DocumentProcessQueue)
	if err := documentWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start document worker failed: %w", err)
	}

	return &App{
		Config:              cfg,
		MySQL:               mysqlDB,
		Redis:               redisCli,
		MQConn:              mqConn,
		AuthService:         authService,
		DocumentService:     documentService,
		QAService:           qaService,
		FirmService:         firmService,
		TemplateService:     templateService,
		SubscriptionService: subscriptionService,
		RateLimiter:         rateLimiter,
		DocumentWorker:      documentWorker,
		StartedAt:           time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DocumentWorker != nil {
		a.DocumentWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
