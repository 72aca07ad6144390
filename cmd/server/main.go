// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"postcraft-go/internal/adapter"
	"postcraft-go/internal/config"
	"postcraft-go/internal/content"
	"postcraft-go/internal/handler"
	"postcraft-go/internal/hashtag"
	"postcraft-go/internal/middleware"
	"postcraft-go/internal/model"
	"postcraft-go/internal/pipeline"
	"postcraft-go/internal/repository"
	"postcraft-go/internal/service"
	"postcraft-go/pkg/database"
	"postcraft-go/pkg/es"
	"postcraft-go/pkg/kafka"
	"postcraft-go/pkg/llm"
	"postcraft-go/pkg/log"
	"postcraft-go/pkg/social"
	"postcraft-go/pkg/storage"
	"postcraft-go/pkg/token"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储、搜索与消息队列
	database.InitMySQL(cfg.Database.MySQL.DSN, cfg.Database.MySQL.AutoMigrate)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	publisher := kafka.NewProducer(cfg.Kafka)

	// 4. 初始化 Repository
	var usageRepo repository.UsageRepository
	switch cfg.Quota.Store {
	case "mysql":
		usageRepo = repository.NewGormUsageRepository(database.DB)
	default:
		usageRepo = repository.NewRedisUsageRepository(database.RDB)
	}
	contentRepo := repository.NewContentRepository(database.DB)
	accountRepo := repository.NewSocialAccountRepository(database.DB)
	metricsCacheRepo := repository.NewMetricsCacheRepository(database.RDB, time.Duration(cfg.Metrics.StaleRetentionHours)*time.Hour)
	rateLimitRepo := repository.NewRateLimitRepository(database.RDB)
	notificationRepo := repository.NewNotificationRepository(database.RDB)

	// 5. 初始化生成组件
	llmTimeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	llmClient := llm.NewClient(cfg.LLM)
	models := content.ModelSetFromConfig(cfg.LLM.Models)
	engine := content.NewEngine(llmClient, models, llmTimeout)
	ranker := hashtag.NewRanker(llmClient, models.Basic, llmTimeout)
	crossPlatform := adapter.New(engine, ranker)

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	quotaService := service.NewQuotaService(usageRepo, publisher)
	generationService := service.NewGenerationService(engine, quotaService, contentRepo, es.NewPostIndex(es.ESClient, cfg.Elasticsearch.IndexName), publisher)
	adaptationService := service.NewAdaptationService(crossPlatform, quotaService, contentRepo, storage.NewArchive(storage.MinioClient, cfg.MinIO.BucketName), publisher)
	hashtagService := service.NewHashtagService(ranker, quotaService)
	searchService := service.NewSearchService(es.NewPostIndex(es.ESClient, cfg.Elasticsearch.IndexName), contentRepo)
	notificationService := service.NewNotificationService(notificationRepo)
	rateLimiter := service.NewRateLimiter(rateLimitRepo)
	metricsService := service.NewMetricsService(
		metricsCacheRepo,
		accountRepo,
		rateLimiter,
		socialClientFactory(cfg.Social),
		time.Duration(cfg.Metrics.CacheTTLMinutes)*time.Minute,
	)

	// 7. 启动后台 Kafka 消费者，事件转为站内通知
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go kafka.StartConsumer(consumerCtx, cfg.Kafka, database.RDB, pipeline.NewProcessor(notificationRepo))

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	contentHandler := handler.NewContentHandler(generationService, adaptationService, searchService)
	quotaHandler := handler.NewQuotaHandler(quotaService)
	metricsHandler := handler.NewMetricsHandler(metricsService)
	hashtagHandler := handler.NewHashtagHandler(hashtagService)
	notificationHandler := handler.NewNotificationHandler(notificationService)

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/platforms", contentHandler.Platforms)

		contentGroup := apiV1.Group("/content")
		contentGroup.Use(middleware.AuthMiddleware(jwtManager))
		{
			contentGroup.POST("/generate", contentHandler.Generate)
			contentGroup.POST("/adapt", contentHandler.Adapt)
			contentGroup.POST("/validate", contentHandler.Validate)
			contentGroup.GET("/search", contentHandler.Search)
			contentGroup.GET("/history", contentHandler.History)
			contentGroup.GET("/adaptations/:id/export", contentHandler.ExportAdaptation)
		}

		hashtags := apiV1.Group("/hashtags")
		hashtags.Use(middleware.AuthMiddleware(jwtManager))
		{
			hashtags.POST("/suggest", hashtagHandler.Suggest)
		}

		quota := apiV1.Group("/quota")
		quota.Use(middleware.AuthMiddleware(jwtManager))
		{
			quota.GET("", quotaHandler.Overview)
			quota.GET("/:feature", quotaHandler.Check)
		}

		socialGroup := apiV1.Group("/social/:platform")
		socialGroup.Use(middleware.AuthMiddleware(jwtManager))
		{
			socialGroup.GET("/profile", metricsHandler.Profile)
			socialGroup.GET("/posts", metricsHandler.Posts)
		}

		apiV1.GET("/metrics/:platform", middleware.AuthMiddleware(jwtManager), metricsHandler.Metrics)

		notifications := apiV1.Group("/notifications")
		notifications.Use(middleware.AuthMiddleware(jwtManager))
		{
			notifications.GET("", notificationHandler.List)
		}
	}
	// WebSocket 无法携带请求头，token 放在路径中
	r.GET("/ws/adapt/:token", handler.NewAdaptStreamHandler(adaptationService, jwtManager).Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	stopConsumer()
	log.Info("服务已优雅关闭")
}

// socialClientFactory 按配置中的平台地址创建外部平台客户端。
func socialClientFactory(cfg config.SocialConfig) service.ClientFactory {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	baseURLs := map[model.Platform]string{
		model.PlatformTwitter:   cfg.TwitterBaseURL,
		model.PlatformInstagram: cfg.InstagramBaseURL,
		model.PlatformLinkedIn:  cfg.LinkedInBaseURL,
	}
	return func(platform model.Platform, accessToken string, guard social.RequestGuard) (social.Client, error) {
		return social.NewClient(platform, baseURLs[platform], accessToken, timeout, guard)
	}
}
