package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dailystudy/internal/common/cache"
	"dailystudy/internal/common/db"
	commonmw "dailystudy/internal/common/http/middleware"
	"dailystudy/internal/common/mq"
	"dailystudy/internal/common/storage"
	"dailystudy/internal/study/controller"
	"dailystudy/internal/study/judgeclient"
	"dailystudy/internal/study/metaclient"
	"dailystudy/internal/study/repository"
	"dailystudy/internal/study/service"
	"dailystudy/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/study_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	migrate := flag.Bool("migrate", false, "Create missing tables before serving")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()
	dbProvider := db.NewStaticProvider(mysqlDB)

	if *migrate {
		if err := repository.EnsureSchema(context.Background(), dbProvider); err != nil {
			logger.Error(context.Background(), "apply schema failed", zap.Error(err))
			return
		}
		logger.Info(context.Background(), "schema is up to date")
	}

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	recordRepo := repository.NewDailyRecordRepository(dbProvider)
	historyRepo := repository.NewCrawlHistoryRepository(dbProvider)

	deps := service.CrawlDeps{
		Source:    judgeclient.NewClient(appCfg.Judge),
		Meta:      metaclient.NewCachedSource(metaclient.NewClient(appCfg.Metadata.Config), redisCache, appCfg.Metadata.CacheTTL, appCfg.Metadata.EmptyCacheTTL),
		Records:   recordRepo,
		Histories: historyRepo,
		Locker:    redisCache,
	}

	if appCfg.Events.Enabled {
		kafkaQueue, err := mq.NewKafkaQueue(appCfg.Kafka)
		if err != nil {
			logger.Error(context.Background(), "init kafka failed", zap.Error(err))
			return
		}
		defer func() {
			_ = kafkaQueue.Close()
		}()
		deps.Publisher = service.NewCrawlEventPublisher(kafkaQueue, appCfg.Events.Topic)
	}

	if appCfg.Snapshot.Enabled {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			logger.Error(context.Background(), "init minio failed", zap.Error(err))
			return
		}
		if err := objStorage.EnsureBucket(context.Background(), appCfg.MinIO.Bucket); err != nil {
			logger.Error(context.Background(), "ensure snapshot bucket failed", zap.Error(err))
			return
		}
		deps.Archiver = service.NewSnapshotArchiver(objStorage, appCfg.MinIO.Bucket, appCfg.Snapshot.Prefix)
	}

	crawlService := service.NewCrawlService(deps, service.CrawlOptions{
		Roster:            appCfg.Roster,
		Retry:             appCfg.Crawl.Retry,
		ExceptionalExcuse: appCfg.Crawl.ExceptionalExcuse,
		LockTTL:           appCfg.Crawl.LockTTL,
		MetaConcurrency:   appCfg.Crawl.MetaConcurrency,
	})
	queryService := service.NewQueryService(recordRepo, appCfg.Roster, appCfg.Crawl.PaidExcuse, nil)
	excuseService := service.NewExcuseService(recordRepo, appCfg.Roster, nil)

	scheduler := service.NewScheduler(crawlService, appCfg.Crawl.Interval)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	httpServer := buildHTTPServer(appCfg.Server,
		controller.NewCrawlController(crawlService),
		controller.NewStudyController(queryService, excuseService),
	)

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "study http server started",
			zap.String("addr", appCfg.Server.Addr),
			zap.Int("roster_size", len(appCfg.Roster)),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, crawlController *controller.CrawlController, studyController *controller.StudyController) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.AccessLogMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	controller.RegisterRoutes(router, crawlController, studyController)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
