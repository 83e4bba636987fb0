package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/config"
	"github.com/Guyuepp/artfeed/internal/platform/metrics"
	"github.com/Guyuepp/artfeed/internal/repository"
	"github.com/Guyuepp/artfeed/internal/repository/postgres"
	"github.com/Guyuepp/artfeed/internal/repository/rdb"
	myRedisCache "github.com/Guyuepp/artfeed/internal/repository/redis"
	"github.com/Guyuepp/artfeed/internal/rest"
	"github.com/Guyuepp/artfeed/internal/rest/middleware"
	"github.com/Guyuepp/artfeed/internal/usecase/comment"
	"github.com/Guyuepp/artfeed/internal/usecase/feed"
	"github.com/Guyuepp/artfeed/internal/usecase/like"
	"github.com/Guyuepp/artfeed/internal/workers"
)

const (
	shutdownTimeout = 5 * time.Second
	startupTimeout  = 30 * time.Second
)

func init() {
	config.LoadEnv()
}

func main() {
	cfg := config.Load()
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// prepare database
	db, err := rdb.Open(cfg.Database)
	if err != nil {
		logrus.Fatal(err)
	}
	defer func() {
		if err := rdb.Close(db); err != nil {
			logrus.Errorf("got error when closing the DB connection: %v", err)
		}
	}()

	startupCtx, cancelStartup := context.WithTimeout(ctx, startupTimeout)
	defer cancelStartup()
	if err := rdb.Migrate(startupCtx, db, cfg.Database.Dialect); err != nil {
		logrus.Fatalf("failed to migrate database: %v", err)
	}

	// prepare cache
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.CacheAddr,
		Password: cfg.CachePass,
		DB:       cfg.CacheDB,
	})
	defer func() {
		if err := client.Close(); err != nil {
			logrus.Errorf("got error when closing the cache connection: %v", err)
		}
	}()
	if err := client.Ping(startupCtx).Err(); err != nil {
		logrus.Fatalf("failed to open connection to cache: %v", err)
	}

	likeMetrics := metrics.NewLikeMetrics(cfg.MetricsNamespace)

	// Prepare Repository
	userRepo := rdb.NewUserRepository(db)
	commentRepo := rdb.NewCommentRepository(db)
	likeRepo := rdb.NewLikeRepository(db, cfg.LikesInstanceID)
	postRepo := repository.NewPostRepository(rdb.NewPostDBRepository(db), myRedisCache.NewPostCache(client), userRepo)
	bloomRepo := myRedisCache.NewRedisBloomRepo(client, cfg.BloomBitSize)
	pendingStore := myRedisCache.NewPendingLikeStore(client, cfg.LikesInstallID)

	malformed := func(error) {
		likeMetrics.RealtimeEvents.WithLabelValues(metrics.RealtimeMalformed).Inc()
	}
	var (
		changeFeed domain.ChangeFeed
		publisher  domain.ChangePublisher
	)
	switch cfg.RealtimeSource {
	case config.RealtimeRedis:
		f := myRedisCache.NewChangeFeed(client, cfg.RealtimeChannel)
		f.Malformed = malformed
		changeFeed, publisher = f, f
	case config.RealtimePostgres:
		if cfg.Database.Dialect != rdb.DialectPostgres {
			logrus.Fatal("REALTIME_SOURCE=postgres needs DATABASE_DIALECT=postgres")
		}
		f := postgres.NewChangeFeed(cfg.Database.PostgresDSN(), cfg.RealtimeChannel)
		f.Malformed = malformed
		changeFeed = f
	}

	retry := like.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.LikesRetryAttempts
	retry.BaseDelay = cfg.LikesRetryBaseDelay
	retry.MaxDelay = cfg.LikesRetryMaxDelay

	// Build service Layer
	likeOpts := []like.Option{
		like.WithClientID(cfg.LikesInstanceID),
		like.WithRetryPolicy(retry),
		like.WithMetrics(likeMetrics),
	}
	if publisher != nil {
		likeOpts = append(likeOpts, like.WithPublisher(publisher))
	}
	likeSvc := like.NewService(startupCtx, likeRepo, pendingStore, likeOpts...)
	feedSvc := feed.NewService(postRepo, likeSvc, commentRepo, bloomRepo, feed.NewTimeSeededSource())
	commentSvc := comment.NewService(commentRepo, userRepo, bloomRepo)

	// Prepare bloom filter
	if err := feedSvc.InitBloomFilter(startupCtx); err != nil {
		logrus.Fatalf("failed to init bloom filter: %v", err)
	}

	// Start worker
	var wg sync.WaitGroup
	likesSyncer := workers.NewSyncLikesWorker(likeSvc, cfg.LikesFlushInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		likesSyncer.Start(ctx)
	}()
	if changeFeed != nil {
		listener := workers.NewRealtimeLikesWorker(changeFeed, likeSvc, likeMetrics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			listener.Start(ctx)
		}()
	}

	feedHandler := rest.NewFeedHandler(feedSvc)
	likeHandler := rest.NewLikeHandler(likeSvc, likesSyncer, bloomRepo, cfg.LikesStreamBuffer)
	commentHandler := rest.NewCommentHandler(commentSvc)

	// prepare gin
	route := gin.New()
	route.Use(gin.Recovery(), middleware.CORS())

	route.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	route.GET("/metrics", gin.WrapH(likeMetrics.Handler()))
	// the stream outlives any request timeout
	route.GET("/likes/stream", likeHandler.Stream)

	api := route.Group("/", middleware.SetRequestContextWithTimeout(cfg.ContextTimeout))
	api.GET("/posts", feedHandler.Fetch)
	api.GET("/posts/:id/comments", commentHandler.FetchCommentsByPost)

	authorized := api.Group("/", middleware.RequireUser())
	{
		authorized.POST("/posts/:id/like", likeHandler.Like)
		authorized.DELETE("/posts/:id/like", likeHandler.Unlike)
		authorized.GET("/posts/:id/like", likeHandler.State)
		authorized.POST("/posts/:id/comments", commentHandler.CreateComment)
		authorized.DELETE("/comments/:id", commentHandler.DeleteComment)
	}

	// Start Server
	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: route,
	}
	go func() {
		logrus.Infof("Server is running on %s", cfg.ServerAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("listen: %s", err)
		}
	}()

	// shutdown
	<-ctx.Done()
	logrus.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// open streams never finish on their own
	srv.RegisterOnShutdown(likeSvc.CloseSubscriptions)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Waiting for workers to flush...")
	wg.Wait()
	likeSvc.Close()

	logrus.Info("Server exiting")
}
