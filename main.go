package main

// ubuntu 后台执行的方法 nohup ./foodgram > foodgram.log 2>&1 &
import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/studieren/foodgram/auth"
	"github.com/studieren/foodgram/config"
	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/handlers"
	"github.com/studieren/foodgram/imagestore"
	"github.com/studieren/foodgram/logging"
	"github.com/studieren/foodgram/models"
	"github.com/studieren/foodgram/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化 DB、缓存、CRUDTool
	db, err := gormtool.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("open database")
	}
	if err := models.Migrate(db); err != nil {
		logging.Fatal().Err(err).Msg("migrate")
	}

	cache, closeCache := newCache(ctx, cfg)
	defer closeCache()

	cruder := gormtool.NewCRUDTool(db, cache, nil)
	cruder.TTL = cfg.Cache.TTL
	if err := cruder.RegisterDBStats(prometheus.DefaultRegisterer, cfg.Database.Driver); err != nil {
		logging.Warn().Err(err).Msg("register db stats")
	}

	images, err := imagestore.New(ctx, cfg.Images)
	if err != nil {
		logging.Fatal().Err(err).Msg("init image store")
	}
	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		logging.Fatal().Err(err).Msg("init token manager")
	}

	opts := handlers.Options{
		Service:     service.New(cruder, images),
		Store:       cruder,
		Auth:        tokens,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if local, ok := images.(*imagestore.LocalStore); ok {
		opts.MediaDir = local.Dir()
		opts.MediaURL = strings.TrimSuffix(cfg.Images.BaseURL, "/")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handlers.NewRouter(opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Str("driver", cfg.Database.Driver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newCache Redis 不可用时退回进程内 LRU
func newCache(ctx context.Context, cfg *config.Config) (gormtool.Cache, func()) {
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		err := rdb.Ping(ctx).Err()
		if err == nil {
			return gormtool.NewRedisCache(rdb, cfg.Redis.Prefix), func() { _ = rdb.Close() }
		}
		logging.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, using in-process cache")
		_ = rdb.Close()
	}
	lru, err := gormtool.NewLRUCache(cfg.Cache.LRUSize)
	if err != nil {
		logging.Fatal().Err(err).Msg("init lru cache")
	}
	return lru, func() {}
}
