package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"shorts-worker/config"
	"shorts-worker/constant"
	jobHandler "shorts-worker/handler"
	"shorts-worker/pkg/contentstore"
	"shorts-worker/pkg/rabbitmq"
	"shorts-worker/repository"
	"shorts-worker/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
	}

	sessions := repository.NewRepo(cfg.DB)
	store := contentstore.New(contentstore.NewMinioBackend(cfg.Storage, cfg.MinIOBucket))
	downloader := service.NewFetchDownloader(store, cfg.Tools.YtDlp)
	trimmer := service.NewFFmpegTrimmer(cfg.Tools.FFmpeg)
	uploader := service.NewYouTubeUploader(cfg.YouTube.OAuthConfig())

	downloads := service.NewDownloads(ctx, store, downloader)
	shorts := service.NewShorts(ctx, downloads, store, trimmer, uploader, sessions)

	serviceDeps := jobHandler.ServiceDependencies{
		Downloads: downloads,
		Shorts:    shorts,
	}

	// Start shorts request consumer
	shortsConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, jobHandler.ShortsRequestHandler)
	go func() {
		err := shortsConsumer.Consume(ctx, serviceDeps)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Shorts consumer error")
		}
	}()

	r := gin.Default()
	addHealth(r)
	addRoutes(r, downloads, shorts)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	// In-flight downloads abort with the context; join them so nothing
	// outlives the process teardown.
	downloads.Join()
	shorts.Join()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
