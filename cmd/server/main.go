package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sharpfeed/internal/auth"
	"sharpfeed/internal/config"
	apphttp "sharpfeed/internal/http"
	"sharpfeed/internal/service"
	"sharpfeed/internal/storage"
	"sharpfeed/internal/store/sqlite"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	kv := sqlite.NewKVStore(db)
	if err := kv.Init(ctx); err != nil {
		logger.Fatalf("init store: %v", err)
	}

	issuer := auth.NewTokenIssuer(
		jwtSecret(cfg, logger),
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
	)

	identity := service.NewIdentityService(ctx, kv, logger)
	feed := service.NewFeedService(ctx, kv, cfg.Share.BaseURL, logger)
	session := service.NewSessionService(issuer, identity, kv, logger)
	session.Restore(ctx)
	if current := session.Current(); current != "" {
		logger.Infof("restored session for %s", current)
	}

	media, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(feed, identity, session, media, issuer)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

// jwtSecret returns the configured signing secret, or an ephemeral random
// one so a fresh install works out of the box.
func jwtSecret(cfg config.Config, logger *logrus.Logger) string {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		logger.Fatalf("generate session secret: %v", err)
	}
	logger.Warn("auth jwt secret not configured; using a random secret, sessions will not survive restarts")
	return hex.EncodeToString(buf)
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("no storage bucket configured; embedding images inline")
		return storage.NewInlineService(cfg.Storage.InlineLimit), nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(
		client,
		cfg.Storage.Bucket,
		cfg.Storage.KeyPrefix,
		time.Duration(cfg.Storage.URLTTLHours)*time.Hour,
	), nil
}
