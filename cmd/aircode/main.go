package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Mid-D-Man/AirCode-sub002/internal/api/http/handler"
	"github.com/Mid-D-Man/AirCode-sub002/internal/api/http/router"
	"github.com/Mid-D-Man/AirCode-sub002/internal/codec"
	"github.com/Mid-D-Man/AirCode-sub002/internal/config"
	"github.com/Mid-D-Man/AirCode-sub002/internal/logger"
	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
	"github.com/Mid-D-Man/AirCode-sub002/internal/qrimage"
	"github.com/Mid-D-Man/AirCode-sub002/internal/repository/postgres"
	"github.com/Mid-D-Man/AirCode-sub002/internal/server"
	storage "github.com/Mid-D-Man/AirCode-sub002/internal/storage/minio"
	"github.com/Mid-D-Man/AirCode-sub002/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	sessionRepo := postgres.NewSessionRepository(db)
	attendanceRepo := postgres.NewAttendanceRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret)

	encryptionKey, iv, signingSecret, err := cfg.QR.Keys()
	if err != nil {
		logger.Fatal("failed to decode qr key material", "error", err)
	}

	tokenCodec := codec.New(codec.Config{
		URLPrefix:     cfg.QR.URLPrefix,
		Marker:        cfg.QR.Marker,
		EncryptionKey: encryptionKey,
		IV:            iv,
		SigningSecret: signingSecret,
	}, logger)

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	storageClient, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	validateHandler := handler.NewValidate(sessionRepo, attendanceRepo, signingSecret, logger)
	sessionHandler := handler.NewSession(tokenCodec, sessionRepo, storageClient, qrimage.RenderPNG, cfg.QR.ImageSize, logger)

	mux := router.New(validateHandler, sessionHandler, tokenManager, logger).Register()
	httpServer := server.NewHTTPServer(mux, fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer

	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(httpServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
