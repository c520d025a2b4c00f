package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"plate_reader/internal/api"
	"plate_reader/internal/api/handler"
	"plate_reader/internal/config"
	"plate_reader/internal/inference/detector"
	"plate_reader/internal/inference/recognizer"
	"plate_reader/internal/iot"
	"plate_reader/internal/pipeline"
	"plate_reader/internal/repository/postgresql"
	"plate_reader/internal/service"
)

func main() {
	// 1. Configuration and logging
	cfg := config.Load()
	logger := NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("configuration loaded", "recognizer", cfg.Recognizer, "persist_mode", cfg.PersistMode, "timezone", cfg.Timezone)

	// 2. Database
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		logger.Error("could not connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgresql.Migrate(context.Background(), db); err != nil {
		logger.Error("could not migrate database", "error", err)
		os.Exit(1)
	}
	detectionRepo := postgresql.NewPgDetectionRepository(db)
	logger.Info("database ready", "driver", cfg.DBDriver)

	// 3. AWS SDK
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Error("could not load AWS SDK config", "error", err)
		os.Exit(1)
	}
	sqsClient := sqs.NewFromConfig(awsSDKCfg)

	// 4. Inference capabilities
	plateDetector := detector.NewHTTPDetector(cfg.DetectorURL, cfg.DetectorTimeout)
	var textRecognizer pipeline.Recognizer
	switch cfg.Recognizer {
	case config.RecognizerTesseract:
		textRecognizer, err = newTesseractRecognizer(cfg.TesseractLanguages)
		if err != nil {
			logger.Error("could not build recognizer", "error", err)
			os.Exit(1)
		}
	default:
		textRecognizer = recognizer.NewRekognition(rekognition.NewFromConfig(awsSDKCfg), logger)
	}

	// 5. Persistence target
	var writer pipeline.Writer = pipeline.WriterFunc(detectionRepo.Append)
	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	if cfg.PersistMode == config.PersistModeQueue {
		writer = iot.NewSQSWriter(sqsClient, cfg.SQSDetectionQueueURL)
		consumer := iot.NewSQSConsumer(sqsClient, cfg.SQSDetectionQueueURL, detectionRepo, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Start(consumerCtx)
			logger.Info("sqs consumer stopped")
		}()
	}

	// 6. Notification fan-out
	webSocketManager := handler.NewWebSocketManager(logger)
	go webSocketManager.Start()

	var publisher service.DetectionPublisher
	if cfg.IoTEndpoint != "" {
		iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
			endpointWithSchema := cfg.IoTEndpoint
			if !strings.HasPrefix(endpointWithSchema, "https://") && !strings.HasPrefix(endpointWithSchema, "http://") {
				endpointWithSchema = "https://" + endpointWithSchema
			}
			o.BaseEndpoint = aws.String(endpointWithSchema)
		})
		publisher = iot.NewPlatePublisher(iotDataPlaneClient, cfg.IoTTopic)
		logger.Info("publishing detections over MQTT", "topic", cfg.IoTTopic)
	} else {
		logger.Warn("IOT_ENDPOINT not set, MQTT publishing disabled")
	}

	// 7. Pipeline and service
	plates := pipeline.New(plateDetector, textRecognizer, writer, pipeline.Options{
		Width:         cfg.CanonicalWidth,
		Height:        cfg.CanonicalHeight,
		Location:      cfg.Location(),
		StrictPersist: cfg.PersistStrict,
		Logger:        logger,
	})
	detectionService := service.NewDetectionService(plates, webSocketManager, publisher, plateDetector, cfg.TempDir, logger)

	// 8. HTTP server
	detectionHandler := handler.NewDetectionHandler(detectionService, cfg.MaxUploadMB<<20, logger)
	router := api.SetupRouter(detectionHandler, webSocketManager)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ListenAndServe failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	cancelConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("sqs consumer did not stop in time")
	}

	logger.Info("server stopped")
}
