package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/aidecare/internal/api"
	"github.com/your-org/aidecare/internal/api/ws"
	"github.com/your-org/aidecare/internal/config"
	"github.com/your-org/aidecare/internal/llm"
	"github.com/your-org/aidecare/internal/models"
	"github.com/your-org/aidecare/internal/observability"
	"github.com/your-org/aidecare/internal/pipeline"
	"github.com/your-org/aidecare/internal/queue"
	"github.com/your-org/aidecare/internal/storage"
	"github.com/your-org/aidecare/internal/vision"
	"github.com/your-org/aidecare/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting aidecare API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	images, err := storage.NewImageStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	sessions, err := storage.NewSessionStore(cfg.Redis)
	if err != nil {
		slog.Error("connect to redis", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStream(context.Background()); err != nil {
		slog.Warn("ensure nats stream", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Scan event consumer pushes completions to connected patients.
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create scan event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeScanEvents(ctx, "api-scan-events", func(ctx context.Context, msg jetstream.Msg) error {
		var event models.ScanEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			return err
		}

		hub.BroadcastScanEvent(&dto.WSScanEvent{
			Type:      "scan_completed",
			PatientID: event.PatientID,
			ScanID:    event.ScanID,
			ScanType:  event.ScanType,
			CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		slog.Warn("start scan event consumer", "error", err)
	}

	// Initialize ONNX Runtime and the segmentation detector.
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("onnx runtime init failed", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	detector, err := vision.NewYOLODetector(
		cfg.Vision.ModelPath,
		cfg.Vision.ClassNames,
		cfg.Vision.ConfidenceThreshold,
		cfg.Vision.IOUThreshold,
		cfg.Vision.ResolutionPX,
		nil,
	)
	if err != nil {
		slog.Error("load segmentation model", "error", err)
		os.Exit(1)
	}
	defer detector.Close()
	slog.Info("segmentation model loaded", "path", cfg.Vision.ModelPath)

	generator := llm.NewOllamaClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout)

	cal := vision.Calibration{
		PhysicalWidthCM:  cfg.Vision.PhysicalWidthCM,
		PhysicalHeightCM: cfg.Vision.PhysicalHeightCM,
		ResolutionPX:     cfg.Vision.ResolutionPX,
	}
	pl := pipeline.New(detector, generator, db, images, producer, cal)

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		DB:            db,
		Images:        images,
		Sessions:      sessions,
		Producer:      producer,
		Pipeline:      pl,
		Generator:     generator,
		Hub:           hub,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // inference can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
