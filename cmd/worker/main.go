package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkarpenko/invoice-extract/internal/bootstrap"
	"github.com/mkarpenko/invoice-extract/internal/config"
	"github.com/mkarpenko/invoice-extract/internal/observability/logging"
	"github.com/mkarpenko/invoice-extract/internal/observability/metrics"
)

const serviceName = "invoice-extract-worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics)
	defer stopMetricsServer(metricsServer)

	// Paces how fast jobs are pulled off the queue so a burst of uploads
	// cannot saturate the OCR service behind us.
	var pacer *rate.Limiter
	if cfg.WorkerRateLimitRPS > 0 {
		pacer = rate.NewLimiter(rate.Limit(cfg.WorkerRateLimitRPS), 1)
	}

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeExtractionSubmitted(ctx, func(handlerCtx context.Context, extractionID string) error {
		if pacer != nil {
			if err := pacer.Wait(handlerCtx); err != nil {
				return err
			}
		}

		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if ext, lookupErr := app.Reader.GetByID(processCtx, extractionID); lookupErr == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(ext.CreatedAt))
		}

		workerMetrics.StartExtraction()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, extractionID)
		workerMetrics.FinishExtraction(serviceName, time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		slog.Error("worker_subscribe_error", "error", err)
		os.Exit(1)
	}
}

func startMetricsServer(port string, m *metrics.WorkerMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics_server_error", "error", err)
		}
	}()
	return server
}

func stopMetricsServer(server *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
