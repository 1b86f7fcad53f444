package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/Vovarama1992/go-utils/logger"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Vovarama1992/file_changer/internal/config"
	"github.com/Vovarama1992/file_changer/internal/convert"
	"github.com/Vovarama1992/file_changer/internal/delivery"
	"github.com/Vovarama1992/file_changer/internal/imagepdf"
	"github.com/Vovarama1992/file_changer/internal/metrics"
	"github.com/Vovarama1992/file_changer/internal/normalize"
	"github.com/Vovarama1992/file_changer/internal/pdf"
	"github.com/Vovarama1992/file_changer/internal/session"
	"github.com/Vovarama1992/file_changer/internal/upload"
)

const serviceName = "file_changer"

func main() {

	// =========================================================================
	// ENV / CONFIG
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	baseLogger, _ := zap.NewProduction()
	if !cfg.Production {
		baseLogger, _ = zap.NewDevelopment()
	}
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// INFRASTRUCTURE
	// =========================================================================

	store := session.NewMemoryStore(cfg.SessionTTL, session.WithMaxSessions(cfg.MaxSessions))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNew(reg, store.Len)

	var assembler pdf.Assembler = pdf.NewFPDFAssembler()
	if cfg.Img2PDFBin != "" {
		assembler = pdf.NewCommandAssembler(cfg.Img2PDFBin)
	}

	officeConverter := convert.NewOfficeConverter(cfg.SofficeBin)
	textConverter := convert.NewTextConverter(cfg.TextServiceURL, &http.Client{Timeout: cfg.AssemblyTimeout}, baseLogger)

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	normalizer, err := normalize.NewService(
		normalize.NewImagingProcessor(cfg.MaxDimension, cfg.JPEGQuality),
		cfg.NormalizerMode,
		cfg.WorkerPoolSize,
		baseLogger,
	)
	if err != nil {
		log.Fatalf("failed to init normalizer: %v", err)
	}

	imagePDFService := imagepdf.NewService(
		upload.NewValidator(upload.Limits{MaxImages: cfg.MaxImages, MaxImageBytes: cfg.MaxImageBytes}),
		normalizer,
		pdf.NewPDFService(assembler, cfg.AssemblyTimeout),
		store,
		m,
		baseLogger,
	)
	convertService := convert.NewService(officeConverter, textConverter, cfg.AssemblyTimeout)

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length"},
	}))

	// HANDLERS
	opts := delivery.HandlerOptions{
		MaxRequestBytes: cfg.MaxRequestBytes,
		Direct:          cfg.DeliveryMode == config.DeliveryDirect,
		Production:      cfg.Production,
	}
	imagePDFHandler := delivery.NewImagePDFHandler(imagePDFService, opts, zl)
	convertHandler := delivery.NewConvertHandler(convertService, opts, zl)
	healthHandler := delivery.NewHealthHandler(imagePDFService)

	// ROUTES
	delivery.RegisterRoutes(
		r,
		imagePDFHandler,
		convertHandler,
		healthHandler,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		cfg.RateLimitPerMinute,
	)

	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("pong"))
	})

	// =========================================================================
	// BACKGROUND JOBS
	// =========================================================================

	sweeper := session.NewSweeper(store, cfg.SweepInterval, baseLogger, m.Swept)
	go sweeper.Run(ctx)

	// =========================================================================
	// START SERVER
	// =========================================================================

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	msg := fmt.Sprintf("listening at %s (mode=%s, delivery=%s, max request %s)",
		srv.Addr, normalizer.Mode(), cfg.DeliveryMode, humanize.IBytes(uint64(cfg.MaxRequestBytes)))
	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: msg,
		Service: serviceName,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	// даём текущим загрузкам доехать
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[shutdown] error: %v", err)
	}
	zl.Log(logger.LogEntry{Level: "info", Message: "server stopped", Service: serviceName})
}
