package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbilling "github.com/facturante/backend/internal/application/billing"
	"github.com/facturante/backend/internal/infrastructure/config"
	"github.com/facturante/backend/internal/infrastructure/directory"
	"github.com/facturante/backend/internal/infrastructure/logger"
	"github.com/facturante/backend/internal/interfaces/http/handler"
	"github.com/facturante/backend/internal/interfaces/http/middleware"
	"github.com/facturante/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Facturante Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Load reference data
	terms, err := directory.LoadPaymentTerms(cfg.Billing.DataDir)
	if err != nil {
		log.Fatal("Failed to load payment terms", zap.Error(err))
	}
	outstanding, err := directory.LoadOutstandingDocuments(cfg.Billing.DataDir)
	if err != nil {
		log.Fatal("Failed to load outstanding documents", zap.Error(err))
	}

	// Wire the editor service
	editorService := appbilling.NewEditorService(terms, outstanding, log.Named("editor"))

	// Handlers
	editorHandler := handler.NewEditorHandler(editorService, cfg.Billing.DefaultTaxPercent)
	calculatorHandler := handler.NewCalculatorHandler(editorService, cfg.Billing.DefaultTaxPercent)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack in order: request ID, panic recovery, request
	// logging, security headers, CORS
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// API routes
	router.NewRouter(engine).
		Register(editorHandler).
		Register(calculatorHandler).
		Register(systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
