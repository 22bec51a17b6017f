package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rossperleberg/jib-payments/config"
	"github.com/rossperleberg/jib-payments/models"
	"github.com/rossperleberg/jib-payments/utils"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.GET("/accounts", listAccountsHandler)
	api.GET("/accounts/:id", getAccountHandler)
	api.POST("/accounts", createAccountHandler)
	api.PUT("/accounts/:id", updateAccountHandler)
	api.DELETE("/accounts/:id", deleteAccountHandler)

	api.GET("/operators", listOperatorsHandler)
	api.GET("/operators/:id", getOperatorHandler)
	api.POST("/operators", createOperatorHandler)
	api.PUT("/operators/:id", updateOperatorHandler)
	api.DELETE("/operators/:id", deleteOperatorHandler)

	api.GET("/credits", listCreditsHandler)
	api.POST("/credits", createCreditHandler)
	api.PUT("/credits/:id", updateCreditHandler)
	api.DELETE("/credits/:id", deleteCreditHandler)

	api.GET("/payments", listPaymentsHandler)
	api.GET("/payments/:id", getPaymentHandler)
	api.POST("/payments", createPaymentHandler)
	api.PATCH("/payments/:id", updatePaymentHandler)
	api.DELETE("/payments/:id", deletePaymentHandler)
	api.POST("/payments/bulk-delete", bulkDeletePaymentsHandler)

	api.POST("/payments/:id/assign-operator", assignOperatorHandler)
	api.POST("/payments/move-to-entry-tracker", moveToEntryTrackerHandler)
	api.PATCH("/payments/:id/entry-flags", entryFlagsHandler)
	api.POST("/payments/:id/mark-complete", markCompleteHandler)
	api.POST("/payments/mark-all-sent-complete", markAllSentCompleteHandler)
	api.POST("/payments/mark-processed", markProcessedHandler)
	api.POST("/payments/:id/send-back-to-entry", sendBackToEntryHandler)
	api.POST("/payments/:id/mark-check-sent", markCheckSentHandler)
	api.POST("/payments/:id/apply-credit", applyCreditHandler)
	api.POST("/payments/:id/remove-credit", removeCreditHandler)
	api.GET("/payments/:id/credit-applications", creditApplicationsHandler)

	api.POST("/send-checks-to-bill-pay", sendChecksToBillPayHandler)

	api.GET("/dashboard", dashboardHandler)

	api.POST("/import", importPaymentsHandler)
	api.POST("/import-history", importHistoryHandler)
	api.GET("/import-history/template", importTemplateCSVHandler)
	api.GET("/import-template", importTemplateHandler)

	api.POST("/generate-ach", generateAchHandler)
	api.GET("/batches", listBatchesHandler)
	api.GET("/batches/:id", getBatchHandler)
	api.GET("/batches/:id/download", downloadBatchHandler)
	api.DELETE("/batches/:id", deleteBatchHandler)
	api.POST("/batches/:id/mark-processed", markBatchProcessedHandler)

	api.GET("/activity", activityLogHandler)
	api.POST("/activity", createActivityHandler)

	api.GET("/export/payments", exportPaymentsHandler)
	api.GET("/export/operators", exportOperatorsHandler)
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS
	// (comma-separated); otherwise allow all for developer convenience.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(gin.Recovery())
	registerRoutes(r)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := models.Migrate(); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Panic(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
