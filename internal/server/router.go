// Package server exposes the assessment pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/NutriPredict/internal/audit"
	"github.com/Skufu/NutriPredict/internal/logging"
	"github.com/Skufu/NutriPredict/internal/session"
)

const maxBodyBytes = 1 << 20

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// AssessmentLister reads back the audit log for a session.
type AssessmentLister interface {
	ListSession(ctx context.Context, sessionID string, limit int) ([]audit.Record, error)
}

// Deps are the collaborators the router serves. DB and Audit are nil when
// the database is disabled.
type Deps struct {
	Sessions *session.Manager
	DB       HealthChecker
	Audit    AssessmentLister
	Logger   *zap.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &handlers{sessions: deps.Sessions, audit: deps.Audit, logger: deps.Logger}

	router := gin.New()
	router.Use(
		logging.GinMiddleware(deps.Logger),
		gin.Recovery(),
		limitBodySize(maxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if deps.DB == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := deps.DB.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"db":     "ok",
		})
	})

	api := router.Group("/api")
	api.POST("/predict/mock", h.mockPredict)

	sessions := api.Group("/sessions")
	sessions.POST("", h.createSession)
	sessions.GET("/:id", h.getSession)
	sessions.PATCH("/:id/profile", h.updateProfile)
	sessions.POST("/:id/predict", h.predict)
	sessions.DELETE("/:id", h.endSession)
	if deps.Audit != nil {
		sessions.GET("/:id/assessments", h.listAssessments)
	}

	return router
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
