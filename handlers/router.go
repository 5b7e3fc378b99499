package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"nexto/mailer"
	"nexto/metrics"
	"nexto/store"
)

type Deps struct {
	Store     store.Store
	Mailer    mailer.Mailer
	Metrics   *metrics.Metrics
	Log       *slog.Logger
	ClientURL string
	PublicURL string
}

// activeStore is implemented by stores that can name where requests go.
type activeStore interface {
	Active() string
}

func NewRouter(d Deps) *gin.Engine {
	if d.ClientURL == "" {
		d.ClientURL = "http://localhost:3000"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(d.Log, d.Metrics))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{d.ClientURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", health(d.Store))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	tasks := NewTaskHandler(d.Store, d.Log)
	auth := NewAuthHandler(d.Mailer, d.PublicURL, d.Log)

	tasks.Register(r)
	auth.Register(r)

	api := r.Group("/api")
	{
		tasks.Register(api)
		auth.Register(api)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found", "path": c.Request.URL.Path})
	})

	return r
}

func health(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := "primary"
		if a, ok := s.(activeStore); ok {
			active = a.Active()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"message":   "NexTo API is running",
			"store":     active,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func requestLogger(log *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(status), elapsed.Seconds())
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", elapsed)
	}
}
