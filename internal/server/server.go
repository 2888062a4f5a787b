// internal/server/server.go
package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	apperrors "restaurant-assistant/internal/common/errors"
	"restaurant-assistant/internal/common/logger"
	"restaurant-assistant/internal/models"
	naturallanguagequery "restaurant-assistant/internal/workers/assistant/natural-language-query"
)

// Assistant is the pipeline entry point the routes call into.
type Assistant interface {
	Execute(ctx context.Context, input *naturallanguagequery.Input) *models.Response
	ExecuteQuery(ctx context.Context, input *naturallanguagequery.QueryInput) *models.Response
}

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Blocklist denies a (user, ip) pair ahead of the usage counters.
type Blocklist interface {
	Block(ctx context.Context, userID, ip string, ttl time.Duration) error
	Unblock(ctx context.Context, userID, ip string) error
}

const adminTokenHeader = "X-Admin-Token"

type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ServiceName  string
	AdminToken   string
}

type Server struct {
	config    *Config
	assistant Assistant
	checks    map[string]HealthCheck
	blocklist Blocklist
	router    *gin.Engine
	http      *http.Server
	logger    logger.Logger
}

type chatRequest struct {
	Utterance    string `json:"utterance"`
	RestaurantID string `json:"restaurantId"`
	UserID       string `json:"userId"`
}

type queryRequest struct {
	Query        string `json:"query"`
	RestaurantID string `json:"restaurantId"`
	UserID       string `json:"userId"`
}

type blockRequest struct {
	UserID     string `json:"userId" form:"userId" binding:"required"`
	IP         string `json:"ip" form:"ip" binding:"required"`
	TTLSeconds int    `json:"ttlSeconds" form:"ttlSeconds" binding:"gte=0"`
}

func New(config *Config, assistant Assistant, checks map[string]HealthCheck, log logger.Logger) *Server {
	s := &Server{
		config:    config,
		assistant: assistant,
		checks:    checks,
		logger:    log.WithFields(map[string]interface{}{"component": "http"}),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.ServiceName != "" {
		router.Use(otelgin.Middleware(config.ServiceName))
	}
	router.Use(s.requestLogger())

	api := router.Group("/api/assistant")
	api.POST("/chat", s.chat)
	api.POST("/query", s.query)

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router = router
	s.http = &http.Server{
		Addr:         config.Address,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// EnableBlocklist mounts the admin block routes. They stay unmounted without
// an admin token.
func (s *Server) EnableBlocklist(b Blocklist) bool {
	if b == nil || s.config.AdminToken == "" {
		s.logger.Info("admin blocklist routes disabled", nil)
		return false
	}
	s.blocklist = b
	admin := s.router.Group("/api/assistant/admin", s.requireAdmin())
	admin.POST("/blocks", s.block)
	admin.DELETE("/blocks", s.unblock)
	return true
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"address": s.config.Address})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// chat answers 200 for every pipeline outcome; failures carry success=false.
func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	resp := s.assistant.Execute(c.Request.Context(), &naturallanguagequery.Input{
		Utterance:    req.Utterance,
		RestaurantID: req.RestaurantID,
		UserID:       req.UserID,
		ClientIP:     c.ClientIP(),
	})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	resp := s.assistant.ExecuteQuery(c.Request.Context(), &naturallanguagequery.QueryInput{
		Query:        req.Query,
		RestaurantID: req.RestaurantID,
		UserID:       req.UserID,
		ClientIP:     c.ClientIP(),
	})
	c.JSON(http.StatusOK, resp)
}

func (s *Server) badRequest(c *gin.Context, err error) {
	s.logger.Warn("malformed request body", map[string]interface{}{
		"path":  c.FullPath(),
		"error": err.Error(),
	})
	c.JSON(http.StatusBadRequest, &models.Response{
		Success:  false,
		Response: apperrors.UserMessage(apperrors.ErrCodeValidationFailed),
	})
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	want := []byte(s.config.AdminToken)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(adminTokenHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			s.logger.Warn("admin request rejected", map[string]interface{}{
				"path":     c.FullPath(),
				"clientIp": c.ClientIP(),
			})
			c.AbortWithStatusJSON(http.StatusUnauthorized, &models.Response{
				Success:  false,
				Response: apperrors.UserMessage(apperrors.ErrCodeForbidden),
			})
			return
		}
		c.Next()
	}
}

func (s *Server) block(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if err := s.blocklist.Block(c.Request.Context(), req.UserID, req.IP, ttl); err != nil {
		s.blocklistFailed(c, err)
		return
	}
	s.logger.Info("caller blocked", map[string]interface{}{
		"blockedUserId": req.UserID,
		"blockedIp":     req.IP,
		"ttlSeconds":    req.TTLSeconds,
	})
	c.JSON(http.StatusOK, gin.H{"blocked": true})
}

func (s *Server) unblock(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	if err := s.blocklist.Unblock(c.Request.Context(), req.UserID, req.IP); err != nil {
		s.blocklistFailed(c, err)
		return
	}
	s.logger.Info("caller unblocked", map[string]interface{}{
		"blockedUserId": req.UserID,
		"blockedIp":     req.IP,
	})
	c.JSON(http.StatusOK, gin.H{"blocked": false})
}

func (s *Server) blocklistFailed(c *gin.Context, err error) {
	s.logger.Error("blocklist update failed", map[string]interface{}{"error": err.Error()})
	c.JSON(http.StatusServiceUnavailable, &models.Response{
		Success:  false,
		Response: apperrors.UserMessage(apperrors.ErrCodeStoreUnavailable),
	})
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/metrics" || c.FullPath() == "/healthz" {
			return
		}
		s.logger.Info("request handled", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"clientIp":   c.ClientIP(),
		})
	}
}
