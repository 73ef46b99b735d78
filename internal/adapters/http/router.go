// Package http exposes the credential-issuing API.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Yourgotopyromaniac/livestream-tech/internal/auth"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/config"
	"github.com/Yourgotopyromaniac/livestream-tech/internal/domain"
)

type tokenRequest struct {
	Room     string `json:"room" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Identity string `json:"identity"`
	Host     bool   `json:"host"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

func SetupRouter(cfg *config.Config, issuer *auth.Issuer) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	limiter := NewIssueRateLimiter(10, time.Minute)

	api := r.Group("/api")

	api.POST("/token", func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		var req tokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		identity := req.Identity
		if identity == "" {
			identity = uuid.NewString()
		}
		token, err := issuer.IssueCredential(domain.RoomID(req.Room), domain.Identity(identity), req.Name, req.Host)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Str("room", req.Room).Msg("issue failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Info().Str("module", "adapters.http").
			Str("room", req.Room).
			Str("identity", identity).
			Bool("host", req.Host).
			Msg("token issued")
		c.JSON(http.StatusOK, tokenResponse{Token: token, Identity: identity})
	})

	api.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
