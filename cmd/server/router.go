package main

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/checkins"
	"github.com/inkwellhq/inkwell/internal/config"
	"github.com/inkwellhq/inkwell/internal/cron"
	"github.com/inkwellhq/inkwell/internal/generation"
	"github.com/inkwellhq/inkwell/internal/health"
	"github.com/inkwellhq/inkwell/internal/jobs"
	"github.com/inkwellhq/inkwell/internal/narratives"
	"github.com/inkwellhq/inkwell/internal/platforms"
	"github.com/inkwellhq/inkwell/internal/scheduler"
	"github.com/inkwellhq/inkwell/internal/settings"
)

func newRouter(
	cfg *config.Config,
	db *gorm.DB,
	registry *platforms.Registry,
	orchestrator *generation.Orchestrator,
	limiter *generation.RateLimiter,
	evaluator *scheduler.Evaluator,
	jobService *jobs.Service,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("inkwell_session", store))

	router.GET("/health", gin.WrapF(health.Handler))

	router.GET("/auth/google", auth.HandleLogin)
	router.GET("/auth/google/callback", auth.HandleCallback(db))
	router.POST("/auth/logout", auth.HandleLogout)

	api := router.Group("/api", auth.RequireAuth())
	{
		api.POST("/checkins", checkins.CreateHandler(db))
		api.GET("/checkins", checkins.ListHandler(db))
		api.DELETE("/checkins/:id", checkins.DeleteHandler(db))

		api.GET("/narratives", narratives.ListHandler(db))
		api.GET("/narratives/limits", narratives.LimitsHandler(limiter))
		api.GET("/narratives/:id", narratives.GetHandler(db))
		api.GET("/narratives/:id/versions", narratives.VersionsHandler(db))
		api.POST("/narratives/generate", narratives.GenerateHandler(db, orchestrator, limiter))
		api.POST("/narratives/:id/regenerate", narratives.RegenerateHandler(orchestrator, limiter))
		api.GET("/usage", narratives.UsageHandler(db))

		api.GET("/settings/schedule", settings.GetScheduleHandler(db))
		api.PUT("/settings/schedule", settings.UpdateScheduleHandler(db))
		api.GET("/settings/tone", settings.GetToneHandler(db))
		api.PUT("/settings/tone", settings.UpdateToneHandler(db, registry))
		api.GET("/settings/platforms", settings.ListPlatformsHandler(registry))
	}

	trigger := router.Group("/api/cron", cron.RequireSecret(cfg.CronSecret))
	{
		trigger.POST("/tick", cron.TickHandler(evaluator))
		trigger.POST("/process", cron.ProcessHandler(jobService))
	}

	return router
}
