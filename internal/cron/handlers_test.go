package cron

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkwellhq/inkwell/internal/jobs"
	"github.com/inkwellhq/inkwell/internal/models"
	"github.com/inkwellhq/inkwell/internal/scheduler"
)

func testRouter(t *testing.T, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.CheckIn{},
		&models.GeneratedPost{},
		&models.GenerationJob{},
		&models.GenerationSchedule{},
	))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobService := jobs.NewService(db, nil, log)
	evaluator := scheduler.NewEvaluator(db, jobService, log)

	router := gin.New()
	group := router.Group("/api/cron", RequireSecret(secret))
	group.POST("/tick", TickHandler(evaluator))
	group.POST("/process", ProcessHandler(jobService))
	return router
}

func TestRequireSecretRejectsMissingHeader(t *testing.T) {
	router := testRouter(t, "topsecret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cron/tick", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireSecretRejectsWrongSecret(t *testing.T) {
	router := testRouter(t, "topsecret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cron/tick", nil)
	req.Header.Set(SecretHeader, "guess")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireSecretDisabledWhenUnconfigured(t *testing.T) {
	router := testRouter(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cron/tick", nil)
	req.Header.Set(SecretHeader, "")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTickAndProcessRespondWithSummaries(t *testing.T) {
	router := testRouter(t, "topsecret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cron/tick", nil)
	req.Header.Set(SecretHeader, "topsecret")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"schedules_checked":0,"jobs_created":0}`, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/cron/process", nil)
	req.Header.Set(SecretHeader, "topsecret")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"processed":0,"completed":0,"failed":0}`, w.Body.String())
}
