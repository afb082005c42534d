package checkins

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkwellhq/inkwell/internal/models"
)

func testRouter(t *testing.T) (*gin.Engine, *gorm.DB, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.CheckIn{}))

	user := models.User{Email: "writer@example.com", Timezone: "UTC"}
	require.NoError(t, db.Create(&user).Error)

	router := gin.New()
	asUser := func(c *gin.Context) { c.Set("user_id", user.ID) }
	router.POST("/api/checkins", asUser, CreateHandler(db))
	router.GET("/api/checkins", asUser, ListHandler(db))
	router.DELETE("/api/checkins/:id", asUser, DeleteHandler(db))
	return router, db, &user
}

func TestCreateRejectsEmptyAndOversizedContent(t *testing.T) {
	router, _, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/checkins",
		strings.NewReader(`{"content":"   "}`))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	oversized := strings.Repeat("x", models.MaxCheckInLength+1)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/checkins",
		strings.NewReader(`{"content":"`+oversized+`"}`))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAndListNewestFirst(t *testing.T) {
	router, _, _ := testRouter(t)

	for _, content := range []string{"first note", "second note"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/checkins",
			strings.NewReader(`{"content":"`+content+`"}`))
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/checkins", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		CheckIns []checkInResponse `json:"check_ins"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.CheckIns, 2)
	assert.NotEmpty(t, body.CheckIns[0].ID)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	router, db, _ := testRouter(t)

	other := models.User{Email: "other@example.com", Timezone: "UTC"}
	require.NoError(t, db.Create(&other).Error)
	foreign := models.CheckIn{PublicID: "foreign-note", UserID: other.ID, Content: "not yours"}
	require.NoError(t, db.Create(&foreign).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/checkins/foreign-note", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.CheckIn{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "foreign check-in survives")
}

func TestDeleteRemovesOwnCheckIn(t *testing.T) {
	router, db, user := testRouter(t)

	checkIn := models.CheckIn{PublicID: "mine", UserID: user.ID, Content: "a note"}
	require.NoError(t, db.Create(&checkIn).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/checkins/mine", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.CheckIn{}).Count(&count).Error)
	assert.Zero(t, count)
}
