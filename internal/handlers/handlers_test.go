package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nutriplan_backend/internal/auth"
	"nutriplan_backend/internal/imageprocessor"
	"nutriplan_backend/internal/middleware"
	"nutriplan_backend/internal/models"
	"nutriplan_backend/internal/queue"
	"nutriplan_backend/internal/services"
	"nutriplan_backend/internal/testutil"
	"nutriplan_backend/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	db     *gorm.DB
	router *gin.Engine
	maker  *auth.JWTMaker
	queue  *queue.MemoryQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	maker := auth.NewJWTMaker("test-secret", "nutriplan-test", time.Hour)
	chatQueue := queue.NewMemoryQueue(16)

	svc := services.NewServiceContainer(services.Dependencies{
		TokenMaker:     maker,
		RefreshTTL:     24 * time.Hour,
		ChatQueue:      chatQueue,
		ImageProcessor: imageprocessor.NewProcessor(85, 100),
		PhotoLimits: services.PhotoLimits{
			MaxSize:      1 << 20,
			AllowedTypes: []string{"image/png", "image/jpeg"},
		},
		FreeTier: services.FreeTier{PlanName: "Free", NutritionPlanLimit: 5},
	})

	base := NewBaseHandler(validator.New(), middleware.AuthMiddleware(maker))
	noLimit := func(c *gin.Context) { c.Next() }
	appHandlers := &AppHandlers{
		AuthHandler:         NewAuthHandler(base, svc.AuthService, noLimit),
		UserHandler:         NewUserHandler(base, svc.UserService),
		PhotoHandler:        NewPhotoHandler(base, svc.PhotoService, 1<<20),
		PlanHandler:         NewPlanHandler(base, svc.PlanService),
		SubscriptionHandler: NewSubscriptionHandler(base, svc.SubscriptionService),
		NutritionHandler:    NewNutritionHandler(base, svc.NutritionPlanService),
		ChatHandler:         NewChatHandler(base, svc.ChatService),
		ProviderHandler:     NewProviderHandler(base, svc.ProviderService),
		AnalyticsHandler:    NewAnalyticsHandler(base, svc.AnalyticsService),
	}

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.DBMiddleware(db))
	appHandlers.RegisterRoutes(router.Group("/api/v1"))

	ts := &testServer{db: db, router: router, maker: maker, queue: chatQueue}
	t.Cleanup(func() { _ = chatQueue.Close() })
	return ts
}

func (s *testServer) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, r.Name)
	}
	token, _, err := s.maker.GenerateToken(user.ID, user.Email, roles, auth.PlanInfo{PlanName: "Free", NutritionPlanLimit: 5})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return s.do(t, method, path, token, body, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, w, &body)
	return body.Error.Code
}

func createProvider(t *testing.T, ts *testServer, token, name string, lat, lng float64) string {
	t.Helper()
	w := ts.doJSON(t, http.MethodPost, "/api/v1/admin/providers", token, map[string]interface{}{
		"name":      name,
		"category":  "dietitian",
		"address":   "Abay 10",
		"city":      "Almaty",
		"latitude":  lat,
		"longitude": lng,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)
	return created.ID
}

func TestProviderHandler_Nearby(t *testing.T) {
	ts := newTestServer(t)
	admin := testutil.CreateUser(t, ts.db, "admin@example.com", "password123", models.RoleUser, models.RoleAdmin)
	adminToken := ts.tokenFor(t, admin)

	far := createProvider(t, ts, adminToken, "Far", 43.2500, 76.9500)
	near := createProvider(t, ts, adminToken, "Near", 43.2390, 76.8900)
	createProvider(t, ts, adminToken, "Astana", 51.1600, 71.4700)
	equator := createProvider(t, ts, adminToken, "Equator", 0.0100, 0.0100)

	type nearbyBody struct {
		Providers []struct {
			ID         string   `json:"id"`
			DistanceKm *float64 `json:"distance_km"`
		} `json:"providers"`
		Total int `json:"total"`
	}

	t.Run("sorted by distance inside radius", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/providers/nearby?lat=43.238&lng=76.889&radius_km=20", "", nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body nearbyBody
		decode(t, w, &body)
		require.Equal(t, 2, body.Total)
		assert.Equal(t, near, body.Providers[0].ID)
		assert.Equal(t, far, body.Providers[1].ID)
		require.NotNil(t, body.Providers[0].DistanceKm)
		assert.Less(t, *body.Providers[0].DistanceKm, *body.Providers[1].DistanceKm)
	})

	t.Run("zero coordinates are valid", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/providers/nearby?lat=0&lng=0&radius_km=5", "", nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body nearbyBody
		decode(t, w, &body)
		require.Equal(t, 1, body.Total)
		assert.Equal(t, equator, body.Providers[0].ID)
	})

	t.Run("missing coordinates", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/providers/nearby?lat=43.2", "", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(t, w))
	})

	t.Run("latitude out of range", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/providers/nearby?lat=91&lng=10", "", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not a number", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/providers/nearby?lat=north&lng=10", "", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProviderHandler_CreateRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	user := testutil.CreateUser(t, ts.db, "user@example.com", "password123")

	w := ts.doJSON(t, http.MethodPost, "/api/v1/admin/providers", ts.tokenFor(t, user), map[string]interface{}{
		"name": "X", "category": "gym", "address": "a", "city": "b", "latitude": 1, "longitude": 1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.doJSON(t, http.MethodPost, "/api/v1/admin/providers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnalyticsHandler_Dashboard(t *testing.T) {
	ts := newTestServer(t)
	admin := testutil.CreateUser(t, ts.db, "admin@example.com", "password123", models.RoleUser, models.RoleAdmin)
	user := testutil.CreateUser(t, ts.db, "user@example.com", "password123")
	adminToken := ts.tokenFor(t, admin)

	t.Run("explicit range", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/admin/dashboard?date_from=2026-01-01&date_to=2026-01-31", adminToken, nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body struct {
			DateFrom time.Time `json:"date_from"`
			DateTo   time.Time `json:"date_to"`
			Users    struct {
				Total int64 `json:"total"`
			} `json:"users"`
		}
		decode(t, w, &body)
		assert.Equal(t, "2026-01-01", body.DateFrom.Format("2006-01-02"))
		assert.Equal(t, "2026-01-31", body.DateTo.Format("2006-01-02"))
		assert.EqualValues(t, 2, body.Users.Total)
	})

	t.Run("default range", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/admin/dashboard", adminToken, nil, "")
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("bad date", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/admin/dashboard?date_from=01.01.2026", adminToken, nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reversed range", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/admin/dashboard?date_from=2026-02-01&date_to=2026-01-01", adminToken, nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("regular user", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/admin/dashboard", ts.tokenFor(t, user), nil, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN", errorCode(t, w))
	})
}

func multipartPhoto(t *testing.T, field string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "avatar.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPhotoHandler_UploadAndGet(t *testing.T) {
	ts := newTestServer(t)
	user := testutil.CreateUser(t, ts.db, "user@example.com", "password123")
	token := ts.tokenFor(t, user)

	w := ts.do(t, http.MethodGet, "/api/v1/users/me/photo", token, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	body, contentType := multipartPhoto(t, "photo", encodePNG(t, 40, 30))
	w = ts.do(t, http.MethodPost, "/api/v1/users/me/photo", token, body, contentType)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	decode(t, w, &created)
	assert.Equal(t, 40, created.Width)
	assert.Equal(t, 30, created.Height)

	w = ts.do(t, http.MethodGet, "/api/v1/users/me/photo", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "40", w.Header().Get("X-Image-Width"))
	assert.Equal(t, "30", w.Header().Get("X-Image-Height"))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 40, cfg.Width)

	// публичный доступ по id
	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%s/photo", user.ID), token, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/v1/users/me/photo", token, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/v1/users/me/photo", token, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPhotoHandler_UploadRejects(t *testing.T) {
	ts := newTestServer(t)
	user := testutil.CreateUser(t, ts.db, "user@example.com", "password123")
	token := ts.tokenFor(t, user)

	t.Run("wrong field", func(t *testing.T) {
		body, contentType := multipartPhoto(t, "file", encodePNG(t, 4, 4))
		w := ts.do(t, http.MethodPost, "/api/v1/users/me/photo", token, body, contentType)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not an image", func(t *testing.T) {
		body, contentType := multipartPhoto(t, "photo", []byte("plain text pretending to be a png"))
		w := ts.do(t, http.MethodPost, "/api/v1/users/me/photo", token, body, contentType)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", errorCode(t, w))
	})

	t.Run("too large", func(t *testing.T) {
		body, contentType := multipartPhoto(t, "photo", bytes.Repeat([]byte{0x89}, 1<<20+10))
		w := ts.do(t, http.MethodPost, "/api/v1/users/me/photo", token, body, contentType)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		body, contentType := multipartPhoto(t, "photo", encodePNG(t, 4, 4))
		w := ts.do(t, http.MethodPost, "/api/v1/users/me/photo", "", body, contentType)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestChatHandler_Flow(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice@example.com", "password123")
	bob := testutil.CreateUser(t, ts.db, "bob@example.com", "password123")
	admin := testutil.CreateUser(t, ts.db, "admin@example.com", "password123", models.RoleUser, models.RoleAdmin)
	aliceToken := ts.tokenFor(t, alice)
	bobToken := ts.tokenFor(t, bob)
	adminToken := ts.tokenFor(t, admin)

	w := ts.doJSON(t, http.MethodPost, "/api/v1/chat/messages", aliceToken, map[string]string{"content": "Можно ли заменить гречку рисом?"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var sent struct {
		ID        string `json:"id"`
		SessionID string `json:"session_id"`
		Status    string `json:"status"`
	}
	decode(t, w, &sent)
	assert.Equal(t, string(models.ChatMessageStatusPending), sent.Status)
	require.NotEmpty(t, sent.SessionID)
	assert.Equal(t, 1, ts.queue.Len())

	w = ts.doJSON(t, http.MethodPost, "/api/v1/chat/messages", aliceToken, map[string]string{"session_id": sent.SessionID, "content": "И еще вопрос"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var page struct {
		Data  []map[string]interface{} `json:"data"`
		Total int64                    `json:"total"`
	}

	w = ts.do(t, http.MethodGet, "/api/v1/chat/sessions", aliceToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &page)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, sent.SessionID, page.Data[0]["session_id"])
	assert.EqualValues(t, 2, page.Data[0]["message_count"])

	messagesPath := "/api/v1/chat/sessions/" + sent.SessionID + "/messages"
	w = ts.do(t, http.MethodGet, messagesPath, aliceToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &page)
	assert.EqualValues(t, 2, page.Total)

	t.Run("other user cannot read", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, messagesPath, bobToken, nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("other user cannot post into session", func(t *testing.T) {
		w := ts.doJSON(t, http.MethodPost, "/api/v1/chat/messages", bobToken, map[string]string{"session_id": sent.SessionID, "content": "hi"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("empty content", func(t *testing.T) {
		w := ts.doJSON(t, http.MethodPost, "/api/v1/chat/messages", aliceToken, map[string]string{"content": ""})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("admin reply and listing", func(t *testing.T) {
		w := ts.doJSON(t, http.MethodPost, "/api/v1/admin/chat/sessions/"+sent.SessionID+"/messages", adminToken, map[string]string{"content": "Можно"})
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

		var reply struct {
			AuthorRole string `json:"author_role"`
			UserID     string `json:"user_id"`
		}
		decode(t, w, &reply)
		assert.Equal(t, string(models.ChatAuthorAdmin), reply.AuthorRole)
		assert.Equal(t, alice.ID, reply.UserID)

		w = ts.do(t, http.MethodGet, "/api/v1/admin/chat/sessions", adminToken, nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		w = ts.do(t, http.MethodGet, "/api/v1/admin/chat/sessions", aliceToken, nil, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("mark read", func(t *testing.T) {
		w := ts.do(t, http.MethodPut, "/api/v1/chat/sessions/"+sent.SessionID+"/read", aliceToken, nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body struct {
			SessionID string `json:"session_id"`
		}
		decode(t, w, &body)
		assert.Equal(t, sent.SessionID, body.SessionID)
	})
}
