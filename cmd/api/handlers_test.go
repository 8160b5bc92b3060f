package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/cms"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/database"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/middleware"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// MockRepo is a mock implementation of cms.Repository
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) CreateRecord(ctx context.Context, record *models.Record) error {
	args := m.Called(ctx, record)
	if record.ID == "" {
		record.ID = "generated-id"
	}
	return args.Error(0)
}

func (m *MockRepo) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// copy so handlers never share state between calls
	rec := *args.Get(0).(*models.Record)
	return &rec, args.Error(1)
}

func (m *MockRepo) UpdateRecord(ctx context.Context, record *models.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRepo) ListRecords(ctx context.Context, kind models.RecordKind, limit, offset int) ([]*models.Record, error) {
	args := m.Called(ctx, kind, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Record), args.Error(1)
}

func (m *MockRepo) DeleteRecord(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockObjects is a mock implementation of ObjectStore
type MockObjects struct {
	mock.Mock
}

func (m *MockObjects) GetURL(ctx context.Context, objectName string) (string, error) {
	args := m.Called(ctx, objectName)
	return args.String(0), args.Error(1)
}

func (m *MockObjects) BatchDelete(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func notFound(id string) error {
	return fmt.Errorf("record %s: %w", id, database.ErrRecordNotFound)
}

func testVideo() *models.Record {
	return &models.Record{
		ID:   "video-1",
		Kind: models.RecordKindScrollableVideo,
		Name: "Harbour",
		Data: json.RawMessage(`{"videoSrc":"harbour.mp4","editorState":{"captions":[{"id":1,"startTime":3,"text":"first"},{"id":2,"startTime":8,"text":"second"}],"videoSrc":"harbour.mp4","videoDuration":10}}`),
	}
}

func setupTestAPI(repo *MockRepo, objects *MockObjects) (*gin.Engine, *API) {
	gin.SetMode(gin.TestMode)
	logger := logging.NewNopLogger()
	api := &API{
		records: cms.NewService(repo, nil, nil, cms.Options{DefaultDuration: 10}, logger),
		objects: objects,
		checks:  map[string]HealthFunc{},
		logger:  logger,
	}
	return setupRouter(api, nil), api
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			json.NewEncoder(&buf).Encode(b)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestHealthCheck(t *testing.T) {
	router, api := setupTestAPI(new(MockRepo), nil)

	w := doJSON(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	api.checks["database"] = func(context.Context) error { return errors.New("connection refused") }
	w = doJSON(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "database", decodeBody(t, w)["dependency"])
}

func TestCreateRecordHandler(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)

	repo.On("CreateRecord", mock.Anything, mock.MatchedBy(func(r *models.Record) bool {
		return r.Kind == models.RecordKindKaraoke && r.Name == "Chorus"
	})).Return(nil)

	w := doJSON(router, "POST", "/api/v1/records", map[string]interface{}{
		"kind": "karaoke",
		"name": "Chorus",
		"data": map[string]interface{}{"webVtt": "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nla\n", "muteHint": true},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "generated-id", decodeBody(t, w)["id"])
	repo.AssertExpectations(t)
}

func TestCreateRecordHandler_UnknownKind(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)

	w := doJSON(router, "POST", "/api/v1/records", map[string]interface{}{"kind": "slideshow"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "unknown record kind")
	repo.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything)
}

func TestCreateRecordHandler_BadJSON(t *testing.T) {
	router, _ := setupTestAPI(new(MockRepo), nil)

	w := doJSON(router, "POST", "/api/v1/records", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRecordHandler(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)

	repo.On("GetRecord", mock.Anything, "video-1").Return(testVideo(), nil)
	repo.On("GetRecord", mock.Anything, "missing").Return(nil, notFound("missing"))

	w := doJSON(router, "GET", "/api/v1/records/video-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Harbour", decodeBody(t, w)["name"])

	w = doJSON(router, "GET", "/api/v1/records/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "record not found")
}

func TestListRecordsHandler(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)

	repo.On("ListRecords", mock.Anything, models.RecordKindScrollableVideo, 20, 40).
		Return([]*models.Record{testVideo()}, nil)

	w := doJSON(router, "GET", "/api/v1/records?kind=scrollable_video&limit=500&offset=40", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Len(t, response["records"], 1)
	assert.Equal(t, float64(20), response["limit"])
	repo.AssertExpectations(t)

	w = doJSON(router, "GET", "/api/v1/records?kind=slideshow", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateRecordHandler(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)

	repo.On("GetRecord", mock.Anything, "video-1").Return(testVideo(), nil)
	repo.On("UpdateRecord", mock.Anything, mock.MatchedBy(func(r *models.Record) bool {
		return r.ID == "video-1" && r.Name == "Renamed"
	})).Return(nil)

	w := doJSON(router, "PUT", "/api/v1/records/video-1", map[string]interface{}{
		"name": "Renamed",
		"data": map[string]interface{}{"videoSrc": "new.mp4"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestDeleteRecordHandler(t *testing.T) {
	repo := new(MockRepo)
	objects := new(MockObjects)
	router, _ := setupTestAPI(repo, objects)

	repo.On("DeleteRecord", mock.Anything, "video-1").Return(nil)
	repo.On("DeleteRecord", mock.Anything, "missing").Return(notFound("missing"))
	objects.On("BatchDelete", mock.Anything, []string{"embeds/video-1.json", "paths/video-1.yaml", "cues/video-1.vtt"}).
		Return(errors.New("bucket unavailable")).Once()

	w := doJSON(router, "DELETE", "/api/v1/records/video-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video-1", decodeBody(t, w)["record_id"])

	w = doJSON(router, "DELETE", "/api/v1/records/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	objects.AssertExpectations(t)
}

func TestListRegionsHandler(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)
	repo.On("GetRecord", mock.Anything, "video-1").Return(testVideo(), nil)

	w := doJSON(router, "GET", "/api/v1/records/video-1/regions", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	regions := response["regions"].([]interface{})
	require.Len(t, regions, 2)
	assert.Equal(t, float64(3), regions[0].(map[string]interface{})["startTime"])
	assert.Equal(t, []interface{}{"1", "2"}, response["ids"])
}

func TestInsertRegionHandler(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)

	repo.On("GetRecord", mock.Anything, "video-1").Return(testVideo(), nil)
	repo.On("UpdateRecord", mock.Anything, mock.MatchedBy(func(r *models.Record) bool {
		return bytes.Contains(r.Data, []byte(`"text":"middle"`))
	})).Return(nil)

	w := doJSON(router, "POST", "/api/v1/records/video-1/regions", `{"startTime": 5, "text": "middle"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, float64(5), response["startTime"])
	assert.NotEmpty(t, response["id"])
	repo.AssertExpectations(t)
}

func TestInsertRegionHandler_Invalid(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)
	repo.On("GetRecord", mock.Anything, "video-1").Return(testVideo(), nil)

	w := doJSON(router, "POST", "/api/v1/records/video-1/regions", `{"startTime": -1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "UpdateRecord", mock.Anything, mock.Anything)
}

func TestPatchRegionHandler(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)

	repo.On("GetRecord", mock.Anything, "video-1").Return(testVideo(), nil)
	repo.On("UpdateRecord", mock.Anything, mock.Anything).Return(nil)

	w := doJSON(router, "PATCH", "/api/v1/records/video-1/regions/1", `{"startTime": 9, "set": {"text": "late"}}`)
	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, float64(9), response["startTime"])
	assert.Equal(t, "late", response["text"])

	w = doJSON(router, "PATCH", "/api/v1/records/video-1/regions/404", `{"unset": ["text"]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveRegionHandler(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)

	repo.On("GetRecord", mock.Anything, "video-1").Return(testVideo(), nil)
	repo.On("UpdateRecord", mock.Anything, mock.MatchedBy(func(r *models.Record) bool {
		return !bytes.Contains(r.Data, []byte(`"second"`))
	})).Return(nil)

	w := doJSON(router, "DELETE", "/api/v1/records/video-1/regions/2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestResolveHandler(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)
	repo.On("GetRecord", mock.Anything, "video-1").Return(testVideo(), nil)

	w := doJSON(router, "GET", "/api/v1/records/video-1/resolve?t=7.99", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeBody(t, w)
	assert.Equal(t, float64(0), response["index"])

	w = doJSON(router, "GET", "/api/v1/records/video-1/resolve?t=1", nil)
	response = decodeBody(t, w)
	assert.Equal(t, float64(-1), response["index"])
	assert.Nil(t, response["region"])

	w = doJSON(router, "GET", "/api/v1/records/video-1/resolve", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, "GET", "/api/v1/records/video-1/resolve?t=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMapProgressHandler(t *testing.T) {
	repo := new(MockRepo)
	router, _ := setupTestAPI(repo, nil)
	repo.On("GetRecord", mock.Anything, "video-1").Return(testVideo(), nil)

	w := doJSON(router, "GET", "/api/v1/records/video-1/map?progress=1.37", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(10), decodeBody(t, w)["time"])
}

func TestEmbedHandlers(t *testing.T) {
	repo := new(MockRepo)
	objects := new(MockObjects)
	router, _ := setupTestAPI(repo, objects)

	repo.On("GetRecord", mock.Anything, "video-1").Return(testVideo(), nil)
	objects.On("GetURL", mock.Anything, "embeds/video-1.json").Return("https://objects.example.com/embeds/video-1.json?sig=abc", nil)

	w := doJSON(router, "GET", "/api/v1/records/video-1/embed", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "react-scrollable-video", decodeBody(t, w)["component"])

	w = doJSON(router, "GET", "/api/v1/records/video-1/embed/url", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decodeBody(t, w)["url"], "embeds/video-1.json")
	objects.AssertExpectations(t)
}

func TestMutedHandlers(t *testing.T) {
	router, _ := setupTestAPI(new(MockRepo), nil)

	w := doJSON(router, "GET", "/api/v1/sessions/page-1/muted", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["muted"])

	w = doJSON(router, "PUT", "/api/v1/sessions/page-1/muted", `{"muted": false}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", "/api/v1/sessions/page-1/muted", nil)
	assert.Equal(t, false, decodeBody(t, w)["muted"])

	w = doJSON(router, "PUT", "/api/v1/sessions/page-1/muted", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimitedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logging.NewNopLogger()
	api := &API{
		records: cms.NewService(new(MockRepo), nil, nil, cms.Options{}, logger),
		checks:  map[string]HealthFunc{},
		logger:  logger,
	}
	router := setupRouter(api, middleware.NewRateLimiter(1, 1))

	assert.Equal(t, http.StatusOK, doJSON(router, "GET", "/api/v1/sessions/s/muted", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doJSON(router, "GET", "/api/v1/sessions/s/muted", nil).Code)
	// health is never limited
	assert.Equal(t, http.StatusOK, doJSON(router, "GET", "/health", nil).Code)
}
