package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rheumactive/internal/microservices/http-api/handler"
	"rheumactive/internal/microservices/http-api/models"
	"rheumactive/internal/microservices/http-api/repository"
	"rheumactive/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- MOCK SERVICE ---

type MockMeasurementService struct {
	mock.Mock
}

func (m *MockMeasurementService) Save(ctx context.Context, in service.SaveMeasurementInput) (*models.Measurement, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Measurement), args.Error(1)
}

func (m *MockMeasurementService) Query(ctx context.Context, q service.MeasurementQuery) (*service.MeasurementPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MeasurementPage), args.Error(1)
}

func (m *MockMeasurementService) GetByID(ctx context.Context, id string) (*models.Measurement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Measurement), args.Error(1)
}

// --- SETUP ---

func setupMeasurementRouter(svc service.MeasurementService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler.NewMeasurementHandler(svc).RegisterRoutes(r.Group("/api/measurements"))
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// --- TESTS ---

func TestMeasurementHandler_Create(t *testing.T) {
	svc := new(MockMeasurementService)
	r := setupMeasurementRouter(svc)

	in := service.SaveMeasurementInput{Joint: "knee", Exercise: "flexion", Data: []float64{10, 95.5}}
	svc.On("Save", mock.Anything, in).Return(&models.Measurement{ID: "f3f1c5a8-4b0e-4a55-9d1b-7b8d2c9e0a11"}, nil)

	w := doJSON(r, http.MethodPost, "/api/measurements", gin.H{"joint": "knee", "exercise": "flexion", "data": []float64{10, 95.5}})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":"success","id":"f3f1c5a8-4b0e-4a55-9d1b-7b8d2c9e0a11"}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestMeasurementHandler_CreateMissingData(t *testing.T) {
	svc := new(MockMeasurementService)
	r := setupMeasurementRouter(svc)

	bodies := []gin.H{
		{"joint": "knee", "exercise": "flexion"},
		{"joint": "knee", "exercise": "flexion", "data": []float64{}},
		{"exercise": "flexion", "data": []float64{1}},
		{"joint": "knee", "data": []float64{1}},
	}
	for i, body := range bodies {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/measurements", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"status":"error","message":"Missing required data"}`, w.Body.String())
		})
	}
	svc.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestMeasurementHandler_CreateServiceErrors(t *testing.T) {
	svc := new(MockMeasurementService)
	r := setupMeasurementRouter(svc)
	svc.On("Save", mock.Anything, mock.MatchedBy(func(in service.SaveMeasurementInput) bool { return in.Joint == "bad" })).
		Return(nil, fmt.Errorf("%w: exercise is required", service.ErrInvalidMeasurement))
	svc.On("Save", mock.Anything, mock.MatchedBy(func(in service.SaveMeasurementInput) bool { return in.Joint == "knee" })).
		Return(nil, errors.New("database is down"))

	w := doJSON(r, http.MethodPost, "/api/measurements", gin.H{"joint": "bad", "exercise": " ", "data": []float64{1}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/measurements", gin.H{"joint": "knee", "exercise": "flexion", "data": []float64{1}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "database is down")
}

func TestMeasurementHandler_ListDefaults(t *testing.T) {
	svc := new(MockMeasurementService)
	r := setupMeasurementRouter(svc)

	svc.On("Query", mock.Anything, service.MeasurementQuery{Page: 1, PerPage: 10}).
		Return(&service.MeasurementPage{Data: []models.Measurement{}, Page: 1, PerPage: 10}, nil)

	w := doJSON(r, http.MethodGet, "/api/measurements", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"total":0,"page":1,"per_page":10,"total_pages":0}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestMeasurementHandler_ListPassesFilters(t *testing.T) {
	svc := new(MockMeasurementService)
	r := setupMeasurementRouter(svc)

	ts := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)
	want := service.MeasurementQuery{Page: 2, PerPage: 5, Joint: "elbow", Exercise: "flexion", Date: "2026-07-14"}
	svc.On("Query", mock.Anything, want).Return(&service.MeasurementPage{
		Data:       []models.Measurement{{ID: "a", Joint: "elbow", Exercise: "flexion", Timestamp: ts, MinAngle: 1, MaxAngle: 2, Data: []float64{1, 2}}},
		Total:      6,
		Page:       2,
		PerPage:    5,
		TotalPages: 2,
	}, nil)

	w := doJSON(r, http.MethodGet, "/api/measurements?page=2&per_page=5&joint=elbow&exercise=flexion&date=2026-07-14", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []struct {
			ID       string    `json:"id"`
			MaxAngle float64   `json:"max_angle"`
			Data     []float64 `json:"data"`
		} `json:"data"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "a", body.Data[0].ID)
	assert.Equal(t, 2.0, body.Data[0].MaxAngle)
	assert.EqualValues(t, 6, body.Total)
	assert.Equal(t, 2, body.TotalPages)
}

func TestMeasurementHandler_ListUnparsablePaging(t *testing.T) {
	svc := new(MockMeasurementService)
	r := setupMeasurementRouter(svc)
	svc.On("Query", mock.Anything, service.MeasurementQuery{Page: 1, PerPage: 10}).
		Return(&service.MeasurementPage{Page: 1, PerPage: 10}, nil)

	w := doJSON(r, http.MethodGet, "/api/measurements?page=two&per_page=", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestMeasurementHandler_ListBadDate(t *testing.T) {
	svc := new(MockMeasurementService)
	r := setupMeasurementRouter(svc)
	svc.On("Query", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: %q", service.ErrInvalidDate, "yesterday"))

	w := doJSON(r, http.MethodGet, "/api/measurements?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeasurementHandler_GetNotFound(t *testing.T) {
	svc := new(MockMeasurementService)
	r := setupMeasurementRouter(svc)
	svc.On("GetByID", mock.Anything, "nope").Return(nil, service.ErrMeasurementNotFound)

	w := doJSON(r, http.MethodGet, "/api/measurements/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Measurement not found"}`, w.Body.String())
}

// end to end through the real service and the in-memory repository
func TestMeasurementHandler_SaveThenFetch(t *testing.T) {
	svc := service.NewMeasurementService(repository.NewMemoryMeasurementRepository(), nil)
	r := setupMeasurementRouter(svc)

	w := doJSON(r, http.MethodPost, "/api/measurements", gin.H{"joint": "shoulder", "exercise": "abduction", "data": []float64{20, 160.5, 90}})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(r, http.MethodGet, "/api/measurements/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Joint    string  `json:"joint"`
		MinAngle float64 `json:"min_angle"`
		MaxAngle float64 `json:"max_angle"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "shoulder", got.Joint)
	assert.Equal(t, 20.0, got.MinAngle)
	assert.Equal(t, 160.5, got.MaxAngle)

	w = doJSON(r, http.MethodGet, "/api/measurements?joint=shoulder", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)
}

func TestMeasurementHandler_ListHugePage(t *testing.T) {
	svc := service.NewMeasurementService(repository.NewMemoryMeasurementRepository(), nil)
	r := setupMeasurementRouter(svc)

	w := doJSON(r, http.MethodPost, "/api/measurements", gin.H{"joint": "knee", "exercise": "flexion", "data": []float64{10, 95}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, "/api/measurements?page=922337203685477582", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data  []json.RawMessage `json:"data"`
		Total int64             `json:"total"`
		Page  int               `json:"page"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Data)
	assert.EqualValues(t, 1, body.Total)
	assert.Greater(t, body.Page, 1)
}
