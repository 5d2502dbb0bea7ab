package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark/facegen"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/scoring"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/service"
)

type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Analyze(ctx context.Context, image []byte, opts service.Options) (*domain.Analysis, error) {
	args := m.Called(ctx, image, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analysis), args.Error(1)
}

func (m *MockAnalysisService) AnalyzeLandmarks(ctx context.Context, in service.LandmarkInput, opts service.Options) (*domain.Analysis, error) {
	args := m.Called(ctx, in, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analysis), args.Error(1)
}

func (m *MockAnalysisService) Get(ctx context.Context, id uuid.UUID, opts service.Options) (*domain.Analysis, error) {
	args := m.Called(ctx, id, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analysis), args.Error(1)
}

func (m *MockAnalysisService) List(ctx context.Context, limit, offset int) ([]domain.Analysis, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Analysis), args.Error(1)
}

func (m *MockAnalysisService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestApp(h *AnalysisHandler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
	app.Use(requestid.New())
	app.Post("/v1/analyses", h.Analyze)
	app.Post("/v1/analyses/landmarks", h.AnalyzeLandmarks)
	app.Get("/v1/analyses", h.List)
	app.Get("/v1/analyses/:id", h.Get)
	app.Delete("/v1/analyses/:id", h.Delete)
	return app
}

func createMultipartRequest(image []byte, contentType string, fields map[string]string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}

	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="face.jpg"`)
		h.Set("Content-Type", contentType)
		part, _ := writer.CreatePart(h)
		_, _ = part.Write(image)
	}

	_ = writer.Close()
	return body, writer.FormDataContentType()
}

func sampleAnalysis() *domain.Analysis {
	return &domain.Analysis{
		ID:        uuid.New(),
		Source:    domain.SourceImage,
		Profile:   scoring.ProfileExtended,
		Topology:  "face_mesh_478",
		Overall:   71,
		Potential: 71,
		Facets:    map[scoring.Facet]int{scoring.FacetJawline: 86},
		Warnings:  []scoring.Warning{},
	}
}

func errorCode(t *testing.T, resp io.Reader) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp).Decode(&body))
	return body.Error.Code
}

func TestAnalysisHandler_Analyze(t *testing.T) {
	image := []byte("\xff\xd8\xff fake jpeg")

	tests := []struct {
		name        string
		image       []byte
		contentType string
		fields      map[string]string
		setupMock   func(*MockAnalysisService)
		wantStatus  int
		wantCode    string
	}{
		{
			name:        "scores the uploaded face",
			image:       image,
			contentType: "image/jpeg",
			setupMock: func(m *MockAnalysisService) {
				m.On("Analyze", mock.Anything, image, service.Options{}).Return(sampleAnalysis(), nil)
			},
			wantStatus: 201,
		},
		{
			name:        "passes response options",
			image:       image,
			contentType: "image/png",
			fields:      map[string]string{"include_landmarks": "true", "overlay": "1"},
			setupMock: func(m *MockAnalysisService) {
				m.On("Analyze", mock.Anything, image, service.Options{IncludeLandmarks: true, Overlay: true}).Return(sampleAnalysis(), nil)
			},
			wantStatus: 201,
		},
		{
			name:       "missing image",
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: 422,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:        "unsupported content type",
			image:       image,
			contentType: "image/gif",
			setupMock:   func(m *MockAnalysisService) {},
			wantStatus:  422,
			wantCode:    "INVALID_IMAGE",
		},
		{
			name:        "bad boolean flag",
			image:       image,
			contentType: "image/jpeg",
			fields:      map[string]string{"overlay": "maybe"},
			setupMock:   func(m *MockAnalysisService) {},
			wantStatus:  422,
			wantCode:    "VALIDATION_FAILED",
		},
		{
			name:        "no face detected",
			image:       image,
			contentType: "image/jpeg",
			setupMock: func(m *MockAnalysisService) {
				m.On("Analyze", mock.Anything, image, service.Options{}).Return(nil, domain.ErrNoFaceDetected)
			},
			wantStatus: 422,
			wantCode:   "NO_FACE_DETECTED",
		},
		{
			name:        "detector unavailable",
			image:       image,
			contentType: "image/jpeg",
			setupMock: func(m *MockAnalysisService) {
				m.On("Analyze", mock.Anything, image, service.Options{}).Return(nil, domain.ErrDetectorUnavailable)
			},
			wantStatus: 503,
			wantCode:   "DETECTOR_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)
			app := createTestApp(NewAnalysisHandler(svc, testLogger(), 0))

			body, ct := createMultipartRequest(tt.image, tt.contentType, tt.fields)
			req := httptest.NewRequest("POST", "/v1/analyses", body)
			req.Header.Set("Content-Type", ct)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, resp.Body))
			} else {
				var got domain.Analysis
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
				assert.Equal(t, 71, got.Overall)
				assert.Equal(t, 86, got.Facets[scoring.FacetJawline])
			}

			svc.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_Analyze_TooLarge(t *testing.T) {
	svc := new(MockAnalysisService)
	app := createTestApp(NewAnalysisHandler(svc, testLogger(), 8))

	body, ct := createMultipartRequest([]byte("0123456789"), "image/jpeg", nil)
	req := httptest.NewRequest("POST", "/v1/analyses", body)
	req.Header.Set("Content-Type", ct)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 422, resp.StatusCode)
	svc.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalysisHandler_Analyze_CarriesRequestContext(t *testing.T) {
	svc := new(MockAnalysisService)
	image := []byte("img")
	svc.On("Analyze", mock.MatchedBy(func(ctx context.Context) bool {
		var buf bytes.Buffer
		_ = audit.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil))).Log(ctx, audit.Event{EventType: audit.EventImageAnalyzed})
		return bytes.Contains(buf.Bytes(), []byte(`\"request_id\":\"req-7\"`))
	}), image, service.Options{}).Return(sampleAnalysis(), nil)

	app := createTestApp(NewAnalysisHandler(svc, testLogger(), 0))
	body, ct := createMultipartRequest(image, "image/jpeg", nil)
	req := httptest.NewRequest("POST", "/v1/analyses", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(fiber.HeaderXRequestID, "req-7")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	svc.AssertExpectations(t)
}

func landmarksBody(t *testing.T, n int, extra map[string]any) *bytes.Buffer {
	t.Helper()
	mesh := facegen.Reference().Mesh(landmark.FaceMesh478)
	coords := make([]map[string]float64, 0, n)
	for i := 0; i < n && i < len(mesh.Points); i++ {
		coords = append(coords, map[string]float64{"x": mesh.Points[i].X, "y": mesh.Points[i].Y})
	}

	payload := map[string]any{
		"landmarks": coords,
		"quality":   map[string]float64{"sharpness": 200, "brightness": 120, "contrast": 50},
	}
	for k, v := range extra {
		payload[k] = v
	}

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestAnalysisHandler_AnalyzeLandmarks(t *testing.T) {
	tests := []struct {
		name       string
		body       func(t *testing.T) *bytes.Buffer
		setupMock  func(*MockAnalysisService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "topology inferred from count",
			body: func(t *testing.T) *bytes.Buffer { return landmarksBody(t, 478, nil) },
			setupMock: func(m *MockAnalysisService) {
				m.On("AnalyzeLandmarks", mock.Anything, mock.MatchedBy(func(in service.LandmarkInput) bool {
					return in.Mesh.Topology == landmark.FaceMesh478 &&
						len(in.Mesh.Points) == 478 &&
						in.Mesh.Points[477].Index == 477 &&
						in.Quality.Brightness == 120
				}), service.Options{}).Return(sampleAnalysis(), nil)
			},
			wantStatus: 201,
		},
		{
			name: "declared topology and overlay",
			body: func(t *testing.T) *bytes.Buffer {
				return landmarksBody(t, 468, map[string]any{
					"topology": "face_mesh_468", "overlay": true, "image_width": 1000, "image_height": 1000,
				})
			},
			setupMock: func(m *MockAnalysisService) {
				m.On("AnalyzeLandmarks", mock.Anything, mock.MatchedBy(func(in service.LandmarkInput) bool {
					return in.Mesh.Topology == landmark.FaceMesh468 && in.ImageWidth == 1000
				}), service.Options{Overlay: true}).Return(sampleAnalysis(), nil)
			},
			wantStatus: 201,
		},
		{
			name:       "overlay requires image size",
			body:       func(t *testing.T) *bytes.Buffer { return landmarksBody(t, 478, map[string]any{"overlay": true}) },
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: 422,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name: "brightness out of range",
			body: func(t *testing.T) *bytes.Buffer {
				return landmarksBody(t, 478, map[string]any{
					"quality": map[string]float64{"sharpness": 1, "brightness": 300, "contrast": 1},
				})
			},
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: 422,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "unknown landmark count",
			body:       func(t *testing.T) *bytes.Buffer { return landmarksBody(t, 100, nil) },
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: 422,
			wantCode:   "INVALID_LANDMARKS",
		},
		{
			name:       "unknown topology",
			body:       func(t *testing.T) *bytes.Buffer { return landmarksBody(t, 478, map[string]any{"topology": "dlib_68"}) },
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: 422,
			wantCode:   "INVALID_LANDMARKS",
		},
		{
			name:       "malformed json",
			body:       func(t *testing.T) *bytes.Buffer { return bytes.NewBufferString(`{"landmarks":`) },
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: 400,
			wantCode:   "BAD_REQUEST",
		},
		{
			name: "degenerate geometry",
			body: func(t *testing.T) *bytes.Buffer { return landmarksBody(t, 478, nil) },
			setupMock: func(m *MockAnalysisService) {
				m.On("AnalyzeLandmarks", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrDegenerateGeometry)
			},
			wantStatus: 422,
			wantCode:   "DEGENERATE_GEOMETRY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)
			app := createTestApp(NewAnalysisHandler(svc, testLogger(), 0))

			req := httptest.NewRequest("POST", "/v1/analyses/landmarks", tt.body(t))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, resp.Body))
			}

			svc.AssertExpectations(t)
		})
	}
}

func TestLandmarksRequest_Points(t *testing.T) {
	one, two := 1, 2

	positional := LandmarksRequest{Landmarks: []PointRequest{{X: 1}, {X: 2}}}
	assert.Equal(t, []landmark.Point{{Index: 0, X: 1}, {Index: 1, X: 2}}, positional.points())

	explicit := LandmarksRequest{Landmarks: []PointRequest{{Index: &one, X: 1}, {Index: &two, X: 2}}}
	assert.Equal(t, []landmark.Point{{Index: 1, X: 1}, {Index: 2, X: 2}}, explicit.points(),
		"explicit indices are kept so validation can reject them")

	mixed := LandmarksRequest{Landmarks: []PointRequest{{Index: &one}, {}}}
	assert.Equal(t, -1, mixed.points()[1].Index)
}

func TestAnalysisHandler_Get(t *testing.T) {
	id := uuid.New()

	t.Run("found with options", func(t *testing.T) {
		svc := new(MockAnalysisService)
		svc.On("Get", mock.Anything, id, service.Options{IncludeLandmarks: true}).Return(sampleAnalysis(), nil)
		app := createTestApp(NewAnalysisHandler(svc, testLogger(), 0))

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/analyses/"+id.String()+"?include_landmarks=true", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockAnalysisService)
		svc.On("Get", mock.Anything, id, service.Options{}).Return(nil, domain.ErrAnalysisNotFound)
		app := createTestApp(NewAnalysisHandler(svc, testLogger(), 0))

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/analyses/"+id.String(), nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.Equal(t, "ANALYSIS_NOT_FOUND", errorCode(t, resp.Body))
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(MockAnalysisService)
		app := createTestApp(NewAnalysisHandler(svc, testLogger(), 0))

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/analyses/not-a-uuid", nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})
}

func TestAnalysisHandler_List(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		setupMock  func(*MockAnalysisService)
		wantStatus int
		wantLen    int
	}{
		{
			name:  "defaults",
			query: "",
			setupMock: func(m *MockAnalysisService) {
				m.On("List", mock.Anything, 20, 0).Return([]domain.Analysis{*sampleAnalysis(), *sampleAnalysis()}, nil)
			},
			wantStatus: 200,
			wantLen:    2,
		},
		{
			name:  "empty page is an empty array",
			query: "?limit=5&offset=10",
			setupMock: func(m *MockAnalysisService) {
				m.On("List", mock.Anything, 5, 10).Return(nil, nil)
			},
			wantStatus: 200,
			wantLen:    0,
		},
		{
			name:       "limit too large",
			query:      "?limit=1000",
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: 400,
		},
		{
			name:       "negative offset",
			query:      "?offset=-1",
			setupMock:  func(m *MockAnalysisService) {},
			wantStatus: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			tt.setupMock(svc)
			app := createTestApp(NewAnalysisHandler(svc, testLogger(), 0))

			resp, err := app.Test(httptest.NewRequest("GET", "/v1/analyses"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == 200 {
				var got ListResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
				assert.NotNil(t, got.Analyses)
				assert.Len(t, got.Analyses, tt.wantLen)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAnalysisHandler_Delete(t *testing.T) {
	id := uuid.New()

	svc := new(MockAnalysisService)
	svc.On("Delete", mock.Anything, id).Return(nil).Once()
	svc.On("Delete", mock.Anything, id).Return(domain.ErrAnalysisNotFound).Once()
	app := createTestApp(NewAnalysisHandler(svc, testLogger(), 0))

	resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/analyses/"+id.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/v1/analyses/"+id.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	svc.AssertExpectations(t)
}
