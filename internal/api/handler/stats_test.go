package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/metrics"
)

type MockStatsSource struct {
	mock.Mock
}

func (m *MockStatsSource) Summary(ctx context.Context, params metrics.Params) (*metrics.Summary, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metrics.Summary), args.Error(1)
}

func day(s string) time.Time {
	d, _ := time.Parse(dateLayout, s)
	return d
}

func TestStatsHandler_Summary(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		query      string
		setupMock  func(*MockStatsSource)
		wantStatus int
		wantCode   string
	}{
		{
			name: "defaults to last thirty days",
			setupMock: func(m *MockStatsSource) {
				m.On("Summary", mock.Anything, metrics.Params{Start: day("2026-09-20"), End: day("2026-10-20")}).
					Return(&metrics.Summary{
						Profiles: []metrics.ProfileStats{{Profile: "extended", Count: 3, AvgOverall: 66}},
						Warnings: []metrics.WarningCount{},
					}, nil)
			},
			wantStatus: fiber.StatusOK,
		},
		{
			name:  "explicit range is inclusive",
			query: "?start_date=2026-10-01&end_date=2026-10-01",
			setupMock: func(m *MockStatsSource) {
				m.On("Summary", mock.Anything, metrics.Params{Start: day("2026-10-01"), End: day("2026-10-02")}).
					Return(&metrics.Summary{}, nil)
			},
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "bad start date",
			query:      "?start_date=01/10/2026",
			setupMock:  func(m *MockStatsSource) {},
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "bad end date",
			query:      "?end_date=yesterday",
			setupMock:  func(m *MockStatsSource) {},
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "start after end",
			query:      "?start_date=2026-10-10&end_date=2026-10-01",
			setupMock:  func(m *MockStatsSource) {},
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "range too long",
			query:      "?start_date=2024-01-01&end_date=2026-01-01",
			setupMock:  func(m *MockStatsSource) {},
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name: "source failure",
			setupMock: func(m *MockStatsSource) {
				m.On("Summary", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
			},
			wantStatus: fiber.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := new(MockStatsSource)
			tt.setupMock(src)

			h := NewStatsHandler(src)
			h.now = func() time.Time { return now }

			app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
			app.Get("/v1/stats", h.Summary)

			resp, err := app.Test(httptest.NewRequest("GET", "/v1/stats"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				var body map[string]map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.wantCode, body["error"]["code"])
			}
			src.AssertExpectations(t)
		})
	}
}
