package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// QualityData is the photo quality measured for an analysis
type QualityData struct {
	Sharpness  float64 `json:"sharpness" example:"200"`
	Brightness float64 `json:"brightness" example:"120"`
	Contrast   float64 `json:"contrast" example:"50"`
}

// PointData is one landmark in image pixels
type PointData struct {
	Index int     `json:"index" example:"152"`
	X     float64 `json:"x" example:"500"`
	Y     float64 `json:"y" example:"740"`
}

// LineData is a segment of the proportion overlay
type LineData struct {
	From  PointData `json:"from"`
	To    PointData `json:"to"`
	Label string    `json:"label,omitempty" example:"browline"`
}

// OverlayData holds the guide lines drawn over the photo
type OverlayData struct {
	Width        int         `json:"width" example:"1000"`
	Height       int         `json:"height" example:"1000"`
	Contour      []PointData `json:"contour"`
	Thirds       []LineData  `json:"thirds"`
	Fifths       []LineData  `json:"fifths"`
	SymmetryAxis LineData    `json:"symmetry_axis"`
}

// AnalysisResponse is a scored face
type AnalysisResponse struct {
	ID          string         `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Source      string         `json:"source" example:"image"`
	Profile     string         `json:"profile" example:"extended"`
	Topology    string         `json:"topology" example:"face_mesh_478"`
	Overall     int            `json:"overall" example:"71"`
	Potential   int            `json:"potential" example:"71"`
	Facets      map[string]int `json:"facets"`
	Warnings    []string       `json:"warnings" example:"low_sharpness"`
	Penalty     int            `json:"penalty" example:"0"`
	Quality     QualityData    `json:"quality"`
	ImageWidth  int            `json:"image_width,omitempty" example:"1000"`
	ImageHeight int            `json:"image_height,omitempty" example:"1000"`
	Landmarks   []PointData    `json:"landmarks,omitempty"`
	Overlay     *OverlayData   `json:"overlay,omitempty"`
	LatencyMs   int64          `json:"latency_ms" example:"84"`
	CreatedAt   string         `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// ListAnalysesResponse is one page of analyses
type ListAnalysesResponse struct {
	Analyses []AnalysisResponse `json:"analyses"`
	Limit    int                `json:"limit" example:"20"`
	Offset   int                `json:"offset" example:"0"`
}

// ProfileStatsData aggregates the analyses of one scoring profile
type ProfileStatsData struct {
	Profile      string  `json:"profile" example:"extended"`
	Count        int64   `json:"count" example:"1520"`
	AvgOverall   float64 `json:"avg_overall" example:"68.4"`
	AvgPotential float64 `json:"avg_potential" example:"72.1"`
	P50Overall   float64 `json:"p50_overall" example:"69"`
	P90Overall   float64 `json:"p90_overall" example:"81"`
	AvgLatencyMs float64 `json:"avg_latency_ms" example:"92.5"`
	P95LatencyMs float64 `json:"p95_latency_ms" example:"180"`
}

// WarningCountData counts analyses carrying a photo warning
type WarningCountData struct {
	Warning string `json:"warning" example:"low_sharpness"`
	Count   int64  `json:"count" example:"212"`
}

// StatsResponse summarizes analyses over a date range
type StatsResponse struct {
	Start    string             `json:"start" example:"2024-01-01T00:00:00Z"`
	End      string             `json:"end" example:"2024-01-31T00:00:00Z"`
	Profiles []ProfileStatsData `json:"profiles"`
	Warnings []WarningCountData `json:"warnings"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var (
	errInternal     = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	errRateLimited  = response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded"}, "429", "Too Many Requests")
	errUnauthorized = response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Missing or invalid access token"}, "401", "Unauthorized")
)

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "FaceRatio API",
		Version:     "v1.0.0",
		Description: "Scores facial proportions from a photo or from a 468/478 point face mesh. When AUTH_SECRET is set every /v1 route needs an Authorization: Bearer token issued by cmd/token.",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/analyses - Analyze a photo
		endpoint.New(
			endpoint.POST,
			"/analyses",
			endpoint.WithTags("Analyses"),
			endpoint.WithSummary("Score the face in a photo"),
			endpoint.WithDescription("Detects the face mesh in the uploaded image (field \"image\", JPEG, PNG or WebP), measures photo quality and scores it with the configured profile. Optional form fields include_landmarks and overlay echo the landmarks and the proportion guide lines."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AnalysisResponse{}, "201", "Face scored"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid or corrupted image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "MULTIPLE_FACES", Message: "Multiple faces detected"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "DEGENERATE_GEOMETRY", Message: "Face geometry cannot be measured"}, "422", "Unprocessable Entity"),
				errUnauthorized,
				errRateLimited,
				response.New(ErrorResponse{Code: "DETECTOR_UNAVAILABLE", Message: "Landmark detector unavailable"}, "503", "Service Unavailable"),
				errInternal,
			}),
		),

		// POST /v1/analyses/landmarks - Analyze client landmarks
		endpoint.New(
			endpoint.POST,
			"/analyses/landmarks",
			endpoint.WithTags("Analyses"),
			endpoint.WithSummary("Score a face mesh detected by the client"),
			endpoint.WithDescription("JSON body: landmarks ([{index,x,y},...] in pixels, 468 or 478 points; index may be omitted on every point), quality {sharpness, brightness, contrast}, optional topology, image_width, image_height, include_landmarks and overlay. image_width and image_height are required when overlay is true."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AnalysisResponse{}, "201", "Face scored"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Bad request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INVALID_LANDMARKS", Message: "Landmarks do not match the declared topology"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "DEGENERATE_GEOMETRY", Message: "Face geometry cannot be measured"}, "422", "Unprocessable Entity"),
				errUnauthorized,
				errRateLimited,
				errInternal,
			}),
		),

		// GET /v1/analyses - List analyses
		endpoint.New(
			endpoint.GET,
			"/analyses",
			endpoint.WithTags("Analyses"),
			endpoint.WithSummary("List analyses"),
			endpoint.WithDescription("Newest first. Landmarks are never included in listings."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Page size (1-100, default 20)")),
				parameter.IntParam("offset", parameter.Query, parameter.WithDescription("Rows to skip (default 0)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListAnalysesResponse{}, "200", "Page of analyses"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "limit must be between 1 and 100"}, "400", "Bad Request"),
				errUnauthorized,
				errInternal,
			}),
		),

		// GET /v1/analyses/{id} - Get one analysis
		endpoint.New(
			endpoint.GET,
			"/analyses/{id}",
			endpoint.WithTags("Analyses"),
			endpoint.WithSummary("Get an analysis"),
			endpoint.WithDescription("Returns a stored analysis. The overlay is rebuilt from the stored landmarks and needs the image size to be known."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Analysis UUID")),
				parameter.StrParam("include_landmarks", parameter.Query, parameter.WithDescription("true to echo landmarks")),
				parameter.StrParam("overlay", parameter.Query, parameter.WithDescription("true to include the proportion overlay")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AnalysisResponse{}, "200", "Analysis found"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "id must be a UUID"}, "400", "Bad Request"),
				errUnauthorized,
				response.New(ErrorResponse{Code: "ANALYSIS_NOT_FOUND", Message: "Analysis not found"}, "404", "Not Found"),
				errInternal,
			}),
		),

		// DELETE /v1/analyses/{id} - Delete an analysis
		endpoint.New(
			endpoint.DELETE,
			"/analyses/{id}",
			endpoint.WithTags("Analyses"),
			endpoint.WithSummary("Delete an analysis"),
			endpoint.WithDescription("Removes the analysis and evicts its cached result"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Analysis UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "ANALYSIS_NOT_FOUND", Message: "Analysis not found"}, "404", "Not Found"),
				errInternal,
			}),
		),

		// GET /v1/stats - Score statistics
		endpoint.New(
			endpoint.GET,
			"/stats",
			endpoint.WithTags("Stats"),
			endpoint.WithSummary("Score statistics"),
			endpoint.WithDescription("Per profile averages and percentiles plus warning counts. Dates are inclusive UTC days; the default range is the last 30 days and at most 366 days may be requested."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("start_date", parameter.Query, parameter.WithDescription("First day (YYYY-MM-DD)")),
				parameter.StrParam("end_date", parameter.Query, parameter.WithDescription("Last day (YYYY-MM-DD)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatsResponse{}, "200", "Statistics"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "start_date must be YYYY-MM-DD"}, "400", "Bad Request"),
				errUnauthorized,
				errInternal,
			}),
		),

		// GET /v1/live - WebSocket scoring
		endpoint.New(
			endpoint.GET,
			"/live",
			endpoint.WithTags("Live"),
			endpoint.WithSummary("Stream landmark frames over a WebSocket"),
			endpoint.WithDescription("Upgrade to a WebSocket and send JSON frames {seq, topology, landmarks, quality}. Each frame is answered in order with {seq, result} or {seq, error}; nothing is stored and a bad frame does not close the session. Browsers may pass the token as access_token."),
			endpoint.WithParams(
				parameter.StrParam("access_token", parameter.Query, parameter.WithDescription("Bearer token for clients that cannot set headers")),
			),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "UPGRADE_REQUIRED", Message: "Upgrade Required"}, "426", "Upgrade Required"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
