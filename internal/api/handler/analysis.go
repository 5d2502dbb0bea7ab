package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/quality"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/service"
)

const (
	defaultMaxImageSize = 10 * 1024 * 1024
	defaultListLimit    = 20
	maxListLimit        = 100
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type AnalysisService interface {
	Analyze(ctx context.Context, image []byte, opts service.Options) (*domain.Analysis, error)
	AnalyzeLandmarks(ctx context.Context, in service.LandmarkInput, opts service.Options) (*domain.Analysis, error)
	Get(ctx context.Context, id uuid.UUID, opts service.Options) (*domain.Analysis, error)
	List(ctx context.Context, limit, offset int) ([]domain.Analysis, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// QualityRequest carries photo metrics measured by the client
type QualityRequest struct {
	Sharpness  float64 `json:"sharpness" validate:"gte=0"`
	Brightness float64 `json:"brightness" validate:"gte=0,lte=255"`
	Contrast   float64 `json:"contrast" validate:"gte=0"`
}

// PointRequest is one landmark in pixels. Index must match the position in
// the list; when every index is omitted they are assigned by position.
type PointRequest struct {
	Index *int    `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// LandmarksRequest is the body of POST /v1/analyses/landmarks. Topology may be
// omitted when the landmark count identifies it.
type LandmarksRequest struct {
	Topology         string         `json:"topology"`
	Landmarks        []PointRequest `json:"landmarks" validate:"required,min=1"`
	Quality          QualityRequest `json:"quality"`
	ImageWidth       int            `json:"image_width" validate:"required_if=Overlay true,gte=0"`
	ImageHeight      int            `json:"image_height" validate:"required_if=Overlay true,gte=0"`
	IncludeLandmarks bool           `json:"include_landmarks"`
	Overlay          bool           `json:"overlay"`
}

// ListResponse wraps a page of analyses
type ListResponse struct {
	Analyses []domain.Analysis `json:"analyses"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type AnalysisHandler struct {
	service      AnalysisService
	validate     *validator.Validate
	logger       *slog.Logger
	maxImageSize int
}

func NewAnalysisHandler(svc AnalysisService, logger *slog.Logger, maxImageSize int) *AnalysisHandler {
	if maxImageSize <= 0 {
		maxImageSize = defaultMaxImageSize
	}
	return &AnalysisHandler{
		service:      svc,
		validate:     NewValidator(),
		logger:       logger,
		maxImageSize: maxImageSize,
	}
}

// NewValidator reports field errors by their JSON names
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Analyze POST /v1/analyses - score the face in an uploaded photo
func (h *AnalysisHandler) Analyze(c *fiber.Ctx) error {
	image, err := h.readImage(c)
	if err != nil {
		return err
	}

	opts, err := formOptions(c)
	if err != nil {
		return err
	}

	a, err := h.service.Analyze(h.requestContext(c), image, opts)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(a)
}

// AnalyzeLandmarks POST /v1/analyses/landmarks - score landmarks detected client-side
func (h *AnalysisHandler) AnalyzeLandmarks(c *fiber.Ctx) error {
	var req LandmarksRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(fmt.Errorf("parse body: %w", err))
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}

	mesh, err := req.mesh()
	if err != nil {
		return err
	}

	a, err := h.service.AnalyzeLandmarks(h.requestContext(c), service.LandmarkInput{
		Mesh: mesh,
		Quality: quality.Metrics{
			Sharpness:  req.Quality.Sharpness,
			Brightness: req.Quality.Brightness,
			Contrast:   req.Quality.Contrast,
		},
		ImageWidth:  req.ImageWidth,
		ImageHeight: req.ImageHeight,
	}, service.Options{IncludeLandmarks: req.IncludeLandmarks, Overlay: req.Overlay})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(a)
}

// Get GET /v1/analyses/:id
func (h *AnalysisHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	opts := service.Options{
		IncludeLandmarks: c.QueryBool("include_landmarks"),
		Overlay:          c.QueryBool("overlay"),
	}

	a, err := h.service.Get(h.requestContext(c), id, opts)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

// List GET /v1/analyses
func (h *AnalysisHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > maxListLimit {
		return domain.ErrBadRequest.WithError(fmt.Errorf("limit must be between 1 and %d", maxListLimit))
	}
	if offset < 0 {
		return domain.ErrBadRequest.WithError(errors.New("offset must not be negative"))
	}

	items, err := h.service.List(h.requestContext(c), limit, offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.Analysis{}
	}

	return c.JSON(ListResponse{Analyses: items, Limit: limit, Offset: offset})
}

// Delete DELETE /v1/analyses/:id
func (h *AnalysisHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(h.requestContext(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AnalysisHandler) requestContext(c *fiber.Ctx) context.Context {
	return audit.WithRequest(c.UserContext(), middleware.RequestID(c), c.IP())
}

func (h *AnalysisHandler) readImage(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New("image file is required"))
	}

	if file.Size > int64(h.maxImageSize) {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("image exceeds %d bytes", h.maxImageSize))
	}

	contentType := file.Header.Get(fiber.HeaderContentType)
	if !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("unsupported content type %q", contentType))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	if len(data) == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image is empty"))
	}
	return data, nil
}

func (r LandmarksRequest) mesh() (landmark.Mesh, error) {
	var (
		topo landmark.Topology
		err  error
	)
	if r.Topology != "" {
		topo, err = landmark.ParseTopology(r.Topology)
		if err != nil {
			return landmark.Mesh{}, domain.ErrInvalidLandmarks.WithError(err)
		}
	} else {
		var ok bool
		topo, ok = landmark.ForSize(len(r.Landmarks))
		if !ok {
			return landmark.Mesh{}, domain.ErrInvalidLandmarks.WithError(
				fmt.Errorf("no topology has %d landmarks", len(r.Landmarks)))
		}
	}
	return landmark.Mesh{Topology: topo, Points: r.points()}, nil
}

func (r LandmarksRequest) points() []landmark.Point {
	indexed := false
	for _, p := range r.Landmarks {
		if p.Index != nil {
			indexed = true
			break
		}
	}

	pts := make([]landmark.Point, len(r.Landmarks))
	for i, p := range r.Landmarks {
		idx := i
		if indexed {
			idx = -1
			if p.Index != nil {
				idx = *p.Index
			}
		}
		pts[i] = landmark.Point{Index: idx, X: p.X, Y: p.Y}
	}
	return pts
}

func formOptions(c *fiber.Ctx) (service.Options, error) {
	landmarks, err := formBool(c, "include_landmarks")
	if err != nil {
		return service.Options{}, err
	}
	ov, err := formBool(c, "overlay")
	if err != nil {
		return service.Options{}, err
	}
	return service.Options{IncludeLandmarks: landmarks, Overlay: ov}, nil
}

func formBool(c *fiber.Ctx, key string) (bool, error) {
	v := strings.TrimSpace(c.FormValue(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, domain.ErrValidationFailed.WithError(fmt.Errorf("%s must be a boolean", key))
	}
	return b, nil
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrBadRequest.WithError(errors.New("id must be a UUID"))
	}
	return id, nil
}
