package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/audit"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/cache"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/feature"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/overlay"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/provider"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/quality"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/scoring"
)

const defaultDetectTimeout = 30 * time.Second

type AnalysisRepositoryInterface interface {
	Create(ctx context.Context, analysis *domain.Analysis) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Analysis, error)
	List(ctx context.Context, limit, offset int) ([]domain.Analysis, error)
	Delete(ctx context.Context, id uuid.UUID) (string, error)
}

type AnalysisCacheInterface interface {
	Get(ctx context.Context, digest string, profile scoring.Profile) (*domain.Analysis, error)
	Put(ctx context.Context, analysis *domain.Analysis) error
	Forget(ctx context.Context, digest string) error
}

// Options select the optional parts of a response
type Options struct {
	IncludeLandmarks bool
	Overlay          bool
}

// LandmarkInput is a client-side detection submitted for scoring
type LandmarkInput struct {
	Mesh        landmark.Mesh
	Quality     quality.Metrics
	ImageWidth  int
	ImageHeight int
}

type AnalysisService struct {
	repo          AnalysisRepositoryInterface
	cache         AnalysisCacheInterface
	detector      provider.LandmarkDetector
	quality       quality.Source
	engine        *scoring.Engine
	audit         audit.Logger
	logger        *slog.Logger
	detectTimeout time.Duration
}

func NewAnalysisService(
	repo AnalysisRepositoryInterface,
	detector provider.LandmarkDetector,
	qualitySource quality.Source,
	engine *scoring.Engine,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		repo:          repo,
		detector:      detector,
		quality:       qualitySource,
		engine:        engine,
		audit:         &audit.NoOpLogger{},
		logger:        logger,
		detectTimeout: defaultDetectTimeout,
	}
}

func (s *AnalysisService) WithCache(c AnalysisCacheInterface) *AnalysisService {
	s.cache = c
	return s
}

func (s *AnalysisService) WithAudit(l audit.Logger) *AnalysisService {
	s.audit = l
	return s
}

func (s *AnalysisService) WithDetectTimeout(d time.Duration) *AnalysisService {
	if d > 0 {
		s.detectTimeout = d
	}
	return s
}

// Profile reports the scoring profile every analysis is produced under
func (s *AnalysisService) Profile() scoring.Profile {
	return s.engine.Profile()
}

// Analyze detects the face in image, measures photo quality and scores it.
// Results are cached by image digest; a photo without a face fails with
// ErrNoFaceDetected before any scoring happens.
func (s *AnalysisService) Analyze(ctx context.Context, image []byte, opts Options) (*domain.Analysis, error) {
	start := time.Now()

	if len(image) == 0 {
		return nil, domain.ErrInvalidImage
	}

	sum := sha256.Sum256(image)
	digest := hex.EncodeToString(sum[:])

	if cached, ok := s.fromCache(ctx, digest); ok {
		return s.present(cached, opts)
	}

	det, err := s.detect(ctx, image)
	if err != nil {
		s.auditFailure(ctx, audit.EventImageAnalyzed, err)
		return nil, err
	}

	switch {
	case len(det.Faces) == 0:
		s.auditFailure(ctx, audit.EventImageAnalyzed, domain.ErrNoFaceDetected)
		return nil, domain.ErrNoFaceDetected
	case len(det.Faces) > 1:
		s.auditFailure(ctx, audit.EventImageAnalyzed, domain.ErrMultipleFaces)
		return nil, domain.ErrMultipleFaces
	}
	face := det.Faces[0]

	metrics, err := s.quality.Analyze(ctx, image)
	if err != nil {
		err = domain.ErrInvalidImage.WithError(err)
		s.auditFailure(ctx, audit.EventImageAnalyzed, err)
		return nil, err
	}

	res, err := s.engine.Analyze(face.Mesh, metrics, scoring.WithLandmarks())
	if err != nil {
		err = MapEngineError(err)
		s.auditFailure(ctx, audit.EventImageAnalyzed, err)
		return nil, err
	}

	a := domain.NewAnalysis(domain.SourceImage, face.Mesh.Topology, metrics, res)
	a.ImageDigest = digest
	a.ImageWidth = det.ImageWidth
	a.ImageHeight = det.ImageHeight
	a.LatencyMs = time.Since(start).Milliseconds()

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, a); err != nil {
			s.logger.WarnContext(ctx, "failed to cache analysis",
				slog.String("analysis_id", a.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	s.auditSuccess(ctx, audit.EventImageAnalyzed, a)

	return s.present(a, opts)
}

// AnalyzeLandmarks scores landmarks detected by the client. No image is involved,
// so nothing is cached.
func (s *AnalysisService) AnalyzeLandmarks(ctx context.Context, in LandmarkInput, opts Options) (*domain.Analysis, error) {
	start := time.Now()

	res, err := s.engine.Analyze(in.Mesh, in.Quality, scoring.WithLandmarks())
	if err != nil {
		err = MapEngineError(err)
		s.auditFailure(ctx, audit.EventLandmarksAnalyzed, err)
		return nil, err
	}

	a := domain.NewAnalysis(domain.SourceLandmarks, in.Mesh.Topology, in.Quality, res)
	a.ImageWidth = in.ImageWidth
	a.ImageHeight = in.ImageHeight
	a.LatencyMs = time.Since(start).Milliseconds()

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}

	s.auditSuccess(ctx, audit.EventLandmarksAnalyzed, a)

	return s.present(a, opts)
}

func (s *AnalysisService) Get(ctx context.Context, id uuid.UUID, opts Options) (*domain.Analysis, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.present(a, opts)
}

func (s *AnalysisService) List(ctx context.Context, limit, offset int) ([]domain.Analysis, error) {
	return s.repo.List(ctx, limit, offset)
}

// Delete removes the analysis and any cached copy of it
func (s *AnalysisService) Delete(ctx context.Context, id uuid.UUID) error {
	digest, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Forget(ctx, digest); err != nil {
			s.logger.WarnContext(ctx, "failed to evict cached analysis",
				slog.String("analysis_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	_ = s.audit.Log(ctx, audit.Event{
		EventType:  audit.EventAnalysisDeleted,
		AnalysisID: id.String(),
		Success:    true,
	})

	return nil
}

func (s *AnalysisService) detect(ctx context.Context, image []byte) (*provider.Detection, error) {
	detectCtx, cancel := context.WithTimeout(ctx, s.detectTimeout)
	defer cancel()

	det, err := s.detector.DetectLandmarks(detectCtx, image)
	if err == nil {
		return det, nil
	}

	var appErr *domain.AppError
	switch {
	case errors.As(err, &appErr):
		return nil, err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return nil, domain.ErrDetectorUnavailable.WithError(err)
	default:
		return nil, domain.ErrDetectorUnavailable.WithError(fmt.Errorf("%s: %w", s.detector.Name(), err))
	}
}

func (s *AnalysisService) fromCache(ctx context.Context, digest string) (*domain.Analysis, bool) {
	if s.cache == nil {
		return nil, false
	}

	a, err := s.cache.Get(ctx, digest, s.engine.Profile())
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "analysis cache lookup failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	_ = s.audit.Log(ctx, audit.Event{
		EventType:  audit.EventAnalysisCached,
		AnalysisID: a.ID.String(),
		Profile:    string(a.Profile),
		Success:    true,
	})
	return a, true
}

// present applies the response options to a stored analysis
func (s *AnalysisService) present(a *domain.Analysis, opts Options) (*domain.Analysis, error) {
	out := a.Public(opts.IncludeLandmarks)
	if !opts.Overlay {
		return out, nil
	}

	if a.ImageWidth <= 0 || a.ImageHeight <= 0 {
		return nil, domain.ErrBadRequest.WithError(errors.New("overlay needs the image size"))
	}
	mesh, err := a.Mesh()
	if err != nil {
		return nil, domain.ErrInvalidLandmarks.WithError(err)
	}
	ov, err := overlay.Build(mesh, a.ImageWidth, a.ImageHeight)
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}
	out.Overlay = ov
	return out, nil
}

func (s *AnalysisService) auditSuccess(ctx context.Context, event audit.EventType, a *domain.Analysis) {
	_ = s.audit.Log(ctx, audit.Event{
		EventType:  event,
		AnalysisID: a.ID.String(),
		Profile:    string(a.Profile),
		Provider:   s.providerName(event),
		Success:    true,
		Metadata: map[string]string{
			"overall":   strconv.Itoa(a.Overall),
			"potential": strconv.Itoa(a.Potential),
			"warnings":  strconv.Itoa(len(a.Warnings)),
		},
	})
}

func (s *AnalysisService) auditFailure(ctx context.Context, event audit.EventType, err error) {
	code := err.Error()
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	_ = s.audit.Log(ctx, audit.Event{
		EventType: event,
		Profile:   string(s.engine.Profile()),
		Provider:  s.providerName(event),
		Success:   false,
		Error:     code,
	})
}

func (s *AnalysisService) providerName(event audit.EventType) string {
	if event == audit.EventImageAnalyzed && s.detector != nil {
		return s.detector.Name()
	}
	return ""
}

// MapEngineError turns scoring failures into caller-facing errors
func MapEngineError(err error) error {
	switch {
	case errors.Is(err, landmark.ErrContract):
		return domain.ErrInvalidLandmarks.WithError(err)
	case errors.Is(err, feature.ErrDegenerateGeometry):
		return domain.ErrDegenerateGeometry.WithError(err)
	default:
		return domain.ErrInternal.WithError(err)
	}
}
