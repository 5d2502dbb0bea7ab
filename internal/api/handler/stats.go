package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/metrics"
)

const (
	dateLayout        = "2006-01-02"
	defaultStatsDays  = 30
	maxStatsRangeDays = 366
)

type StatsSource interface {
	Summary(ctx context.Context, params metrics.Params) (*metrics.Summary, error)
}

type StatsHandler struct {
	source StatsSource
	now    func() time.Time
}

func NewStatsHandler(source StatsSource) *StatsHandler {
	return &StatsHandler{source: source, now: time.Now}
}

// Summary GET /v1/stats - score and warning distribution over a date range
func (h *StatsHandler) Summary(c *fiber.Ctx) error {
	params, err := h.parseParams(c)
	if err != nil {
		return err
	}

	s, err := h.source.Summary(c.UserContext(), params)
	if err != nil {
		return err
	}
	return c.JSON(s)
}

// parseParams reads start_date and end_date as inclusive UTC days, the last
// thirty days by default
func (h *StatsHandler) parseParams(c *fiber.Ctx) (metrics.Params, error) {
	today := h.now().UTC().Truncate(24 * time.Hour)

	end := today
	if v := c.Query("end_date"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return metrics.Params{}, domain.ErrBadRequest.WithError(errors.New("invalid end_date format, expected YYYY-MM-DD"))
		}
		end = d
	}

	start := end.AddDate(0, 0, -(defaultStatsDays - 1))
	if v := c.Query("start_date"); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return metrics.Params{}, domain.ErrBadRequest.WithError(errors.New("invalid start_date format, expected YYYY-MM-DD"))
		}
		start = d
	}

	if start.After(end) {
		return metrics.Params{}, domain.ErrBadRequest.WithError(errors.New("start_date must be before or equal to end_date"))
	}
	if end.Sub(start) > maxStatsRangeDays*24*time.Hour {
		return metrics.Params{}, domain.ErrBadRequest.WithError(errors.New("date range exceeds one year"))
	}

	return metrics.Params{Start: start, End: end.AddDate(0, 0, 1)}, nil
}
