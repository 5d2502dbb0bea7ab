package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/database"
)

const Version = "0.1.0"

type HealthHandler struct {
	db       database.Pinger
	profile  string
	detector string
}

// NewHealthHandler builds the liveness and readiness handlers. A nil db makes /ready report
// ready without a database check.
func NewHealthHandler(db database.Pinger, profile, detector string) *HealthHandler {
	return &HealthHandler{db: db, profile: profile, detector: detector}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Profile  string `json:"profile,omitempty"`
	Detector string `json:"detector,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:   "ok",
		Version:  Version,
		Profile:  h.profile,
		Detector: h.detector,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.db != nil {
		if err := database.HealthCheck(c.UserContext(), h.db); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
				Status: "unavailable",
				Error:  "database unreachable",
			})
		}
	}

	return c.JSON(HealthResponse{Status: "ready"})
}
