package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/quality"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/scoring"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/service"
)

const (
	maxFrameBytes   = 1 << 20
	liveIdleTimeout = time.Minute
	liveSendBuffer  = 16
)

// LiveScorer scores one frame without persisting it. *scoring.Engine satisfies it.
type LiveScorer interface {
	Analyze(mesh landmark.Mesh, q quality.Metrics, opts ...scoring.AnalyzeOption) (*scoring.Result, error)
}

// LiveFrame is one message from the client: the landmarks of a video frame
type LiveFrame struct {
	Seq       int64          `json:"seq"`
	Topology  string         `json:"topology"`
	Landmarks []PointRequest `json:"landmarks" validate:"required,min=1"`
	Quality   QualityRequest `json:"quality"`
}

// LiveResult answers a frame with either its scores or an error
type LiveResult struct {
	Seq    int64           `json:"seq"`
	Result *scoring.Result `json:"result,omitempty"`
	Error  *LiveError      `json:"error,omitempty"`
}

type LiveError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LiveHandler scores landmark frames streamed over a WebSocket, for clients
// running detection on-device at frame rate. Nothing is stored.
type LiveHandler struct {
	scorer       LiveScorer
	validate     *validator.Validate
	logger       *slog.Logger
	writeTimeout time.Duration
}

func NewLiveHandler(scorer LiveScorer, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{
		scorer:       scorer,
		validate:     NewValidator(),
		logger:       logger,
		writeTimeout: liveIdleTimeout,
	}
}

// WithWriteTimeout bounds how long one reply may wait on a peer that stopped
// reading. The session ends when a write misses it.
func (h *LiveHandler) WithWriteTimeout(d time.Duration) *LiveHandler {
	if d > 0 {
		h.writeTimeout = d
	}
	return h
}

// Upgrade rejects plain HTTP requests to the live endpoint
func (h *LiveHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream GET /v1/live - one LiveResult per LiveFrame, in order
func (h *LiveHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client := &liveClient{
			handler: h,
			conn:    conn,
			send:    make(chan []byte, liveSendBuffer),
		}

		done := make(chan struct{})
		go func() {
			client.writePump()
			close(done)
		}()

		frames := client.readPump()
		<-done

		h.logger.Debug("live session closed", slog.Int("frames", frames))
	})
}

// Score handles one raw frame and returns the encoded reply
func (h *LiveHandler) Score(raw []byte) []byte {
	var frame LiveFrame
	reply := LiveResult{}

	if err := json.Unmarshal(raw, &frame); err != nil {
		reply.Error = liveError(domain.ErrBadRequest)
	} else {
		reply.Seq = frame.Seq
		res, err := h.score(frame)
		if err != nil {
			reply.Error = liveError(err)
		} else {
			reply.Result = res
		}
	}

	out, err := json.Marshal(reply)
	if err != nil {
		h.logger.Error("encode live result", slog.Any("error", err))
		out, _ = json.Marshal(LiveResult{Seq: reply.Seq, Error: liveError(domain.ErrInternal)})
	}
	return out
}

func (h *LiveHandler) score(frame LiveFrame) (*scoring.Result, error) {
	if err := h.validate.Struct(frame); err != nil {
		return nil, err
	}

	req := LandmarksRequest{Topology: frame.Topology, Landmarks: frame.Landmarks}
	mesh, err := req.mesh()
	if err != nil {
		return nil, err
	}

	res, err := h.scorer.Analyze(mesh, quality.Metrics{
		Sharpness:  frame.Quality.Sharpness,
		Brightness: frame.Quality.Brightness,
		Contrast:   frame.Quality.Contrast,
	})
	if err != nil {
		return nil, service.MapEngineError(err)
	}
	return res, nil
}

func liveError(err error) *LiveError {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return &LiveError{Code: domain.ErrValidationFailed.Code, Message: domain.ErrValidationFailed.Message}
	}

	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return &LiveError{Code: appErr.Code, Message: appErr.Message}
	}
	return &LiveError{Code: domain.ErrInternal.Code, Message: domain.ErrInternal.Message}
}

type liveClient struct {
	handler *LiveHandler
	conn    *websocket.Conn
	send    chan []byte
}

// readPump scores frames until the peer closes or goes idle and returns how
// many frames it handled
func (c *liveClient) readPump() int {
	defer close(c.send)

	c.conn.SetReadLimit(maxFrameBytes)

	frames := 0
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(liveIdleTimeout))
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return frames
		}
		frames++
		c.send <- c.handler.Score(msg)
	}
}

func (c *liveClient) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.handler.writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			// drain so readPump never blocks on a dead connection
			for range c.send {
			}
			return
		}
	}
}
