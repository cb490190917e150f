package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rheumactive/internal/microservices/http-api/dto"
	"rheumactive/internal/microservices/mjpeg"
	"rheumactive/internal/microservices/tcp"

	"github.com/gin-gonic/gin"
)

// ProducerLink is the reverse path to the camera producer.
// Satisfied by *tcp.Listener and *tcp.Supervisor.
type ProducerLink interface {
	SendCommand(cmd tcp.Command) error
	Connected() bool
	State() tcp.ListenerState
}

// FrameSource exposes the latest ingested frame.
type FrameSource interface {
	Snapshot() tcp.Snapshot
}

// DatabasePinger reports persistence health. nil means the in-memory store is in use.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

type StreamHandler struct {
	frames    FrameSource
	producer  ProducerLink
	responder *mjpeg.Responder
	db        DatabasePinger
	logger    *slog.Logger
}

func NewStreamHandler(frames FrameSource, producer ProducerLink, responder *mjpeg.Responder, db DatabasePinger, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{
		frames:    frames,
		producer:  producer,
		responder: responder,
		db:        db,
		logger:    logger,
	}
}

// RegisterRoutes mounts the streaming surface. commandMW wraps only the command route.
func (h *StreamHandler) RegisterRoutes(r gin.IRoutes, commandMW ...gin.HandlerFunc) {
	r.GET("/healthz", h.Health)
	r.GET("/video_feed", h.VideoFeed)
	r.GET("/angle_feed", h.AngleFeed)
	r.POST("/start_video", append(commandMW, h.StartVideo)...)
}

// VideoFeed streams the latest frame until the client disconnects
func (h *StreamHandler) VideoFeed(c *gin.Context) {
	c.Header("Content-Type", mjpeg.ContentType)
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	h.logger.Debug("stream_client_connected", "client_ip", c.ClientIP())
	if err := h.responder.Serve(c.Request.Context(), c.Writer); err != nil {
		h.logger.Debug("stream_client_gone", "client_ip", c.ClientIP(), "error", err.Error())
	}
}

func (h *StreamHandler) AngleFeed(c *gin.Context) {
	c.JSON(http.StatusOK, dto.AngleResponse{Angle: h.frames.Snapshot().Angle})
}

func (h *StreamHandler) StartVideo(c *gin.Context) {
	var req dto.StartVideoDTO
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Joint) == "" {
		c.JSON(http.StatusBadRequest, dto.Error("No joint specified"))
		return
	}

	cmd := tcp.Command{Action: tcp.ActionStartVideo, Argument: strings.TrimSpace(req.Joint)}
	err := h.producer.SendCommand(cmd)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.Success())
	case errors.Is(err, tcp.ErrNoProducer):
		c.JSON(http.StatusServiceUnavailable, dto.Error("No streamer connected"))
	case errors.Is(err, tcp.ErrInvalidCommand):
		c.JSON(http.StatusBadRequest, dto.Error(err.Error()))
	default:
		c.JSON(http.StatusBadGateway, dto.Error(err.Error()))
	}
}

func (h *StreamHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:            "ok",
		ProducerConnected: h.producer.Connected(),
		ListenerState:     h.producer.State().String(),
		Database:          "memory",
	}
	code := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("health_database_unreachable", "error", err.Error())
			resp.Status = "degraded"
			resp.Database = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	c.JSON(code, resp)
}
