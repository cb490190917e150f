package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"rheumactive/internal/microservices/http-api/dto"
	"rheumactive/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type MeasurementHandler struct {
	svc service.MeasurementService
}

func NewMeasurementHandler(svc service.MeasurementService) *MeasurementHandler {
	return &MeasurementHandler{svc: svc}
}

func (h *MeasurementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
}

func (h *MeasurementHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var q dto.MeasurementQueryDTO
	_ = c.ShouldBindQuery(&q) // string fields only, binding cannot fail

	page, err := h.svc.Query(ctx, service.MeasurementQuery{
		Page:     atoiOr(q.Page, 1),
		PerPage:  atoiOr(q.PerPage, service.DefaultPerPage),
		Joint:    q.Joint,
		Exercise: q.Exercise,
		Date:     q.Date,
	})
	if errors.Is(err, service.ErrInvalidDate) {
		c.JSON(http.StatusBadRequest, dto.Error(err.Error()))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.FromPageToResponse(page))
}

func (h *MeasurementHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	m, err := h.svc.GetByID(ctx, c.Param("id"))
	if errors.Is(err, service.ErrMeasurementNotFound) {
		c.JSON(http.StatusNotFound, dto.Error("Measurement not found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Error(err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToMeasurementResponse(m))
}

func (h *MeasurementHandler) Create(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var req dto.CreateMeasurementDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error("Missing required data"))
		return
	}

	m, err := h.svc.Save(ctx, service.SaveMeasurementInput{
		Joint:    req.Joint,
		Exercise: req.Exercise,
		Data:     req.Data,
	})
	if errors.Is(err, service.ErrInvalidMeasurement) {
		c.JSON(http.StatusBadRequest, dto.Error(err.Error()))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.Error(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, dto.CreateMeasurementResponse{Status: "success", ID: m.ID})
}

// atoiOr parses a query value, falling back on anything unparsable
func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
