// Package api serves the dashboard JSON API: current risk, pressure
// simulation, shelter lookup and manual dispatch.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/cyclone-watch/internal/dispatch"
	"github.com/couchcryptid/cyclone-watch/internal/domain"
	"github.com/couchcryptid/cyclone-watch/internal/registry"
	"github.com/gin-gonic/gin"
)

const defaultNearestLimit = 5

// RiskSource provides the most recent assessment.
type RiskSource interface {
	Latest() (domain.Assessment, bool)
}

// ShelterSource hands out the current shelter registry snapshot.
type ShelterSource interface {
	Get() (*registry.Registry, error)
}

// Dispatcher sends manual voice calls and SMS alerts.
type Dispatcher interface {
	Call(ctx context.Context, contact, voice string) (dispatch.Result, error)
	Alert(ctx context.Context, n dispatch.Notification) (dispatch.Result, error)
	Voices() []string
}

// Handler holds the API's collaborators. A nil Dispatcher disables the
// dispatch routes.
type Handler struct {
	risk       RiskSource
	classifier domain.Classifier
	shelters   ShelterSource
	dispatcher Dispatcher
	centre     domain.Coordinate
	logger     *slog.Logger
}

// NewHandler creates a Handler. classifier answers simulation queries, so it
// should be the one the monitor uses. centre is the position of simulated
// readings and the origin of shelter queries that omit lat/lon.
func NewHandler(risk RiskSource, classifier domain.Classifier, shelters ShelterSource, dispatcher Dispatcher, centre domain.Coordinate, logger *slog.Logger) *Handler {
	return &Handler{
		risk:       risk,
		classifier: classifier,
		shelters:   shelters,
		dispatcher: dispatcher,
		centre:     centre,
		logger:     logger,
	}
}

// Router builds the gin engine with every /api/v1 route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))

	v1 := r.Group("/api/v1")
	v1.GET("/risk", h.GetRisk)
	v1.GET("/classify", h.Classify)
	v1.GET("/shelters", h.SheltersWithin)
	v1.GET("/shelters/nearest", h.NearestShelters)
	v1.GET("/dispatch/voices", h.ListVoices)
	v1.POST("/dispatch/call", h.DispatchCall)
	v1.POST("/dispatch/sms", h.DispatchSMS)
	return r
}

// GetRisk GET /api/v1/risk
func (h *Handler) GetRisk(c *gin.Context) {
	a, ok := h.risk.Latest()
	if !ok {
		abort(c, http.StatusServiceUnavailable, "not_ready", "no risk assessment produced yet")
		return
	}
	c.JSON(http.StatusOK, a)
}

type classifyResponse struct {
	PressureHPa float64         `json:"pressure_hpa"`
	Tier        domain.RiskTier `json:"tier"`
	Classifier  string          `json:"classifier"`
}

// Classify GET /api/v1/classify?pressure=<hPa> runs the configured classifier
// on a simulated reading at the centre.
func (h *Handler) Classify(c *gin.Context) {
	raw := c.Query("pressure")
	if raw == "" {
		abort(c, http.StatusBadRequest, "missing_parameter", "pressure parameter is required")
		return
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid_parameter", "invalid pressure value")
		return
	}
	tier, err := h.classifier.Classify(c.Request.Context(), domain.PressureReading{
		Latitude:      h.centre.Latitude,
		Longitude:     h.centre.Longitude,
		PressureHPa:   p,
		LocationLabel: "simulation",
	})
	if errors.Is(err, domain.ErrInvalidMeasurement) {
		abort(c, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("simulated classification failed", "classifier", h.classifier.Name(), "error", err)
		abort(c, http.StatusInternalServerError, "internal_error", "classification failed")
		return
	}
	c.JSON(http.StatusOK, classifyResponse{PressureHPa: p, Tier: tier, Classifier: h.classifier.Name()})
}

type shelterListResponse struct {
	Origin   domain.Coordinate      `json:"origin"`
	Shelters domain.ProximityResult `json:"shelters"`
}

// NearestShelters GET /api/v1/shelters/nearest?lat=&lon=&limit=
func (h *Handler) NearestShelters(c *gin.Context) {
	origin, ok := h.origin(c)
	if !ok {
		return
	}
	limit := defaultNearestLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abort(c, http.StatusBadRequest, "invalid_parameter", "limit must be a positive integer")
			return
		}
		limit = n
	}

	reg, ok := h.registry(c)
	if !ok {
		return
	}
	ranked, err := reg.Nearest(origin, limit)
	if err != nil {
		h.shelterError(c, err)
		return
	}
	c.JSON(http.StatusOK, shelterListResponse{Origin: origin, Shelters: ranked})
}

// SheltersWithin GET /api/v1/shelters?lat=&lon=&radius_km=
func (h *Handler) SheltersWithin(c *gin.Context) {
	origin, ok := h.origin(c)
	if !ok {
		return
	}
	raw := c.Query("radius_km")
	if raw == "" {
		abort(c, http.StatusBadRequest, "missing_parameter", "radius_km parameter is required")
		return
	}
	radius, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid_parameter", "invalid radius_km value")
		return
	}

	reg, ok := h.registry(c)
	if !ok {
		return
	}
	found, err := reg.Within(origin, radius)
	if err != nil {
		h.shelterError(c, err)
		return
	}
	c.JSON(http.StatusOK, shelterListResponse{Origin: origin, Shelters: found})
}

// ListVoices GET /api/v1/dispatch/voices
func (h *Handler) ListVoices(c *gin.Context) {
	if h.dispatcher == nil {
		abort(c, http.StatusServiceUnavailable, "dispatch_disabled", "notification dispatch is not configured")
		return
	}
	c.JSON(http.StatusOK, gin.H{"voices": h.dispatcher.Voices()})
}

type callRequest struct {
	Contact string `json:"contact" binding:"required"`
	Voice   string `json:"voice" binding:"required"`
}

// DispatchCall POST /api/v1/dispatch/call
func (h *Handler) DispatchCall(c *gin.Context) {
	if h.dispatcher == nil {
		abort(c, http.StatusServiceUnavailable, "dispatch_disabled", "notification dispatch is not configured")
		return
	}
	var req callRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return
	}

	res, err := h.dispatcher.Call(c.Request.Context(), req.Contact, req.Voice)
	if err != nil {
		h.dispatchError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

type smsRequest struct {
	Contact string `json:"contact" binding:"required"`
}

// DispatchSMS POST /api/v1/dispatch/sms sends the latest assessment to one contact.
func (h *Handler) DispatchSMS(c *gin.Context) {
	if h.dispatcher == nil {
		abort(c, http.StatusServiceUnavailable, "dispatch_disabled", "notification dispatch is not configured")
		return
	}
	var req smsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return
	}
	a, ok := h.risk.Latest()
	if !ok {
		abort(c, http.StatusServiceUnavailable, "not_ready", "no risk assessment produced yet")
		return
	}

	res, err := h.dispatcher.Alert(c.Request.Context(), dispatch.Notification{
		Contact:       req.Contact,
		Tier:          a.Tier,
		LocationLabel: a.Reading.LocationLabel,
		PressureHPa:   a.Reading.PressureHPa,
	})
	if err != nil {
		h.dispatchError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

// origin reads lat/lon, falling back to the configured centre when both are absent.
func (h *Handler) origin(c *gin.Context) (domain.Coordinate, bool) {
	latRaw, lonRaw := c.Query("lat"), c.Query("lon")
	if latRaw == "" && lonRaw == "" {
		return h.centre, true
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid_parameter", "invalid lat value")
		return domain.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid_parameter", "invalid lon value")
		return domain.Coordinate{}, false
	}
	o := domain.Coordinate{Latitude: lat, Longitude: lon}
	if err := o.Validate(); err != nil {
		abort(c, http.StatusBadRequest, "invalid_parameter", err.Error())
		return domain.Coordinate{}, false
	}
	return o, true
}

func (h *Handler) registry(c *gin.Context) (*registry.Registry, bool) {
	reg, err := h.shelters.Get()
	if err != nil {
		h.logger.Error("shelter registry unavailable", "error", err)
		abort(c, http.StatusInternalServerError, "internal_error", "shelter registry unavailable")
		return nil, false
	}
	return reg, true
}

func (h *Handler) shelterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinate), errors.Is(err, registry.ErrInvalidRadius):
		abort(c, http.StatusBadRequest, "invalid_parameter", err.Error())
	default:
		h.logger.Error("shelter query failed", "error", err)
		abort(c, http.StatusInternalServerError, "internal_error", "shelter query failed")
	}
}

func (h *Handler) dispatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dispatch.ErrInvalidContact), errors.Is(err, dispatch.ErrUnknownVoice):
		abort(c, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, dispatch.ErrAllAccountsFailed):
		h.logger.Error("dispatch failed on every account", "error", err)
		abort(c, http.StatusBadGateway, "provider_error", "all provider accounts failed")
	case errors.Is(err, dispatch.ErrNoAccounts):
		abort(c, http.StatusServiceUnavailable, "dispatch_disabled", err.Error())
	default:
		h.logger.Error("dispatch failed", "error", err)
		abort(c, http.StatusInternalServerError, "internal_error", "dispatch failed")
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   code,
		"message": message,
	})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("api request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
