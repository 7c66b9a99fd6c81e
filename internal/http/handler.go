package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"alpr-service/internal/config"
	"alpr-service/internal/domain/alpr"
	"alpr-service/internal/plate"
	"alpr-service/internal/recognizer"
	"alpr-service/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	alprService *service.ALPRService
	config      *config.Config
	log         zerolog.Logger
	uploadLimit gin.HandlerFunc
}

func NewHandler(
	alprService *service.ALPRService,
	cfg *config.Config,
	log zerolog.Logger,
	uploadLimit gin.HandlerFunc,
) *Handler {
	return &Handler{
		alprService: alprService,
		config:      cfg,
		log:         log,
		uploadLimit: uploadLimit,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc, adminOnly gin.HandlerFunc) {
	public := r.Group("/api/v1")
	{
		public.POST("/plates/resolve", h.resolvePlate)
		if h.uploadLimit != nil {
			public.POST("/frames", h.uploadLimit, h.uploadFrame)
		} else {
			public.POST("/frames", h.uploadFrame)
		}
		public.GET("/detections", h.listDetections)
		public.GET("/detections/export", h.exportDetections)
		public.GET("/regions", h.listRegions)
		public.GET("/regions/:code", h.getRegion)
		public.GET("/stats/regions", h.regionStats)
	}

	protected := r.Group("/api/v1")
	protected.Use(authMiddleware, adminOnly)
	{
		protected.DELETE("/detections", h.cleanupDetections)
	}
}

type resolveRequest struct {
	Text       string     `json:"text" binding:"required"`
	Confidence *float64   `json:"confidence"`
	BBox       plate.BBox `json:"bbox"`
}

func (h *Handler) resolvePlate(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	confidence := 1.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	rec, err := h.alprService.ResolveText(req.Text, confidence, req.BBox)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(rec))
}

func (h *Handler) uploadFrame(c *gin.Context) {
	maxBytes := h.config.Upload.MaxBytes
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse("image file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("failed to read image"))
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("failed to read image"))
		return
	}

	input := alpr.FrameInput{
		CameraID: c.PostForm("camera_id"),
		Image:    buf.Bytes(),
	}
	if raw := strings.TrimSpace(c.PostForm("captured_at")); raw != "" {
		capturedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid captured_at time format"))
			return
		}
		input.CapturedAt = capturedAt
	}

	h.log.Debug().
		Str("camera_id", input.CameraID).
		Str("filename", fileHeader.Filename).
		Int("size", buf.Len()).
		Msg("processing frame upload")

	result, err := h.alprService.ProcessFrame(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":       "ok",
		"frame_id":     result.FrameID,
		"camera_id":    result.CameraID,
		"snapshot_url": result.SnapshotURL,
		"records":      result.Records,
	})
}

func detectionQuery(c *gin.Context) service.DetectionQuery {
	q := service.DetectionQuery{
		Plate:  c.Query("plate"),
		Region: c.Query("region"),
		From:   c.Query("from"),
		To:     c.Query("to"),
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := parseInt(l); err == nil && parsed > 0 {
			q.Limit = parsed
		}
	}
	if o := c.Query("offset"); o != "" {
		if parsed, err := parseInt(o); err == nil && parsed >= 0 {
			q.Offset = parsed
		}
	}
	return q
}

func (h *Handler) listDetections(c *gin.Context) {
	records, err := h.alprService.FindDetections(c.Request.Context(), detectionQuery(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(records))
}

func (h *Handler) exportDetections(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.alprService.ExportDetections(c.Request.Context(), detectionQuery(c), &buf); err != nil {
		h.handleError(c, err)
		return
	}

	filename := fmt.Sprintf("detections_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) listRegions(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.alprService.ListRegions()))
}

func (h *Handler) getRegion(c *gin.Context) {
	region, err := h.alprService.LookupRegion(c.Param("code"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(region))
}

func (h *Handler) regionStats(c *gin.Context) {
	stats, err := h.alprService.RegionStats(c.Request.Context(), c.Query("from"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) cleanupDetections(c *gin.Context) {
	days := h.config.RetentionDays
	if raw := c.Query("older_than_days"); raw != "" {
		parsed, err := parseInt(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("older_than_days must be an integer"))
			return
		}
		days = parsed
	}

	deleted, err := h.alprService.CleanupOldDetections(c.Request.Context(), days)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "older_than_days": days})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse("image is too large"))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrUnrecognizedPlate):
		c.JSON(http.StatusUnprocessableEntity, errorResponse(err.Error()))
	case errors.Is(err, recognizer.ErrUnavailable):
		h.log.Warn().Err(err).Msg("recognizer unavailable")
		c.JSON(http.StatusServiceUnavailable, errorResponse("recognizer unavailable"))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
