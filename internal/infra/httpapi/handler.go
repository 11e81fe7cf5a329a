package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
	"github.com/stepwise/stepwise-processing-service/internal/domain/service"
	"go.uber.org/zap"
)

type HandlerConfig struct {
	UploadDir         string
	MaxUploadBytes    int64
	AllowedExtensions []string
	Debug             bool
}

// Handler serves the guide API. uploads and requests may be nil, in which
// case async processing is unavailable. keyframes is nil unless keyframes are
// delivered as presigned object URLs.
type Handler struct {
	extractor port.GuideExtractor
	guides    port.GuideRepository
	callbacks port.CallbackSender
	uploads   port.VideoStorage
	requests  port.RequestPublisher
	keyframes port.KeyframeSigner
	pool      *ants.Pool
	logger    *zap.Logger
	cfg       HandlerConfig
	now       func() time.Time
}

func NewHandler(
	extractor port.GuideExtractor,
	guides port.GuideRepository,
	callbacks port.CallbackSender,
	uploads port.VideoStorage,
	requests port.RequestPublisher,
	keyframes port.KeyframeSigner,
	pool *ants.Pool,
	logger *zap.Logger,
	cfg HandlerConfig,
) *Handler {
	return &Handler{
		extractor: extractor,
		guides:    guides,
		callbacks: callbacks,
		uploads:   uploads,
		requests:  requests,
		keyframes: keyframes,
		pool:      pool,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(g *gin.Engine, apiKey string) {
	g.GET("/health", h.Health)

	api := g.Group("/api/v1", APIKeyAuth(apiKey))
	api.POST("/process-video", h.ProcessVideo)
	api.GET("/guides/:guide_id", h.GetGuide)
}

func (h *Handler) Health(c *gin.Context) {
	now := h.now()
	c.JSON(http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
	})
}

func (h *Handler) ProcessVideo(c *gin.Context) {
	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm:
		h.processUpload(c)
	case gin.MIMEJSON:
		h.processURL(c)
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "expected multipart/form-data or application/json"})
	}
}

func (h *Handler) processUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", h.cfg.MaxUploadBytes)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !slices.Contains(h.cfg.AllowedExtensions, strings.TrimPrefix(ext, ".")) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unsupported file type. Allowed: " + strings.Join(h.cfg.AllowedExtensions, ", "),
		})
		return
	}

	var guideID *int
	if raw := c.PostForm("guide_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "guide_id must be an integer"})
			return
		}
		guideID = &id
	}

	async, err := parseAsync(c.PostForm("async"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "async must be a boolean"})
		return
	}
	callbackURL := c.PostForm("callback_url")

	path := filepath.Join(h.cfg.UploadDir, uuid.NewString()+ext)
	contentID, err := saveUpload(fh, path)
	if err != nil {
		h.logger.Error("failed to store upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}
	if guideID == nil {
		guideID = &contentID
	}

	cleanup := func() {
		if h.cfg.Debug {
			return
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("failed to remove upload", zap.String("path", path), zap.Error(err))
		}
	}

	if async {
		defer cleanup()
		ref, err := h.stageUpload(c.Request.Context(), path)
		if err != nil {
			h.respondAsyncError(c, err)
			return
		}
		h.enqueue(c, *guideID, ref, callbackURL)
		return
	}

	h.run(c, entity.ExtractionRequest{Reference: path, GuideID: *guideID}, callbackURL, cleanup)
}

func (h *Handler) processURL(c *gin.Context) {
	var req processVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if req.Async {
		if h.requests == nil {
			h.respondAsyncError(c, errAsyncUnavailable)
			return
		}
		h.enqueue(c, *req.GuideID, req.VideoURL, req.CallbackURL)
		return
	}

	h.run(c, entity.ExtractionRequest{Reference: req.VideoURL, GuideID: *req.GuideID}, req.CallbackURL, nil)
}

func (h *Handler) GetGuide(c *gin.Context) {
	guideID, err := strconv.Atoi(c.Param("guide_id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "guide_id must be an integer"})
		return
	}

	guide, err := h.guides.FindLatest(c.Request.Context(), guideID)
	if errors.Is(err, entity.ErrGuideNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "guide not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to load guide", zap.Int("guide_id", guideID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load guide"})
		return
	}
	h.refreshKeyframeURLs(c.Request.Context(), guide)
	c.JSON(http.StatusOK, guide)
}

// refreshKeyframeURLs renews presigned step images. A step keeps its stored
// URL when signing fails.
func (h *Handler) refreshKeyframeURLs(ctx context.Context, guide *entity.Guide) {
	if h.keyframes == nil {
		return
	}
	for i := range guide.Steps {
		u, err := h.keyframes.RefreshKeyframeURL(ctx, guide.Steps[i].ImageURL)
		if err != nil {
			h.logger.Warn("failed to refresh keyframe url",
				zap.Int("guide_id", guide.GuideID),
				zap.Int("order", guide.Steps[i].Order),
				zap.Error(err),
			)
			continue
		}
		guide.Steps[i].ImageURL = u
	}
}

// run executes the extraction on the worker pool and writes the guide.
func (h *Handler) run(c *gin.Context, req entity.ExtractionRequest, callbackURL string, cleanup func()) {
	log := h.logger.With(zap.Int("guide_id", req.GuideID))

	guide, err := h.extract(c.Request.Context(), req, cleanup)
	if err != nil {
		if errors.Is(err, entity.ErrSourceUnavailable) {
			cause := errors.Unwrap(err)
			if cause == nil {
				cause = err
			}
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not open video: " + cause.Error()})
			return
		}
		log.Error("guide extraction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	if err := h.guides.Save(c.Request.Context(), guide); err != nil {
		log.Warn("failed to persist guide", zap.Error(err))
	}

	if callbackURL != "" {
		payload := entity.CallbackPayload{
			GuideID:   guide.GuideID,
			Status:    entity.CallbackStatusCompleted,
			Result:    guide,
			Timestamp: h.now().UTC(),
		}
		ctx := context.WithoutCancel(c.Request.Context())
		go func() {
			if err := h.callbacks.SendCallback(ctx, callbackURL, payload); err != nil {
				log.Warn("callback not delivered", zap.Error(err))
			}
		}()
	}

	c.JSON(http.StatusOK, guide)
}

type extractResult struct {
	guide *entity.Guide
	err   error
}

// extract blocks until the pooled run finishes or ctx is done. cleanup runs
// once the extraction ends, whether or not the caller is still waiting.
func (h *Handler) extract(ctx context.Context, req entity.ExtractionRequest, cleanup func()) (*entity.Guide, error) {
	done := make(chan extractResult, 1)
	task := func() {
		var res extractResult
		defer func() {
			if r := recover(); r != nil {
				res = extractResult{err: fmt.Errorf("extraction panic: %v", r)}
			}
			if cleanup != nil {
				cleanup()
			}
			done <- res
		}()
		res.guide, res.err = h.extractor.Execute(context.WithoutCancel(ctx), req)
	}

	if err := h.pool.Submit(task); err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, fmt.Errorf("submit to worker pool: %w", err)
	}

	select {
	case r := <-done:
		return r.guide, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var errAsyncUnavailable = errors.New("async processing is not configured")

func (h *Handler) stageUpload(ctx context.Context, path string) (string, error) {
	if h.uploads == nil || h.requests == nil {
		return "", errAsyncUnavailable
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat upload: %w", err)
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(path); err == nil {
		contentType = mt.String()
	}

	return h.uploads.UploadVideo(ctx, filepath.Base(path), f, info.Size(), contentType)
}

func (h *Handler) enqueue(c *gin.Context, guideID int, videoRef, callbackURL string) {
	msg := entity.GuideRequestMessage{
		JobID:       uuid.New(),
		GuideID:     guideID,
		VideoRef:    videoRef,
		CallbackURL: callbackURL,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not encode request"})
		return
	}

	if err := h.requests.PublishRequest(c.Request.Context(), body); err != nil {
		h.logger.Error("failed to enqueue guide request", zap.Int("guide_id", guideID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not enqueue request"})
		return
	}

	h.logger.Info("guide request enqueued",
		zap.String("job_id", msg.JobID.String()),
		zap.Int("guide_id", guideID),
	)
	c.JSON(http.StatusAccepted, acceptedResponse{
		JobID:   msg.JobID,
		GuideID: guideID,
		Status:  string(entity.JobStatusPending),
	})
}

func (h *Handler) respondAsyncError(c *gin.Context, err error) {
	if errors.Is(err, errAsyncUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("failed to stage upload", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "could not stage upload"})
}

func parseAsync(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// saveUpload copies the uploaded file to path and returns the guide id derived
// from its content.
func saveUpload(fh *multipart.FileHeader, path string) (int, error) {
	src, err := fh.Open()
	if err != nil {
		return 0, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}

	id, _, err := service.GuideIDFromReader(io.TeeReader(src, dst))
	if err != nil {
		dst.Close()
		os.Remove(path)
		return 0, fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("close upload: %w", err)
	}
	return id, nil
}
