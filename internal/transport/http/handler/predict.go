package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"melonsense/internal/app"
	"melonsense/internal/transport/http/middleware"
	"melonsense/internal/transport/http/response"
	"melonsense/internal/vision"
)

const (
	imageField = "file"
	// multipartOverhead leaves room for boundaries and part headers on top
	// of the file itself.
	multipartOverhead = 64 << 10
)

// PredictHandler serves watermelon assessments for uploaded images.
type PredictHandler struct {
	service        *app.AssessmentService
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewPredictHandler(service *app.AssessmentService, maxUploadBytes int64, logger *zap.Logger) *PredictHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Predict accepts a multipart form with the image under "file" (or, failing
// that, the first uploaded file) and returns the assessment.
func (h *PredictHandler) Predict(c *gin.Context) {
	log := h.logger.With(zap.String("request_id", middleware.GetRequestID(c)))

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, err := uploadedFile(c)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		log.Info("predict rejected: body too large", zap.Int64("limit", tooLarge.Limit))
		response.Error(c, http.StatusBadRequest, response.MsgImageTooLarge)
		return
	}
	if err != nil {
		log.Info("predict rejected: no image", zap.Error(err))
		response.Error(c, http.StatusBadRequest, response.MsgMissingImage)
		return
	}

	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		log.Info("predict rejected: image too large", zap.Int64("size", file.Size))
		response.Error(c, http.StatusBadRequest, response.MsgImageTooLarge)
		return
	}

	f, err := file.Open()
	if err != nil {
		log.Warn("open uploaded file failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, response.MsgInvalidImage)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		log.Warn("read uploaded file failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, response.MsgInvalidImage)
		return
	}

	result, err := h.service.Predict(c.Request.Context(), data)
	if err != nil {
		switch {
		case errors.Is(err, vision.ErrChannelMismatch):
			log.Info("predict rejected", zap.String("filename", file.Filename), zap.Error(err))
			response.Error(c, http.StatusBadRequest, response.MsgChannelMismatch)
		case errors.Is(err, vision.ErrDecode):
			log.Info("predict rejected", zap.String("filename", file.Filename), zap.Error(err))
			response.Error(c, http.StatusBadRequest, response.MsgInvalidImage)
		default:
			log.Error("predict failed", zap.String("filename", file.Filename), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, response.MsgPredictFailed)
		}
		return
	}

	response.OK(c, result)
}

func uploadedFile(c *gin.Context) (*multipart.FileHeader, error) {
	file, err := c.FormFile(imageField)
	if err == nil {
		return file, nil
	}
	if !errors.Is(err, http.ErrMissingFile) {
		return nil, err
	}

	form, formErr := c.MultipartForm()
	if formErr != nil {
		return nil, formErr
	}
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if files := form.File[field]; len(files) > 0 {
			return files[0], nil
		}
	}
	return nil, err
}
