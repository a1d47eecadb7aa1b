package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/polsterdata/polster/internal/cache"
	"github.com/polsterdata/polster/internal/service"
	"github.com/polsterdata/polster/internal/storage"
)

const defaultPreviewLimit = 100

type PreviewHandler struct {
	previews *service.PreviewService
	cache    cache.PreviewCache
	log      zerolog.Logger
}

func NewPreviewHandler(previews *service.PreviewService, previewCache cache.PreviewCache, log zerolog.Logger) *PreviewHandler {
	return &PreviewHandler{previews: previews, cache: previewCache, log: log}
}

// ListDatasets responds with every previewable dataset name.
func (h *PreviewHandler) ListDatasets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"datasets": h.previews.Datasets()})
}

// LatestPreview returns a row preview of a dataset's most recent object.
func (h *PreviewHandler) LatestPreview(c *gin.Context) {
	name := c.Param("name")

	limit := defaultPreviewLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	if cached, ok, err := h.cache.Get(c.Request.Context(), name, limit); err != nil {
		h.log.Warn().Err(err).Str("dataset", name).Msg("preview cache lookup failed")
	} else if ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	preview, err := h.previews.Latest(c.Request.Context(), name, limit)
	if err != nil {
		h.renderError(c, err)
		return
	}

	if err := h.cache.Set(c.Request.Context(), name, limit, preview); err != nil {
		h.log.Warn().Err(err).Str("dataset", name).Msg("preview cache store failed")
	}

	c.JSON(http.StatusOK, preview)
}

// ListObjects returns the stored object names of a layer.
func (h *PreviewHandler) ListObjects(c *gin.Context) {
	layer := storage.Layer(c.Param("layer"))
	if !layer.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown layer " + string(layer)})
		return
	}

	names, err := h.previews.Objects(c.Request.Context(), layer, c.Query("prefix"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"layer": layer, "objects": names})
}

func (h *PreviewHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("preview request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
