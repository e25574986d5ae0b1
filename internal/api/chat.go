package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matheus3301/murmur/internal/completion"
	"go.uber.org/zap"
)

const (
	maxBodyBytes = 1 << 20

	msgInternal = "There was an error processing your request"
	msgTooLarge = "request body too large"
)

type chatHandler struct {
	pipeline *completion.Pipeline
	logger   *zap.Logger
}

// handleChat streams a completion as chunked plain text. Errors before the
// first byte become JSON error bodies; later ones just end the response.
func (h *chatHandler) handleChat(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgTooLarge})
			return
		}
		h.logger.Error("read request body", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	req, err := h.pipeline.Prepare(body)
	if err != nil {
		if errors.Is(err, completion.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("prepare completion", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
	}

	err = h.pipeline.Stream(c.Request.Context(), req, func(chunk []byte) error {
		start()
		if _, err := c.Writer.Write(chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	switch {
	case err == nil:
		start()
	case !started:
		h.logger.Error("completion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	default:
		h.logger.Warn("completion stream interrupted", zap.Error(err))
	}
}
