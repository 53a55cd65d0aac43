package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/triage-graph/internal/platform/apierr"
	"github.com/yungbote/triage-graph/internal/platform/ctxutil"
	"github.com/yungbote/triage-graph/internal/platform/logger"
	"github.com/yungbote/triage-graph/internal/webhook"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// WebhookHandler answers tool-call envelopes. It never surfaces parse or lookup failures to the caller.
type WebhookHandler struct {
	handler  *webhook.Handler
	maxBytes int64
	log      *logger.Logger
}

func NewWebhookHandler(h *webhook.Handler, maxBytes int64, log *logger.Logger) *WebhookHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WebhookHandler{handler: h, maxBytes: maxBytes, log: log.With("handler", "WebhookHandler")}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	body := io.Reader(c.Request.Body)
	if h.maxBytes > 0 {
		body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, apierr.New(http.StatusRequestEntityTooLarge, "body_too_large", errors.New("request body too large")))
			return
		}
		respondError(c, apierr.New(http.StatusBadRequest, "read_body", err))
		return
	}

	ctx := c.Request.Context()
	env, err := webhook.Normalize(raw)
	if err != nil {
		h.log.Warn("unparseable webhook body", append([]interface{}{"error", err, "bytes", len(raw)}, ctxutil.LogFields(ctx)...)...)
		c.JSON(http.StatusOK, webhook.OK())
		return
	}
	h.log.Debug("webhook envelope", append([]interface{}{"shape", env.Shape, "message_type", env.MessageType, "calls", len(env.Calls)}, ctxutil.LogFields(ctx)...)...)

	c.JSON(http.StatusOK, h.handler.Handle(ctx, env))
}

func healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func readyz(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			if err := p.Ping(c.Request.Context()); err != nil {
				respondError(c, apierr.New(http.StatusServiceUnavailable, "not_ready", err))
				return
			}
		}
		c.String(http.StatusOK, "ok")
	}
}
