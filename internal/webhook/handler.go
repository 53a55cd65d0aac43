package webhook

import (
	"context"
	"encoding/json"

	"github.com/yungbote/triage-graph/internal/observability"
	"github.com/yungbote/triage-graph/internal/platform/logger"
	"github.com/yungbote/triage-graph/internal/triage"
)

type Triager interface {
	Triage(ctx context.Context, text string) triage.Result
}

type Result struct {
	ToolCallID string `json:"toolCallId"`
	// Result is the triage result serialized to JSON text; callers expect an opaque string.
	Result string `json:"result"`
}

// Reply carries either Results or Status "ok", never both.
type Reply struct {
	Results []Result `json:"results,omitempty"`
	Status  string   `json:"status,omitempty"`
}

func OK() Reply { return Reply{Status: "ok"} }

type Handler struct {
	triager Triager
	metrics *observability.Metrics
	log     *logger.Logger
}

func NewHandler(t Triager, log *logger.Logger, metrics *observability.Metrics) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{triager: t, metrics: metrics, log: log.With("component", "WebhookHandler")}
}

func (h *Handler) Handle(ctx context.Context, env Envelope) Reply {
	results := make([]Result, 0, len(env.Calls))
	for _, call := range env.Calls {
		if r, ok := h.dispatch(ctx, env.Shape, call); ok {
			results = append(results, r)
		}
	}
	if len(results) == 0 {
		return OK()
	}
	return Reply{Results: results}
}

func (h *Handler) dispatch(ctx context.Context, shape string, call Call) (Result, bool) {
	switch call.Name {
	case ActionLookupSymptom, ActionLookupMedicalGraph:
	default:
		h.log.Debug("ignoring tool call", "action", call.Name, "tool_call_id", call.ID, "shape", shape)
		h.metrics.WebhookCall("unknown", "ignored")
		return Result{}, false
	}

	symptom, ok := call.Symptom()
	if !ok {
		h.log.Warn("tool call missing symptom argument", "action", call.Name, "tool_call_id", call.ID, "shape", shape)
		h.metrics.WebhookCall(call.Name, "missing_symptom")
		return Result{}, false
	}

	res := h.triager.Triage(ctx, symptom)
	payload, err := json.Marshal(res)
	if err != nil {
		h.log.Error("encode triage result", "error", err, "tool_call_id", call.ID)
		h.metrics.WebhookCall(call.Name, "error")
		return Result{}, false
	}

	outcome := "ok"
	if res.Degraded {
		outcome = "degraded"
	}
	h.log.Info("tool call served",
		"action", call.Name,
		"tool_call_id", call.ID,
		"symptom", symptom,
		"matches", len(res.Matches),
		"conditions", len(res.Conditions),
		"outcome", outcome,
	)
	h.metrics.WebhookCall(call.Name, outcome)
	return Result{ToolCallID: call.ID, Result: string(payload)}, true
}
