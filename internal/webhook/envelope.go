// Package webhook adapts voice-agent tool-call envelopes to triage lookups.
package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	ActionLookupSymptom = "lookup_symptom"
	// ActionLookupMedicalGraph is the name older agent configurations still send.
	ActionLookupMedicalGraph = "lookup_medical_graph"

	ArgSymptom = "symptom"
)

// Shapes an inbound body may take.
const (
	ShapeToolCalls    = "tool_calls"
	ShapeFunctionCall = "function_call"
	ShapeManual       = "manual"
	ShapeHeartbeat    = "heartbeat"
)

// Call is one canonical tool invocation regardless of the envelope it arrived in.
type Call struct {
	ID   string
	Name string
	Args map[string]any
}

// Symptom returns the trimmed symptom argument; false when absent, blank or not a string.
func (c Call) Symptom() (string, bool) {
	v, ok := c.Args[ArgSymptom]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

type Envelope struct {
	Shape       string
	MessageType string
	Calls       []Call
}

type rawToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type rawFunctionCall struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
	ToolCallID string          `json:"toolCallId"`
}

type rawEnvelope struct {
	Message *struct {
		Type         string           `json:"type"`
		ToolCalls    []rawToolCall    `json:"toolCalls"`
		FunctionCall *rawFunctionCall `json:"functionCall"`
	} `json:"message"`
	Symptom json.RawMessage `json:"symptom"`
}

// Normalize parses body into canonical calls. Bodies that are valid JSON but carry no call come back as a
// heartbeat envelope; only unparseable bodies are errors.
func Normalize(body []byte) (Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Envelope{}, errors.New("webhook: empty body")
	}
	var raw rawEnvelope
	if err := json.Unmarshal(body, &raw); err != nil {
		return Envelope{}, fmt.Errorf("webhook: decode envelope: %w", err)
	}

	if m := raw.Message; m != nil {
		env := Envelope{MessageType: m.Type}
		if len(m.ToolCalls) > 0 {
			env.Shape = ShapeToolCalls
			for _, tc := range m.ToolCalls {
				env.Calls = append(env.Calls, Call{
					ID:   tc.ID,
					Name: strings.TrimSpace(tc.Function.Name),
					Args: decodeArgs(tc.Function.Arguments),
				})
			}
			return env, nil
		}
		if fc := m.FunctionCall; fc != nil && strings.TrimSpace(fc.Name) != "" {
			env.Shape = ShapeFunctionCall
			env.Calls = []Call{{
				ID:   fc.ToolCallID,
				Name: strings.TrimSpace(fc.Name),
				Args: decodeArgs(fc.Parameters),
			}}
			return env, nil
		}
		env.Shape = ShapeHeartbeat
		return env, nil
	}

	if len(raw.Symptom) > 0 {
		return Envelope{
			Shape: ShapeManual,
			Calls: []Call{{
				Name: ActionLookupSymptom,
				Args: decodeArgs([]byte(`{"symptom":` + string(raw.Symptom) + `}`)),
			}},
		}, nil
	}
	return Envelope{Shape: ShapeHeartbeat}, nil
}

// decodeArgs accepts an object or a JSON string holding an object. Anything else yields empty args.
func decodeArgs(raw json.RawMessage) map[string]any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return map[string]any{}
		}
		raw = bytes.TrimSpace([]byte(s))
		if len(raw) == 0 {
			return map[string]any{}
		}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}
