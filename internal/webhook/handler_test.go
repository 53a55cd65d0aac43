package webhook

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/yungbote/triage-graph/internal/triage"
)

type fakeTriager struct {
	mu    sync.Mutex
	calls []string
	res   triage.Result
}

func (f *fakeTriager) Triage(ctx context.Context, text string) triage.Result {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	r := f.res
	r.Symptom = text
	return r
}

func chestPainResult() triage.Result {
	return triage.Result{
		Matches:    []triage.Match{{ConceptID: "29857009", Term: "Chest pain", Score: 1}},
		Conditions: []triage.Condition{{ConceptID: "22298006", Term: "Myocardial infarction"}},
		Summary:    "I found a match for 'Chest pain' in the clinical database.",
	}
}

func handle(t *testing.T, h *Handler, body string) Reply {
	t.Helper()
	env, err := Normalize([]byte(body))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return h.Handle(context.Background(), env)
}

func TestHandleToolCallScenario(t *testing.T) {
	ft := &fakeTriager{res: chestPainResult()}
	h := NewHandler(ft, nil, nil)

	reply := handle(t, h, `{"message":{"toolCalls":[{"id":"x1","function":{"name":"lookup_symptom","arguments":"{\"symptom\":\"chest pain\"}"}}]}}`)
	if reply.Status != "" || len(reply.Results) != 1 {
		t.Fatalf("reply=%+v", reply)
	}
	if reply.Results[0].ToolCallID != "x1" {
		t.Fatalf("toolCallId=%q", reply.Results[0].ToolCallID)
	}

	var got triage.Result
	if err := json.Unmarshal([]byte(reply.Results[0].Result), &got); err != nil {
		t.Fatalf("result is not JSON text: %v", err)
	}
	if got.Symptom != "chest pain" || got.Matches[0].Term != "Chest pain" || got.Conditions[0].Term != "Myocardial infarction" {
		t.Fatalf("decoded=%+v", got)
	}
	if len(ft.calls) != 1 || ft.calls[0] != "chest pain" {
		t.Fatalf("triager calls=%v", ft.calls)
	}
}

func TestHandleHeartbeat(t *testing.T) {
	ft := &fakeTriager{}
	reply := handle(t, NewHandler(ft, nil, nil), `{"message":{"type":"status-update"}}`)

	raw, _ := json.Marshal(reply)
	if string(raw) != `{"status":"ok"}` {
		t.Fatalf("reply=%s", raw)
	}
	if len(ft.calls) != 0 {
		t.Fatalf("triager called on heartbeat")
	}
}

func TestHandleMissingSymptom(t *testing.T) {
	ft := &fakeTriager{}
	reply := handle(t, NewHandler(ft, nil, nil), `{"message":{"toolCalls":[{"id":"x1","function":{"name":"lookup_symptom","arguments":"{}"}}]}}`)
	if reply.Status != "ok" || len(reply.Results) != 0 {
		t.Fatalf("reply=%+v", reply)
	}
	if len(ft.calls) != 0 {
		t.Fatalf("triager called without symptom")
	}
}

func TestHandleUnknownActionIgnored(t *testing.T) {
	ft := &fakeTriager{res: chestPainResult()}
	reply := handle(t, NewHandler(ft, nil, nil), `{"message":{"toolCalls":[
		{"id":"a","function":{"name":"end_call","arguments":"{}"}},
		{"id":"b","function":{"name":"lookup_medical_graph","arguments":"{\"symptom\":\"nausea\"}"}}
	]}}`)
	if len(reply.Results) != 1 || reply.Results[0].ToolCallID != "b" {
		t.Fatalf("reply=%+v", reply)
	}
}

func TestHandleFunctionCallAndManualShapes(t *testing.T) {
	ft := &fakeTriager{res: chestPainResult()}
	h := NewHandler(ft, nil, nil)

	reply := handle(t, h, `{"message":{"type":"function-call","functionCall":{"name":"lookup_symptom","parameters":{"symptom":"chest pain"},"toolCallId":"fc-1"}}}`)
	if len(reply.Results) != 1 || reply.Results[0].ToolCallID != "fc-1" {
		t.Fatalf("function call reply=%+v", reply)
	}

	reply = handle(t, h, `{"symptom":"chest pain"}`)
	if len(reply.Results) != 1 || reply.Results[0].ToolCallID != "" {
		t.Fatalf("manual reply=%+v", reply)
	}
}

func TestHandleDegradedResultStillReplies(t *testing.T) {
	ft := &fakeTriager{res: triage.Result{
		Matches:    []triage.Match{},
		Conditions: []triage.Condition{},
		Summary:    "I am having trouble accessing the records right now.",
		Degraded:   true,
	}}
	reply := handle(t, NewHandler(ft, nil, nil), `{"symptom":"dizziness"}`)
	if len(reply.Results) != 1 {
		t.Fatalf("reply=%+v", reply)
	}
	var got triage.Result
	if err := json.Unmarshal([]byte(reply.Results[0].Result), &got); err != nil || !got.Degraded {
		t.Fatalf("decoded=%+v err=%v", got, err)
	}
}
