package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campus-events/server/internal/api/middleware"
	"github.com/rs/zerolog"
)

func decodeAudit(t *testing.T, buf *bytes.Buffer) (map[string]json.RawMessage, Entry) {
	t.Helper()

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &wrapper); err != nil {
		t.Fatalf("failed to parse logged JSON: %v\nOutput: %s", err, buf.String())
	}

	auditData, ok := wrapper["audit"]
	if !ok {
		t.Fatalf("no 'audit' field in logged JSON: %s", buf.String())
	}

	var logged Entry
	if err := json.Unmarshal(auditData, &logged); err != nil {
		t.Fatalf("failed to parse audit entry: %v", err)
	}
	return wrapper, logged
}

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.New(&buf))

	entry := Entry{
		Action:       "event.create",
		ResourceType: "event",
		ResourceID:   "01HX12ABC123",
		IPAddress:    "192.168.1.1",
		Status:       "success",
		Details:      map[string]string{"category": "Career"},
	}

	logger.Log(entry)

	wrapper, logged := decodeAudit(t, &buf)

	if logged.Action != entry.Action {
		t.Errorf("Action mismatch: got %s, want %s", logged.Action, entry.Action)
	}
	if logged.ResourceType != entry.ResourceType {
		t.Errorf("ResourceType mismatch: got %s, want %s", logged.ResourceType, entry.ResourceType)
	}
	if logged.ResourceID != entry.ResourceID {
		t.Errorf("ResourceID mismatch: got %s, want %s", logged.ResourceID, entry.ResourceID)
	}
	if logged.IPAddress != entry.IPAddress {
		t.Errorf("IPAddress mismatch: got %s, want %s", logged.IPAddress, entry.IPAddress)
	}
	if logged.Status != entry.Status {
		t.Errorf("Status mismatch: got %s, want %s", logged.Status, entry.Status)
	}
	if logged.Details["category"] != "Career" {
		t.Errorf("Details mismatch: got %v", logged.Details)
	}
	if logged.Timestamp.IsZero() {
		t.Error("Timestamp should be set automatically")
	}
	if string(wrapper["level"]) != `"info"` {
		t.Errorf("expected info level, got %s", wrapper["level"])
	}
	if string(wrapper["component"]) != `"audit"` {
		t.Errorf("expected audit component, got %s", wrapper["component"])
	}
}

func TestLogger_LogKeepsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.New(&buf))

	ts := time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)
	logger.Log(Entry{Timestamp: ts, Action: "event.delete", Status: "success"})

	_, logged := decodeAudit(t, &buf)
	if !logged.Timestamp.Equal(ts) {
		t.Errorf("Timestamp mismatch: got %v, want %v", logged.Timestamp, ts)
	}
}

func TestLogger_FailureLogsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.New(&buf))

	logger.Log(Entry{Action: "event.delete", Status: "failure"})

	wrapper, _ := decodeAudit(t, &buf)
	if string(wrapper["level"]) != `"warn"` {
		t.Errorf("expected warn level, got %s", wrapper["level"])
	}
}

func TestLogger_LogFromRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.New(&buf))

	var req *http.Request
	handler := middleware.CorrelationID(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req = r
	}))
	incoming := httptest.NewRequest(http.MethodDelete, "/api/events/abc", nil)
	incoming.Header.Set("X-Request-ID", "req-42")
	incoming.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), incoming)

	logger.LogFromRequest(req, "event.delete", "event", "abc", "success", nil)

	_, logged := decodeAudit(t, &buf)
	if logged.IPAddress != "203.0.113.7" {
		t.Errorf("IPAddress mismatch: got %s", logged.IPAddress)
	}
	if logged.RequestID != "req-42" {
		t.Errorf("RequestID mismatch: got %s", logged.RequestID)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "198.51.100.4:5123", want: "198.51.100.4"},
		{name: "x-real-ip", headers: map[string]string{"X-Real-IP": "192.0.2.9"}, remote: "10.0.0.1:80", want: "192.0.2.9"},
		{name: "x-forwarded-for first hop", headers: map[string]string{"X-Forwarded-For": "192.0.2.1, 10.0.0.2"}, remote: "10.0.0.1:80", want: "192.0.2.1"},
		{name: "remote without port", remote: "unix", want: "unix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Log(Entry{Action: "noop"})
	logger.LogFromRequest(httptest.NewRequest(http.MethodGet, "/", nil), "noop", "", "", "success", nil)
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("expected nil logger from empty context")
	}

	logger := NewLogger(zerolog.Nop())
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected stored logger")
	}
}
