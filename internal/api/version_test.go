package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
)

func TestVersionHandler(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want BuildInfo
	}{
		{
			name: "with all values",
			info: BuildInfo{Version: "0.1.0", GitCommit: "abc123def456", BuildDate: "2026-01-28T12:00:00Z"},
			want: BuildInfo{Version: "0.1.0", GitCommit: "abc123def456", BuildDate: "2026-01-28T12:00:00Z"},
		},
		{
			name: "with defaults",
			want: BuildInfo{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
		},
		{
			name: "with partial values",
			info: BuildInfo{Version: "1.0.0", BuildDate: "2026-01-28T12:00:00Z"},
			want: BuildInfo{Version: "1.0.0", GitCommit: "unknown", BuildDate: "2026-01-28T12:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			VersionHandler(tt.info).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %q", ct)
			}

			var got versionResponse
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if got.BuildInfo != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got.BuildInfo)
			}
			if got.GoVersion != runtime.Version() {
				t.Errorf("expected go_version %q, got %q", runtime.Version(), got.GoVersion)
			}
		})
	}
}

func TestBuildInfoWithDefaultsKeepsValues(t *testing.T) {
	info := BuildInfo{Version: "2.0.0", GitCommit: "f00", BuildDate: "today"}
	if got := info.WithDefaults(); got != info {
		t.Errorf("expected unchanged build info, got %+v", got)
	}
}
