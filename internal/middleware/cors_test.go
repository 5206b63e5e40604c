package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantOrigin string
	}{
		{"allowed preflight", http.MethodOptions, "https://app.example", true, http.StatusNoContent, "https://app.example"},
		{"foreign preflight", http.MethodOptions, "https://evil.example", true, http.StatusForbidden, ""},
		{"allowed request", http.MethodPost, "https://app.example", false, http.StatusTeapot, "https://app.example"},
		{"foreign request", http.MethodGet, "https://evil.example", false, http.StatusTeapot, ""},
		{"same origin", http.MethodGet, "", false, http.StatusTeapot, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/reports/x", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Fatalf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantStatus == http.StatusNoContent && rr.Header().Get("Access-Control-Max-Age") != "600" {
				t.Fatalf("missing max age on preflight")
			}
		})
	}
}
