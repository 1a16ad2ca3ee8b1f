package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/ratelimit"
	"github.com/johnrirwin/channelfeed/internal/testutil"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       interface{}
		wantStatus int
	}{
		{
			name:       "success response",
			status:     http.StatusOK,
			data:       map[string]string{"message": "hello"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "item response",
			status:     http.StatusOK,
			data:       models.Item{URIID: 123, OwnerID: 4},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeJSON(w, tt.status, tt.data)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			contentType := w.Header().Get("Content-Type")
			if contentType != "application/json" {
				t.Errorf("Content-Type = %s, want application/json", contentType)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		code       string
		message    string
		wantStatus int
	}{
		{
			name:       "bad request",
			status:     http.StatusBadRequest,
			code:       "invalid_cursor",
			message:    "invalid created cursor",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not found",
			status:     http.StatusNotFound,
			code:       "not_found",
			message:    "channel not found",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "internal error",
			status:     http.StatusInternalServerError,
			code:       "storage_error",
			message:    "something went wrong",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, tt.status, tt.code, tt.message)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var response map[string]string
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}

			if response["code"] != tt.code {
				t.Errorf("code = %s, want %s", response["code"], tt.code)
			}
			if response["error"] != tt.message {
				t.Errorf("error = %s, want %s", response["error"], tt.message)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	s := &Server{logger: testutil.NullLogger()}

	called := false
	handler := s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	t.Run("OPTIONS request", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodOptions, "/api/network", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") == "" {
			t.Error("Missing Access-Control-Allow-Origin header")
		}
		if called {
			t.Error("preflight reached the handler")
		}
	})

	t.Run("GET request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/network", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})
}

func TestRequestID(t *testing.T) {
	s := &Server{logger: testutil.NullLogger()}

	var seen string
	handler := s.requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	t.Run("generated when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		if _, err := uuid.Parse(seen); err != nil {
			t.Fatalf("request id %q is not a uuid", seen)
		}
		if got := w.Header().Get(RequestIDHeader); got != seen {
			t.Errorf("header = %s, want %s", got, seen)
		}
	})

	t.Run("incoming id kept", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, id)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seen != id {
			t.Errorf("request id = %s, want %s", seen, id)
		}
	})

	t.Run("garbage replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "not-an-id")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seen == "not-an-id" {
			t.Error("invalid incoming id was propagated")
		}
	})
}

func throttledSender(s *Server) func(remote, forwarded string) int {
	handler := s.throttle(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/community", nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		w := httptest.NewRecorder()
		handler(w, req)
		return w.Code
	}
}

func TestThrottle(t *testing.T) {
	send := throttledSender(&Server{logger: testutil.NullLogger(), limiter: ratelimit.New(time.Hour)})

	if got := send("203.0.113.7:4000", ""); got != http.StatusOK {
		t.Fatalf("first request status = %d", got)
	}
	if got := send("203.0.113.7:4001", ""); got != http.StatusTooManyRequests {
		t.Errorf("second request from same host status = %d, want 429", got)
	}
	if got := send("198.51.100.2:4000", ""); got != http.StatusOK {
		t.Errorf("other host status = %d", got)
	}
	// A client rotating X-Forwarded-For values stays keyed on its own address
	if got := send("198.51.100.2:4001", "192.0.2.99"); got != http.StatusTooManyRequests {
		t.Errorf("spoofed forwarded header status = %d, want 429", got)
	}
}

func TestThrottle_TrustedProxy(t *testing.T) {
	send := throttledSender(&Server{logger: testutil.NullLogger(), limiter: ratelimit.New(time.Hour), trustProxy: true})

	if got := send("10.0.0.1:80", "192.0.2.5, 10.0.0.1"); got != http.StatusOK {
		t.Errorf("forwarded client status = %d", got)
	}
	if got := send("10.0.0.2:80", "192.0.2.5"); got != http.StatusTooManyRequests {
		t.Errorf("repeat forwarded client status = %d, want 429", got)
	}
	if got := send("10.0.0.1:80", "192.0.2.6"); got != http.StatusOK {
		t.Errorf("second forwarded client behind same proxy status = %d", got)
	}
	if got := send("192.0.2.7:5000", ""); got != http.StatusOK {
		t.Errorf("direct client status = %d", got)
	}
}
