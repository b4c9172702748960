package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterBudget(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("first request: got %d, want 200", code)
	}
	if code := do("10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("second request within burst: got %d, want 200", code)
	}
	if code := do("10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("over budget: got %d, want 429", code)
	}

	// a different client has its own budget
	if code := do("10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("other client: got %d, want 200", code)
	}
}

func TestClientIPStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:55012"
	if got := clientIP(req); got != "192.168.1.9" {
		t.Fatalf("clientIP: got %q", got)
	}
}
