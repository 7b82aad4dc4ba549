package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"obsim/internal/config"
	ilog "obsim/internal/infra/log"
)

func TestLoggerPreservesHijacker(t *testing.T) {
	logger := ilog.NewLogger(config.Load())
	var hijackable bool
	h := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hijackable = w.(http.Hijacker)
		w.WriteHeader(http.StatusNoContent)
	})))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !hijackable {
		t.Fatal("wrapped writer lost http.Hijacker")
	}
}

func TestHijackWithoutSupportErrs(t *testing.T) {
	// ResponseRecorder cannot hijack; the wrapper must say so, not panic
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), status: 200}
	if _, _, err := rw.Hijack(); err == nil {
		t.Fatal("expected error from non-hijackable writer")
	}
}
