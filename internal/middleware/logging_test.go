package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

// Тест: логирующая мидлварь прозрачна для хендлера — статус и тело ошибки
// "деталь не найдена" доходят до клиента без искажений
func TestWithLogging_PassesThroughNotFound(t *testing.T) {
	SetLogger(zap.NewNop().Sugar())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown part", http.StatusNotFound)
	})
	h := WithLogging(next)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/parts/no-such-part", nil)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status passthrough failed: got %d", rr.Code)
	}
	if rr.Body.String() != "unknown part\n" {
		t.Fatalf("body passthrough failed: %q", rr.Body.String())
	}
}

// Тест: хендлер без явного WriteHeader логируется и отвечает как 200
func TestWithLogging_ImplicitOK(t *testing.T) {
	SetLogger(zap.NewNop().Sugar())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"AllGood"}`))
	})
	h := WithLogging(next)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("implicit status failed: got %d", rr.Code)
	}
	if rr.Body.String() != `{"status":"AllGood"}` {
		t.Fatalf("body passthrough failed: %q", rr.Body.String())
	}
}
