package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"batchrpc/wire"
)

func newTestHandler(t *testing.T, maxBody int64) *Handler {
	t.Helper()
	return NewHandler(NewExecutor(testRegistry(t), zerolog.Nop()), maxBody, zerolog.Nop())
}

func postBatch(h http.Handler, calls, body string) *httptest.ResponseRecorder {
	target := "/api/batch"
	if calls != "" {
		target += "?" + wire.CallsParam + "=" + url.QueryEscape(calls)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_ExecutesBatch(t *testing.T) {
	h := newTestHandler(t, 0)

	w := postBatch(h, "1:svc.echo,2:svc.fail", `[{"id":"1","input":{"x":1}},{"id":"2"}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	items, err := wire.ParseItems(w.Body.Bytes())
	if err != nil {
		t.Fatalf("ParseItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].HasError() || string(items[0].Data) != `{"x":1}` {
		t.Errorf("item 1 = %+v", items[0])
	}
	if !items[1].HasError() {
		t.Errorf("item 2 = %+v, want failure", items[1])
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/batch?calls=1:svc.echo", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestHandler_BadCallsParam(t *testing.T) {
	h := newTestHandler(t, 0)

	for _, calls := range []string{"", "garbage", "1:"} {
		if w := postBatch(h, calls, "[]"); w.Code != http.StatusBadRequest {
			t.Errorf("calls=%q: status = %d, want 400", calls, w.Code)
		}
	}
}

func TestHandler_BadBody(t *testing.T) {
	h := newTestHandler(t, 0)

	if w := postBatch(h, "1:svc.echo", `{"not":"an array"}`); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandler_BodyTooLarge(t *testing.T) {
	h := newTestHandler(t, 32)

	big := `[{"id":"1","input":"` + strings.Repeat("x", 64) + `"}]`
	if w := postBatch(h, "1:svc.echo", big); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandler_EmptyBodyMeansAbsentInputs(t *testing.T) {
	h := newTestHandler(t, 0)

	w := postBatch(h, "1:svc.echo", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	items, err := wire.ParseItems(w.Body.Bytes())
	if err != nil {
		t.Fatalf("ParseItems: %v", err)
	}
	if items[0].HasError() {
		t.Errorf("item = %+v", items[0])
	}
	if items[0].Data != nil {
		t.Errorf("echo of absent input = %s, want absent", items[0].Data)
	}
}
