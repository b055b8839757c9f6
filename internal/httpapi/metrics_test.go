package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T, h http.Handler) []byte {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", w.Code)
	}
	return w.Body.Bytes()
}

func TestMetrics_EmbeddingRequestsByStatus(t *testing.T) {
	h := NewMux(&mockService{}, Options{})
	ok := httpRequestsTotal.WithLabelValues("/embedding", http.MethodPost, "200")
	bad := httpRequestsTotal.WithLabelValues("/embedding", http.MethodPost, "400")
	okBefore, badBefore := testutil.ToFloat64(ok), testutil.ToFloat64(bad)

	postEmbedding(t, h, `{"contexts":"x","model_name":"m1"}`)
	postEmbedding(t, h, `{"model_name":"m1"}`)

	if got := testutil.ToFloat64(ok); got != okBefore+1 {
		t.Fatalf("200 count = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(bad); got != badBefore+1 {
		t.Fatalf("400 count = %v, want %v", got, badBefore+1)
	}
	if got := testutil.ToFloat64(httpInflight); got != 0 {
		t.Fatalf("inflight = %v after requests finished", got)
	}
	body := scrape(t, h)
	if !bytes.Contains(body, []byte(`embedd_http_requests_total{method="POST",path="/embedding",status="200"}`)) {
		t.Fatal("/metrics missing /embedding request counter")
	}
	if !bytes.Contains(body, []byte("embedd_http_request_duration_seconds_bucket")) {
		t.Fatal("/metrics missing request duration histogram")
	}
}

func TestMetrics_RateLimitBackpressure(t *testing.T) {
	c := backpressureTotal.WithLabelValues("rate_limit")
	before := testutil.ToFloat64(c)
	h := NewMux(&mockService{}, Options{RateLimitRPS: 1, RateLimitBurst: 1})
	postEmbedding(t, h, `{"contexts":"x"}`)
	postEmbedding(t, h, `{"contexts":"x"}`)
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("rate_limit backpressure = %v, want %v", got, before+1)
	}
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/models/{alias}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := httpRequestsTotal.WithLabelValues("/models/{alias}", http.MethodGet, "204")
	before := testutil.ToFloat64(c)

	for _, alias := range []string{"minilm", "bge-small"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models/"+alias, nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("status=%d", w.Code)
		}
	}
	if got := testutil.ToFloat64(c); got != before+2 {
		t.Fatalf("pattern count = %v, want %v", got, before+2)
	}
	if bytes.Contains(scrape(t, promhttp.Handler()), []byte(`path="/models/minilm"`)) {
		t.Fatal("raw path leaked into labels")
	}
}

func TestMetrics_GetEmbeddingSharesRouteLabel(t *testing.T) {
	h := NewMux(&mockService{}, Options{})
	c := httpRequestsTotal.WithLabelValues("/embedding", http.MethodGet, "200")
	before := testutil.ToFloat64(c)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/embedding?contexts=a&contexts=b&model_name=m1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("GET /embedding count = %v, want %v", got, before+1)
	}
}

func TestIncrementBackpressure_EmptyReason(t *testing.T) {
	c := backpressureTotal.WithLabelValues("unspecified")
	before := testutil.ToFloat64(c)
	IncrementBackpressure("")
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("unspecified backpressure = %v, want %v", got, before+1)
	}
}
