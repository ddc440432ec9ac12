package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExposesCounters(t *testing.T) {
	InterpreterStrategy.WithLabelValues("structured").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `saga_interpreter_results_total{strategy="structured"}`) {
		t.Fatalf("interpreter counter missing from exposition")
	}
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(SessionsStarted.WithLabelValues("koroghlu"))
	SessionsStarted.WithLabelValues("koroghlu").Inc()
	if got := testutil.ToFloat64(SessionsStarted.WithLabelValues("koroghlu")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}
