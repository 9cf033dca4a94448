package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_ExposesCollectors(t *testing.T) {
	RequestsTotal.WithLabelValues(ResultAccepted).Inc()
	BalancerSelections.WithLabelValues("engl-low").Add(3)
	GamesActive.Set(2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	for _, want := range []string{
		`arena_requests_total{result="accepted"}`,
		`arena_balancer_selections_total{lang="engl-low"}`,
		"arena_games_active 2",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected %q in exposition", want)
		}
	}
}
