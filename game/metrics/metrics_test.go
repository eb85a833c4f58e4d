package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.Tick("bot-1")
	r.Tick("bot-1")
	r.Rebuild("bot-1")
	r.Action("bot-1", "move-north", true)
	r.Action("bot-1", "move-north", false)
	r.Block("bot-2")
	r.Nudge("bot-2", "discover")
	r.MatchStarted()
	r.MatchStarted()
	r.MatchFinished("victory")

	if got := testutil.ToFloat64(r.ticks.WithLabelValues("bot-1")); got != 2 {
		t.Errorf("Expected 2 ticks, got %v", got)
	}
	if got := testutil.ToFloat64(r.actions.WithLabelValues("bot-1", "move-north", "failed")); got != 1 {
		t.Errorf("Expected 1 failed action, got %v", got)
	}
	if got := testutil.ToFloat64(r.nudges.WithLabelValues("bot-2", "discover")); got != 1 {
		t.Errorf("Expected 1 nudge, got %v", got)
	}
	if got := testutil.ToFloat64(r.activeMatches); got != 1 {
		t.Errorf("Expected 1 active match, got %v", got)
	}
	if got := testutil.ToFloat64(r.matches.WithLabelValues("victory")); got != 1 {
		t.Errorf("Expected 1 victory, got %v", got)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Tick("x")
	r.Rebuild("x")
	r.Action("x", "discover", true)
	r.Block("x")
	r.Nudge("x", "vortex")
	r.MatchStarted()
	r.MatchFinished("defeat")
	if r.Registry() != nil {
		t.Error("nil recorder has no registry")
	}
}

func TestHandler(t *testing.T) {
	r := NewRecorder()
	r.Rebuild("bot-1")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `magic_maze_agent_rebuilds_total{agent="bot-1"} 1`) {
		t.Errorf("rebuild counter missing from output:\n%s", body)
	}
}
