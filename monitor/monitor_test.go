package monitor

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/stemarena/models"
)

func TestMonitor_ObserverCounters(t *testing.T) {
	m := NewMonitor("test")
	metrics := m.Metrics()

	m.RoomOpened()
	m.RoomOpened()
	m.RoomClosed("peer_left")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActiveRooms))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RoomsClosed.WithLabelValues("peer_left")))

	m.PhaseStarted(models.PhaseReaction)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PhasesStarted.WithLabelValues("chemical")))

	m.SubmissionResolved(models.PhaseArithmetic, true)
	m.SubmissionResolved(models.PhaseArithmetic, false)
	m.SubmissionResolved(models.PhaseArithmetic, false)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Submissions.WithLabelValues("bodmas", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Submissions.WithLabelValues("bodmas", "miss")))

	m.GameFinished("knockout")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GamesFinished.WithLabelValues("knockout")))
}

func TestMonitor_ConnectionCounters(t *testing.T) {
	m := NewMonitor("test")

	m.IncOnlinePlayers()
	m.IncOnlinePlayers()
	m.DecOnlinePlayers()
	m.IncMessagesReceived("submit")
	m.ObserveMessageLatency(3 * time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().OnlinePlayers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Metrics().MessagesReceived.WithLabelValues("submit")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Metrics().MessageLatency))
}

func TestMonitor_HandlerServesOwnRegistry(t *testing.T) {
	// two monitors must not collide on registration
	_ = NewMonitor("arena")
	m := NewMonitor("arena")
	m.RoomOpened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "arena_active_rooms 1")
	assert.Contains(t, string(body), "arena_uptime_seconds")
}
