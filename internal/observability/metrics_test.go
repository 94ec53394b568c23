package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/v1/tickets", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/api/v1/tickets", "GET", 200, 5*time.Millisecond)
	m.RecordError("/api/v1/tickets/:id", "GET", "NOT_FOUND")
	m.RecordJob("classification", 2)
	m.RecordJob("classification", 0)
	m.RecordEscalation("critical")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/api/v1/tickets|GET|200"])
	assert.Equal(t, int64(20), snap.RequestMillis["/api/v1/tickets|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/api/v1/tickets/:id|GET|NOT_FOUND"])
	assert.Equal(t, int64(2), snap.JobRuns["classification"])
	assert.Equal(t, int64(2), snap.JobFailures["classification"])
	assert.Equal(t, int64(1), snap.Escalations["critical"])

	// snapshot is a copy
	snap.JobRuns["classification"] = 99
	assert.Equal(t, int64(2), m.Snapshot().JobRuns["classification"])
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordJob("age", 1)
		m.RecordEscalation("warning")
	})
}
