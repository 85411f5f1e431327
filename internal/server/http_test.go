package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifyadapter/internal/state"
)

func newTestHTTP(snap state.Snapshot) (*HTTP, *state.Publisher) {
	pub := state.NewPublisher(snap)
	return NewHTTP(0, pub, nil, nil, zerolog.Nop()), pub
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) statusBody {
	t.Helper()
	var body statusBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestProbeStatusCodes(t *testing.T) {
	ts := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		snap        state.Snapshot
		wantHealthz int
		wantLivez   int
		wantReadyz  int
	}{
		{"all up", state.Snapshot{Timestamp: ts, Healthz: true, Livez: true, Readyz: true}, 200, 200, 200},
		{"not ready", state.Snapshot{Timestamp: ts, Healthz: true, Livez: true}, 200, 200, 503},
		{"dead", state.Snapshot{Timestamp: ts, Healthz: true}, 200, 503, 503},
		{"down", state.Snapshot{Timestamp: ts}, 503, 503, 503},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestHTTP(tt.snap)

			checks := []struct {
				ok   func(state.Snapshot) bool
				want int
			}{
				{func(s state.Snapshot) bool { return s.Healthz }, tt.wantHealthz},
				{func(s state.Snapshot) bool { return s.Livez }, tt.wantLivez},
				{func(s state.Snapshot) bool { return s.Readyz }, tt.wantReadyz},
			}
			for _, c := range checks {
				rec := httptest.NewRecorder()
				s.probe(c.ok)(rec, httptest.NewRequest("GET", "/", nil))
				assert.Equal(t, c.want, rec.Code)
			}
		})
	}
}

func TestProbeBodyReflectsFullSnapshot(t *testing.T) {
	ts := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	s, _ := newTestHTTP(state.Snapshot{Timestamp: ts, Healthz: true, Livez: true, Readyz: false})

	// Every endpoint returns the same full body regardless of which
	// dimension is probed.
	rec := httptest.NewRecorder()
	s.probe(func(s state.Snapshot) bool { return s.Readyz })(rec, httptest.NewRequest("GET", "/readyz", nil))

	assert.Equal(t, 503, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeBody(t, rec)
	assert.Equal(t, "2026-08-25T12:00:00Z", body.Timestamp)
	assert.True(t, body.Healthz)
	assert.True(t, body.Livez)
	assert.False(t, body.Readyz)
}

func TestProbeSeesLatestSnapshot(t *testing.T) {
	s, pub := newTestHTTP(state.Snapshot{Timestamp: time.Now()})
	probe := s.probe(func(s state.Snapshot) bool { return s.Livez })

	rec := httptest.NewRecorder()
	probe(rec, httptest.NewRequest("GET", "/livez", nil))
	assert.Equal(t, 503, rec.Code)

	pub.Publish(state.Snapshot{Timestamp: time.Now(), Livez: true})

	rec = httptest.NewRecorder()
	probe(rec, httptest.NewRequest("GET", "/livez", nil))
	assert.Equal(t, 200, rec.Code)
}
