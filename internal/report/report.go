// Package report logs the current status snapshot on a cron schedule,
// so long-running adapters leave a periodic heartbeat in the log even
// when the monitored service is quiet.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"notifyadapter/internal/state"
)

type Reporter struct {
	c   *cron.Cron
	log zerolog.Logger
}

// New schedules a status report. The schedule accepts standard cron
// expressions and the @every shorthand.
func New(schedule string, pub *state.Publisher, log zerolog.Logger) (*Reporter, error) {
	rlog := log.With().Str("component", "report").Logger()
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		snap := pub.Load()
		rlog.Info().
			Time("status_at", snap.Timestamp).
			Bool("healthz", snap.Healthz).
			Bool("livez", snap.Livez).
			Bool("readyz", snap.Readyz).
			Msg("status report")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", schedule, err)
	}
	return &Reporter{c: c, log: rlog}, nil
}

func (r *Reporter) Run(ctx context.Context) error {
	r.c.Start()
	<-ctx.Done()
	stopCtx := r.c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(time.Second):
	}
	return nil
}
