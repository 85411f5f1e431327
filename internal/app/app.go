// Package app wires the adapter together and supervises its tasks.
package app

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"notifyadapter/internal/config"
	"notifyadapter/internal/engine"
	"notifyadapter/internal/history"
	"notifyadapter/internal/metrics"
	"notifyadapter/internal/notify"
	"notifyadapter/internal/report"
	"notifyadapter/internal/server"
	"notifyadapter/internal/state"
	"notifyadapter/internal/timer"
)

type App struct {
	log zerolog.Logger

	loop     *engine.Loop
	timers   *timer.Set
	uds      *server.UDS
	http     *server.HTTP
	store    *history.Store
	reporter *report.Reporter
}

// New builds the full task graph from configuration. Construction-time
// failures (history db, report schedule) are fatal before anything
// starts serving.
func New(cfg config.Config, log zerolog.Logger, echo io.Writer) (*App, error) {
	policy := state.Policy{
		LivezTrue:   state.NewEventSet(cfg.StatusLivezTrue),
		LivezFalse:  state.NewEventSet(cfg.StatusLivezFalse),
		ReadyzTrue:  state.NewEventSet(cfg.StatusReadyzTrue),
		ReadyzFalse: state.NewEventSet(cfg.StatusReadyzFalse),
		Shutdown:    state.NewEventSet(cfg.StatusShutdown),
	}
	machine := state.NewMachine(policy, cfg.InitialLivez, cfg.InitialReadyz, nil)
	pub := state.NewPublisher(machine.Snapshot())
	loop := engine.NewLoop(cfg.ChannelSize, machine, pub, log)

	var m *metrics.Metrics
	if cfg.Metrics {
		m = metrics.New()
		m.ObserveStatus(machine.Snapshot())
	}

	var store *history.Store
	if cfg.HistoryDB != "" {
		var err error
		store, err = history.Open(cfg.HistoryDB, log)
		if err != nil {
			return nil, err
		}
	}

	loop.OnApply = func(ev notify.Event, snap state.Snapshot) {
		m.ObserveEvent(ev)
		store.Append(ev, snap)
	}
	loop.OnPublish = m.ObserveStatus

	timers := &timer.Set{
		Start:    timer.NewStart(cfg.UnitTimeoutStart, loop, log),
		Watchdog: timer.NewWatchdog(cfg.UnitWatchdog, loop, log),
	}
	mapper := notify.Mapper{
		AllowWatchdogUsec:      cfg.AllowMessageWatchdogUsec,
		AllowExtendTimeoutUsec: cfg.AllowMessageExtendTimeoutUsec,
	}

	a := &App{
		log:    log.With().Str("component", "app").Logger(),
		loop:   loop,
		timers: timers,
		uds:    server.NewUDS(cfg.NotifySocket, mapper, loop, timers, echo, m, log),
		http:   server.NewHTTP(cfg.Port, pub, m.Registry(), store, log),
		store:  store,
	}

	if cfg.ReportSchedule != "" {
		reporter, err := report.New(cfg.ReportSchedule, pub, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.reporter = reporter
	}
	return a, nil
}

// Run starts all tasks and blocks until ctx is canceled, a task fails,
// or a configured shutdown event terminates the adapter. A shutdown
// event is a clean exit, not an error.
func (a *App) Run(ctx context.Context) error {
	g := newGroup(ctx, a.log)
	g.Go("control loop", a.loop.Run)
	g.Go("start timer", a.timers.Start.Run)
	g.Go("watchdog timer", a.timers.Watchdog.Run)
	g.Go("uds server", a.uds.Run)
	g.Go("http server", a.http.Run)
	if a.reporter != nil {
		g.Go("reporter", a.reporter.Run)
	}

	err := g.Wait()
	a.Close()
	if errors.Is(err, engine.ErrShutdownEvent) {
		a.log.Info().Msg("adapter stopped by shutdown event")
		return nil
	}
	return err
}

func (a *App) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}
