// Package server holds the adapter's two I/O surfaces: the Unix
// datagram socket the monitored service notifies, and the HTTP server
// the orchestrator probes.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"notifyadapter/internal/engine"
	"notifyadapter/internal/metrics"
	"notifyadapter/internal/notify"
	"notifyadapter/internal/timer"
)

// Datagrams larger than this are truncated by the kernel anyway; the
// notify protocol only ever carries a handful of short lines.
const maxDatagram = 64 * 1024

// UDS binds and owns the notify socket. Bind failure is fatal; read
// errors mid-loop are logged and skipped unless the socket itself has
// become invalid (closed, or its path removed from under us).
type UDS struct {
	path    string
	mapper  notify.Mapper
	loop    *engine.Loop
	timers  *timer.Set
	echo    io.Writer // nil disables echo
	metrics *metrics.Metrics
	log     zerolog.Logger

	// Caps warning output when something floods the socket with garbage.
	warnLimit *rate.Limiter

	fatal atomic.Pointer[error]
}

func NewUDS(path string, mapper notify.Mapper, loop *engine.Loop, timers *timer.Set, echo io.Writer, m *metrics.Metrics, log zerolog.Logger) *UDS {
	return &UDS{
		path:      path,
		mapper:    mapper,
		loop:      loop,
		timers:    timers,
		echo:      echo,
		metrics:   m,
		log:       log.With().Str("component", "uds").Logger(),
		warnLimit: rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

func (s *UDS) Run(ctx context.Context) error {
	// A stale socket file from a previous run would make the bind fail.
	if _, err := os.Stat(s.path); err == nil {
		if err := os.Remove(s.path); err != nil {
			return fmt.Errorf("removing stale socket %s: %w", s.path, err)
		}
	}

	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: s.path, Net: "unixgram"})
	if err != nil {
		return fmt.Errorf("binding notify socket %s: %w", s.path, err)
	}
	defer func() {
		conn.Close()
		os.Remove(s.path)
	}()

	s.log.Info().Str("socket", s.path).Msg("notify socket ready")
	if err := s.loop.Submit(ctx, engine.Batch{Bound: true}); err != nil {
		return nil
	}

	stopWatch := s.watchSocketFile(ctx, conn)
	defer stopWatch()

	// Unblock the read when the adapter shuts down.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := conn.ReadFromUnix(buf)
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info().Msg("shutting down notify socket")
				return nil
			}
			if fatal := s.fatal.Load(); fatal != nil {
				return *fatal
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("notify socket closed unexpectedly: %w", err)
			}
			s.log.Warn().Err(err).Msg("transient read error on notify socket")
			continue
		}
		s.handleDatagram(ctx, buf[:n])
	}
}

// watchSocketFile closes the connection if the socket path disappears,
// e.g. an operator rm'ing the file. The monitored service would keep
// notifying a ghost, so this counts as the socket becoming invalid.
func (s *UDS) watchSocketFile(ctx context.Context, conn *net.UnixConn) func() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn().Err(err).Msg("socket file watch unavailable")
		return func() {}
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		s.log.Warn().Err(err).Msg("socket file watch unavailable")
		watcher.Close()
		return func() {}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != s.path {
					continue
				}
				if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
					err := fmt.Errorf("notify socket %s removed from filesystem", s.path)
					s.fatal.Store(&err)
					conn.Close()
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(err).Msg("socket file watch error")
			}
		}
	}()
	return func() { watcher.Close() }
}

func (s *UDS) handleDatagram(ctx context.Context, payload []byte) {
	s.metrics.ObserveDatagram()

	msg, warnings, err := notify.Parse(payload)
	if err != nil {
		s.metrics.ObserveParseError()
		if s.warnLimit.Allow() {
			s.log.Warn().Err(err).Msg("dropping unparseable datagram")
		}
		return
	}
	for _, w := range warnings {
		if s.warnLimit.Allow() {
			s.log.Warn().Str("field", w.Field.String()).Str("reason", w.Reason).Msg("dropping malformed field")
		}
	}

	if s.echo != nil {
		for _, f := range msg.Fields {
			fmt.Fprintln(s.echo, f.String())
		}
	}

	events, directives := s.mapper.Map(msg)
	for _, d := range directives {
		s.timers.Apply(ctx, d)
	}
	if len(events) == 0 {
		return
	}
	if err := s.loop.Submit(ctx, engine.Batch{Events: events}); err != nil {
		s.log.Debug().Err(err).Msg("event submit aborted by shutdown")
	}
}
