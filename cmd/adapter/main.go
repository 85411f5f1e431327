// The adapter receives sd_notify datagrams from one monitored service
// and republishes them as /healthz, /livez and /readyz HTTP probes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"notifyadapter/internal/app"
	"notifyadapter/internal/config"
	"notifyadapter/internal/logging"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "optional path to a yaml config file (env overrides it)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log)
	log.Info().
		Str("socket", cfg.NotifySocket).
		Int("port", cfg.Port).
		Int("channel_size", cfg.ChannelSize).
		Bool("initial_livez", cfg.InitialLivez).
		Bool("initial_readyz", cfg.InitialReadyz).
		Dur("timeout_start", cfg.UnitTimeoutStart).
		Dur("watchdog", cfg.UnitWatchdog).
		Msg("initial configuration")

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer cancel()

	a, err := app.New(cfg, log, logging.EchoWriter(cfg.Echo))
	if err != nil {
		log.Error().Err(err).Msg("fatal")
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		log.Error().Err(err).Msg("adapter failed")
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
