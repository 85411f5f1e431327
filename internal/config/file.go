package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	yaml "go.yaml.in/yaml/v3"
)

// fileConfig mirrors rawConfig for the optional YAML file. Every value
// is kept as a string (or pointer, to tell "absent" from "empty") so
// the file goes through the same validation as the environment.
type fileConfig struct {
	NotifySocket                  *string `yaml:"notify_socket"`
	Port                          *string `yaml:"port"`
	Echo                          *string `yaml:"echo"`
	Log                           *string `yaml:"log"`
	ChannelSize                   *string `yaml:"channel_size"`
	InitialLivez                  *string `yaml:"initial_livez"`
	InitialReadyz                 *string `yaml:"initial_readyz"`
	AllowMessageWatchdogUsec      *string `yaml:"allow_message_watchdog_usec"`
	AllowMessageExtendTimeoutUsec *string `yaml:"allow_message_extend_timeout_usec"`
	StatusLivezTrue               *string `yaml:"status_livez_true"`
	StatusLivezFalse              *string `yaml:"status_livez_false"`
	StatusReadyzTrue              *string `yaml:"status_readyz_true"`
	StatusReadyzFalse             *string `yaml:"status_readyz_false"`
	StatusShutdown                *string `yaml:"status_shutdown"`
	UnitTimeoutStartSec           *string `yaml:"unit_timeout_start_sec"`
	UnitWatchdogSec               *string `yaml:"unit_watchdog_sec"`
	Metrics                       *string `yaml:"metrics"`
	HistoryDB                     *string `yaml:"history_db"`
	ReportSchedule                *string `yaml:"report_schedule"`
}

func loadFile(path string, raw *rawConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&raw.NotifySocket, fc.NotifySocket)
	apply(&raw.Port, fc.Port)
	apply(&raw.Echo, fc.Echo)
	apply(&raw.Log, fc.Log)
	apply(&raw.ChannelSize, fc.ChannelSize)
	apply(&raw.InitialLivez, fc.InitialLivez)
	apply(&raw.InitialReadyz, fc.InitialReadyz)
	apply(&raw.AllowMessageWatchdogUsec, fc.AllowMessageWatchdogUsec)
	apply(&raw.AllowMessageExtendTimeoutUsec, fc.AllowMessageExtendTimeoutUsec)
	apply(&raw.StatusLivezTrue, fc.StatusLivezTrue)
	apply(&raw.StatusLivezFalse, fc.StatusLivezFalse)
	apply(&raw.StatusReadyzTrue, fc.StatusReadyzTrue)
	apply(&raw.StatusReadyzFalse, fc.StatusReadyzFalse)
	apply(&raw.StatusShutdown, fc.StatusShutdown)
	apply(&raw.UnitTimeoutStartSec, fc.UnitTimeoutStartSec)
	apply(&raw.UnitWatchdogSec, fc.UnitWatchdogSec)
	apply(&raw.Metrics, fc.Metrics)
	apply(&raw.HistoryDB, fc.HistoryDB)
	apply(&raw.ReportSchedule, fc.ReportSchedule)
	return nil
}
