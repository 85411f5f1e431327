// Package config loads the adapter configuration: defaults, then an
// optional YAML file, then environment variables. The surface is loaded
// once at startup and immutable afterwards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"notifyadapter/internal/notify"
)

const (
	DefaultSocket      = "/var/run/adapter/adapter.sock"
	DefaultPort        = 8089
	DefaultChannelSize = 32

	defaultLivezTrue   = "ready,watchdog"
	defaultLivezFalse  = "errno,buserror,watchdog_trigger,watchdog_timeout,start_timeout"
	defaultReadyzTrue  = "ready,watchdog"
	defaultReadyzFalse = "reloading,stopping,errno,buserror,watchdog_trigger,watchdog_timeout,start_timeout"
)

type Config struct {
	NotifySocket string
	Port         int
	Echo         bool
	Log          bool
	ChannelSize  int

	InitialLivez  bool
	InitialReadyz bool

	AllowMessageWatchdogUsec      bool
	AllowMessageExtendTimeoutUsec bool

	StatusLivezTrue   []notify.Event
	StatusLivezFalse  []notify.Event
	StatusReadyzTrue  []notify.Event
	StatusReadyzFalse []notify.Event
	StatusShutdown    []notify.Event

	// Unit timers, fractional seconds allowed. Zero disables.
	UnitTimeoutStart time.Duration
	UnitWatchdog     time.Duration

	Metrics        bool
	HistoryDB      string
	ReportSchedule string
}

// Load builds the configuration. filePath may be empty; environment
// variables override file values. Any unparseable value is fatal.
func Load(filePath string) (Config, error) {
	raw := defaults()
	if filePath != "" {
		if err := loadFile(filePath, &raw); err != nil {
			return Config{}, err
		}
	}
	raw.overlayEnv()
	return raw.parse()
}

// rawConfig keeps every field in string form so file and env values go
// through the exact same parsing and validation.
type rawConfig struct {
	NotifySocket                  string
	Port                          string
	Echo                          string
	Log                           string
	ChannelSize                   string
	InitialLivez                  string
	InitialReadyz                 string
	AllowMessageWatchdogUsec      string
	AllowMessageExtendTimeoutUsec string
	StatusLivezTrue               string
	StatusLivezFalse              string
	StatusReadyzTrue              string
	StatusReadyzFalse             string
	StatusShutdown                string
	UnitTimeoutStartSec           string
	UnitWatchdogSec               string
	Metrics                       string
	HistoryDB                     string
	ReportSchedule                string
}

func defaults() rawConfig {
	return rawConfig{
		NotifySocket:                  DefaultSocket,
		Port:                          strconv.Itoa(DefaultPort),
		Echo:                          "true",
		Log:                           "true",
		ChannelSize:                   strconv.Itoa(DefaultChannelSize),
		InitialLivez:                  "false",
		InitialReadyz:                 "false",
		AllowMessageWatchdogUsec:      "true",
		AllowMessageExtendTimeoutUsec: "true",
		StatusLivezTrue:               defaultLivezTrue,
		StatusLivezFalse:              defaultLivezFalse,
		StatusReadyzTrue:              defaultReadyzTrue,
		StatusReadyzFalse:             defaultReadyzFalse,
		StatusShutdown:                "",
		UnitTimeoutStartSec:           "90",
		UnitWatchdogSec:               "0",
		Metrics:                       "true",
		HistoryDB:                     "",
		ReportSchedule:                "",
	}
}

func (r *rawConfig) overlayEnv() {
	overlay := func(dst *string, name string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	overlay(&r.NotifySocket, "NOTIFY_SOCKET")
	overlay(&r.Port, "ADAPTER_PORT")
	overlay(&r.Echo, "ADAPTER_ECHO")
	overlay(&r.Log, "ADAPTER_LOG")
	overlay(&r.ChannelSize, "ADAPTER_CHANNEL_SIZE")
	overlay(&r.InitialLivez, "ADAPTER_INITIAL_LIVEZ")
	overlay(&r.InitialReadyz, "ADAPTER_INITIAL_READYZ")
	overlay(&r.AllowMessageWatchdogUsec, "ADAPTER_ALLOW_MESSAGE_WATCHDOG_USEC")
	overlay(&r.AllowMessageExtendTimeoutUsec, "ADAPTER_ALLOW_MESSAGE_EXTEND_TIMEOUT_USEC")
	overlay(&r.StatusLivezTrue, "ADAPTER_STATUS_LIVEZ_TRUE")
	overlay(&r.StatusLivezFalse, "ADAPTER_STATUS_LIVEZ_FALSE")
	overlay(&r.StatusReadyzTrue, "ADAPTER_STATUS_READYZ_TRUE")
	overlay(&r.StatusReadyzFalse, "ADAPTER_STATUS_READYZ_FALSE")
	overlay(&r.StatusShutdown, "ADAPTER_STATUS_SHUTDOWN")
	overlay(&r.UnitTimeoutStartSec, "ADAPTER_UNIT_TIMEOUT_START_SEC")
	overlay(&r.UnitWatchdogSec, "ADAPTER_UNIT_WATCHDOG_SEC")
	overlay(&r.Metrics, "ADAPTER_METRICS")
	overlay(&r.HistoryDB, "ADAPTER_HISTORY_DB")
	overlay(&r.ReportSchedule, "ADAPTER_REPORT_SCHEDULE")
}

func (r rawConfig) parse() (Config, error) {
	var (
		cfg  Config
		errs []string
	)
	fail := func(name string, err error) {
		errs = append(errs, fmt.Sprintf("%s: %v", name, err))
	}

	cfg.NotifySocket = strings.TrimSpace(r.NotifySocket)
	if cfg.NotifySocket == "" {
		fail("NOTIFY_SOCKET", fmt.Errorf("must not be empty"))
	}

	cfg.Port = parseInt("ADAPTER_PORT", r.Port, fail)
	if cfg.Port < 1 || cfg.Port > 65535 {
		fail("ADAPTER_PORT", fmt.Errorf("port %d out of range", cfg.Port))
	}
	cfg.ChannelSize = parseInt("ADAPTER_CHANNEL_SIZE", r.ChannelSize, fail)
	if cfg.ChannelSize < 1 {
		fail("ADAPTER_CHANNEL_SIZE", fmt.Errorf("must be at least 1"))
	}

	cfg.Echo = parseBool("ADAPTER_ECHO", r.Echo, fail)
	cfg.Log = parseBool("ADAPTER_LOG", r.Log, fail)
	cfg.InitialLivez = parseBool("ADAPTER_INITIAL_LIVEZ", r.InitialLivez, fail)
	cfg.InitialReadyz = parseBool("ADAPTER_INITIAL_READYZ", r.InitialReadyz, fail)
	cfg.AllowMessageWatchdogUsec = parseBool("ADAPTER_ALLOW_MESSAGE_WATCHDOG_USEC", r.AllowMessageWatchdogUsec, fail)
	cfg.AllowMessageExtendTimeoutUsec = parseBool("ADAPTER_ALLOW_MESSAGE_EXTEND_TIMEOUT_USEC", r.AllowMessageExtendTimeoutUsec, fail)
	cfg.Metrics = parseBool("ADAPTER_METRICS", r.Metrics, fail)

	cfg.StatusLivezTrue = parseEvents("ADAPTER_STATUS_LIVEZ_TRUE", r.StatusLivezTrue, fail)
	cfg.StatusLivezFalse = parseEvents("ADAPTER_STATUS_LIVEZ_FALSE", r.StatusLivezFalse, fail)
	cfg.StatusReadyzTrue = parseEvents("ADAPTER_STATUS_READYZ_TRUE", r.StatusReadyzTrue, fail)
	cfg.StatusReadyzFalse = parseEvents("ADAPTER_STATUS_READYZ_FALSE", r.StatusReadyzFalse, fail)
	cfg.StatusShutdown = parseEvents("ADAPTER_STATUS_SHUTDOWN", r.StatusShutdown, fail)

	cfg.UnitTimeoutStart = parseSeconds("ADAPTER_UNIT_TIMEOUT_START_SEC", r.UnitTimeoutStartSec, fail)
	cfg.UnitWatchdog = parseSeconds("ADAPTER_UNIT_WATCHDOG_SEC", r.UnitWatchdogSec, fail)

	cfg.HistoryDB = strings.TrimSpace(r.HistoryDB)
	cfg.ReportSchedule = strings.TrimSpace(r.ReportSchedule)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func parseInt(name, v string, fail func(string, error)) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		fail(name, fmt.Errorf("not an integer: %q", v))
	}
	return n
}

func parseBool(name, v string, fail func(string, error)) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		fail(name, fmt.Errorf("not a boolean: %q", v))
	}
	return b
}

// parseSeconds accepts fractional seconds; zero disables the timer.
func parseSeconds(name, v string, fail func(string, error)) time.Duration {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		fail(name, fmt.Errorf("not a number of seconds: %q", v))
		return 0
	}
	if f < 0 {
		fail(name, fmt.Errorf("must not be negative"))
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

func parseEvents(name, v string, fail func(string, error)) []notify.Event {
	events, err := notify.ParseEventList(v)
	if err != nil {
		fail(name, err)
	}
	return events
}
