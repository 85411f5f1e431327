// notifyctl sends sd_notify states to an adapter (or to systemd itself)
// through NOTIFY_SOCKET. Useful for smoke-testing a running adapter:
//
//	NOTIFY_SOCKET=/var/run/adapter/adapter.sock notifyctl READY=1
//	notifyctl -socket /tmp/adapter.sock WATCHDOG=1 STATUS="still alive"
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/coreos/go-systemd/v22/daemon"
)

func main() {
	var socket string
	flag.StringVar(&socket, "socket", "", "notify socket path (defaults to $NOTIFY_SOCKET)")
	flag.Parse()

	states := flag.Args()
	if len(states) == 0 {
		fmt.Fprintln(os.Stderr, "usage: notifyctl [-socket PATH] KEY=VALUE [KEY=VALUE...]")
		os.Exit(2)
	}
	for _, s := range states {
		if !strings.Contains(s, "=") {
			fmt.Fprintf(os.Stderr, "notifyctl: %q is not a KEY=VALUE assignment\n", s)
			os.Exit(2)
		}
	}

	if socket != "" {
		os.Setenv("NOTIFY_SOCKET", socket)
	}

	sent, err := daemon.SdNotify(false, strings.Join(states, "\n"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "notifyctl:", err)
		os.Exit(1)
	}
	if !sent {
		fmt.Fprintln(os.Stderr, "notifyctl: NOTIFY_SOCKET is not set")
		os.Exit(1)
	}
}
