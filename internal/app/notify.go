package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "cronlite/pkg/logx"
)

// Notifier reports lifecycle state to a service manager.
type Notifier interface {
	Ready()
	Stopping()
	Watchdog()
	// WatchdogInterval is 0 when no watchdog is configured.
	WatchdogInterval() time.Duration
}

// systemdNotifier speaks sd_notify. Every call is a no-op outside systemd.
type systemdNotifier struct{ log logx.Logger }

func (n systemdNotifier) send(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		n.log.Trace("sd_notify sent", logx.String("state", state))
	}
}

func (n systemdNotifier) Ready()    { n.send(daemon.SdNotifyReady) }
func (n systemdNotifier) Stopping() { n.send(daemon.SdNotifyStopping) }
func (n systemdNotifier) Watchdog() { n.send(daemon.SdNotifyWatchdog) }

func (n systemdNotifier) WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.log.Warn("invalid systemd watchdog settings", logx.Err(err))
		return 0
	}
	return d
}

// runWatchdog pings at half the watchdog interval until ctx is done.
func runWatchdog(ctx context.Context, n Notifier) error {
	every := n.WatchdogInterval() / 2
	if every <= 0 {
		return nil
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n.Watchdog()
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Ready()                          {}
func (nopNotifier) Stopping()                       {}
func (nopNotifier) Watchdog()                       {}
func (nopNotifier) WatchdogInterval() time.Duration { return 0 }
