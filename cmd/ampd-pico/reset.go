//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"
)

// reset lets the watchdog reboot the chip.
func reset() {
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 100})
	machine.Watchdog.Start()
	for {
		time.Sleep(time.Second)
	}
}
