// Package topics names the bus topics shared between services.
package topics

import "ampctl-go/bus"

var (
	// PowerStatus carries the retained types.PowerStatus.
	PowerStatus = bus.T("power", "status")
	// PowerCmd is the prefix of power/cmd/<verb> requests.
	PowerCmd = bus.T("power", "cmd")

	Wake    = bus.T("system", "wake")
	Restart = bus.T("system", "restart")

	SettingsChanged = bus.T("settings", "changed")

	ConfigPrefix = bus.T("config")
)

// Config returns config/<section>.
func Config(section string) bus.Topic { return ConfigPrefix.Append(section) }

// PowerVerb returns power/cmd/<verb>.
func PowerVerb(verb string) bus.Topic { return PowerCmd.Append(verb) }
