package types

// Wake is published on system/wake when the operator re-arms the
// console and web surfaces (long button press).
type Wake struct {
	Source string `json:"source"`
}

// Restart is published on system/restart.
type Restart struct {
	Source string `json:"source"`
}

// SettingsChanged is published (not retained) on settings/changed after a
// save or factory reset.
type SettingsChanged struct {
	Source  string `json:"source"`
	Factory bool   `json:"factory,omitempty"`
}
