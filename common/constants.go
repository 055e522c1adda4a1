package common

import "runtime"

const (
	Name = "oauthdance"

	// Version is reported to error reporting and telemetry.
	Version = "0.1.0"

	Platform = runtime.GOOS

	// filenames
	LogFileName      = "oauthdance.log"
	SettingsFileName = "oauthdance.json"
)
