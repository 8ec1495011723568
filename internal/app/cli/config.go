package cli

import (
	"io"

	"github.com/nhatthm/docharvest/internal/config"
)

// VerbosityLevel is the verbosity level of the application.
type VerbosityLevel uint

const (
	// VerbosityLevelSilent is the silent verbosity level.
	VerbosityLevelSilent VerbosityLevel = iota
	// VerbosityLevelError is the error verbosity level.
	VerbosityLevelError
	// VerbosityLevelInfo is the info verbosity level.
	VerbosityLevelInfo
	// VerbosityLevelDebug is the debug verbosity level.
	VerbosityLevelDebug
)

// Config is the configuration of the application.
type Config struct {
	OutWriter io.Writer // The stream that will receive the results
	ErrWriter io.Writer // The stream that will receive all the log messages and errors.

	// Settings configures the harvest. Defaults to config.Default() when nil.
	Settings *config.Config

	PrettyOutput   bool           // Disable JSON prettifier.
	VerbosityLevel VerbosityLevel // The verbosity level of the tool.
	JSONLogs       bool           // Write log messages as json lines.
	Summary        bool           // Write a human readable summary to ErrWriter at the end.
}
