package archive

import "errors"

// Sentinel errors for the pipeline's rejection taxonomy. All of them are
// local rejections: the pipeline keeps processing subsequent messages.
var (
	// ErrPathEscape is returned when a channel or sender name would
	// resolve to a path outside the archive root.
	ErrPathEscape = errors.New("path escapes the archive root")

	// ErrNameCollision is returned when a channel rename targets a
	// directory that already exists on disk.
	ErrNameCollision = errors.New("channel directory already exists")

	// ErrInvalidConfigValue is returned for malformed boolean or
	// media-type input from a configuration command.
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)
