// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Detection constants
const (
	// JPEGQuality is the quality used when re-encoding frames for the detector
	JPEGQuality = 85
)

// Session constants
const (
	// MaxSessions caps the number of concurrent tracking sessions
	MaxSessions = 64

	// DefaultHistoryLimit is the default number of stored track events returned
	DefaultHistoryLimit = 100

	// MaxHistoryLimit is the maximum number of stored track events returned per request
	MaxHistoryLimit = 1000
)
