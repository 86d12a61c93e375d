// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Request limits
const (
	// MaxFrameBodyBytes bounds the JSON body of a single frame submission
	MaxFrameBodyBytes = 1 << 20

	// MaxBoxesPerFrame bounds the number of detections accepted per frame
	MaxBoxesPerFrame = 512
)
