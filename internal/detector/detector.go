// Package detector defines the detector boundary: something that turns a
// frame into bounding boxes. The tracker never calls a detector itself; the
// frame loop does and hands the boxes to the tracker.
package detector

import (
	"context"

	"github.com/kozaktomas/face-tracker/internal/detections"
	"github.com/kozaktomas/face-tracker/internal/frames"
	"github.com/kozaktomas/face-tracker/internal/geometry"
)

// Detector returns the bounding boxes of every instance found in a frame.
type Detector interface {
	Detect(ctx context.Context, frame frames.Frame) ([]geometry.BBox, error)
}

// StaticDetector replays recorded boxes by frame index. Frames without a
// recording yield no detections.
type StaticDetector struct {
	byIndex map[int][]geometry.BBox
}

// NewStaticDetector builds a StaticDetector from recorded frames.
func NewStaticDetector(recorded []detections.Frame) *StaticDetector {
	byIndex := make(map[int][]geometry.BBox, len(recorded))
	for _, f := range recorded {
		byIndex[f.Index] = f.BBoxes()
	}
	return &StaticDetector{byIndex: byIndex}
}

// Detect returns the boxes recorded for frame.Index.
func (d *StaticDetector) Detect(ctx context.Context, frame frames.Frame) ([]geometry.BBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.byIndex[frame.Index], nil
}
