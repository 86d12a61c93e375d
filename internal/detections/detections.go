// Package detections reads and writes recorded per-frame bounding boxes so a
// detector run can be replayed through the tracker without the detector.
//
// The format is YAML (and therefore also accepts JSON):
//
//	frames:
//	  - index: 0
//	    boxes:
//	      - [10, 20, 50, 80]   # left, top, right, bottom
//	  - index: 1                # no boxes: nothing detected in this frame
//
// A document with "normalized: true" holds relative (0-1) coordinates.
package detections

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kozaktomas/face-tracker/internal/geometry"
	"gopkg.in/yaml.v3"
)

// ErrNoFrames is returned when a document contains no frames.
var ErrNoFrames = errors.New("no frames in detections file")

// Frame holds the boxes detected in one frame.
type Frame struct {
	Index int         `yaml:"index" json:"index"`
	Boxes [][]float64 `yaml:"boxes,omitempty,flow" json:"boxes"`
}

// Document is a recorded detector run.
type Document struct {
	// Normalized marks boxes as relative to the frame size rather than pixels.
	Normalized bool    `yaml:"normalized,omitempty" json:"normalized,omitempty"`
	Frames     []Frame `yaml:"frames" json:"frames"`
}

// BBoxes converts the raw corner slices into bounding boxes.
// Call Validate first; malformed entries are skipped here.
func (f Frame) BBoxes() []geometry.BBox {
	out := make([]geometry.BBox, 0, len(f.Boxes))
	for _, c := range f.Boxes {
		if b, ok := geometry.FromCorners(c); ok {
			out = append(out, b)
		}
	}
	return out
}

// Validate checks that every box has exactly four coordinates.
func (f Frame) Validate() error {
	for i, c := range f.Boxes {
		if len(c) != 4 {
			return fmt.Errorf("frame %d box %d: expected 4 coordinates, got %d", f.Index, i, len(c))
		}
	}
	return nil
}

// NewFrame builds a Frame from bounding boxes.
func NewFrame(index int, boxes []geometry.BBox) Frame {
	f := Frame{Index: index}
	for _, b := range boxes {
		f.Boxes = append(f.Boxes, b.Corners())
	}
	return f
}

// Parse decodes a detections document.
func Parse(r io.Reader) (Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, ErrNoFrames
		}
		return Document{}, fmt.Errorf("failed to decode detections: %w", err)
	}
	if len(doc.Frames) == 0 {
		return Document{}, ErrNoFrames
	}
	for _, f := range doc.Frames {
		if err := f.Validate(); err != nil {
			return Document{}, err
		}
	}
	return doc, nil
}

// Load reads a detections document from disk.
func Load(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to open detections file: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Write encodes a detections document.
func Write(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode detections: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush detections: %w", err)
	}
	return nil
}
