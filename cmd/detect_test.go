package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/kozaktomas/face-tracker/internal/config"
	"github.com/kozaktomas/face-tracker/internal/detections"
	"github.com/kozaktomas/face-tracker/internal/detector"
	"github.com/kozaktomas/face-tracker/internal/frames"
	"github.com/kozaktomas/face-tracker/internal/geometry"
	"github.com/kozaktomas/face-tracker/internal/tracker"
)

// sliceSource yields 100x50 frames named frame-N with no image data.
type sliceSource struct {
	n, pos int
}

func (s *sliceSource) Next(ctx context.Context) (frames.Frame, error) {
	if s.pos >= s.n {
		return frames.Frame{}, io.EOF
	}
	f := frames.Frame{Index: s.pos, Name: "frame-" + strconv.Itoa(s.pos), Width: 100, Height: 50}
	s.pos++
	return f, nil
}

type failingDetector struct{}

func (failingDetector) Detect(ctx context.Context, frame frames.Frame) ([]geometry.BBox, error) {
	return nil, errors.New("service unavailable")
}

func TestTrackFrames(t *testing.T) {
	recording := []detections.Frame{
		{Index: 0, Boxes: [][]float64{{0, 0, 10, 10}}},
		{Index: 2, Boxes: [][]float64{{2, 2, 12, 12}}},
	}
	det := detector.NewStaticDetector(recording)
	tr := tracker.New(tracker.DefaultMaxMissed)
	var out bytes.Buffer
	reporter := newFrameReporter(&out, 3, "test", true, false)

	recorded, err := trackFrames(context.Background(), &sliceSource{n: 3}, det, tr, reporter, false)
	if err != nil {
		t.Fatalf("trackFrames: %v", err)
	}

	want := []detections.Frame{
		{Index: 0, Boxes: [][]float64{{0, 0, 10, 10}}},
		{Index: 1},
		{Index: 2, Boxes: [][]float64{{2, 2, 12, 12}}},
	}
	if diff := cmp.Diff(want, recorded); diff != "" {
		t.Errorf("recorded mismatch (-want +got):\n%s", diff)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 NDJSON lines, got %d:\n%s", len(lines), out.String())
	}
	var last FrameLine
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantLast := FrameLine{
		Frame:     2,
		Source:    "frame-2",
		Objects:   []tracker.Object{{ID: 1, Centroid: geometry.Point{X: 7, Y: 7}}},
		TotalSeen: 1,
	}
	if diff := cmp.Diff(wantLast, last); diff != "" {
		t.Errorf("last line mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackFrames_Normalized(t *testing.T) {
	recording := []detections.Frame{
		{Index: 0, Boxes: [][]float64{{10, 10, 30, 20}}},
		{Index: 1, Boxes: [][]float64{{10, 10, 30, 20}}},
	}
	det := detector.NewStaticDetector(recording)
	tr := tracker.New(tracker.DefaultMaxMissed, tracker.WithIntegerCentroids(false))
	var out bytes.Buffer
	reporter := newFrameReporter(&out, 2, "test", true, false)

	recorded, err := trackFrames(context.Background(), &sliceSource{n: 2}, det, tr, reporter, true)
	if err != nil {
		t.Fatalf("trackFrames: %v", err)
	}

	// Both frames see the same relative box; the replayed boxes are not modified.
	approx := cmpopts.EquateApprox(0, 1e-9)
	want := [][]float64{{0.1, 0.2, 0.3, 0.4}}
	for _, f := range recorded {
		if diff := cmp.Diff(want, f.Boxes, approx); diff != "" {
			t.Errorf("frame %d boxes mismatch (-want +got):\n%s", f.Index, diff)
		}
	}
	wantObjects := []tracker.Object{{ID: 1, Centroid: geometry.Point{X: 0.2, Y: 0.3}}}
	if diff := cmp.Diff(wantObjects, tr.Objects(), approx); diff != "" {
		t.Errorf("objects mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackFrames_DetectorError(t *testing.T) {
	var out bytes.Buffer
	reporter := newFrameReporter(&out, 1, "test", false, false)

	_, err := trackFrames(context.Background(), &sliceSource{n: 1}, failingDetector{}, tracker.New(1), reporter, false)
	if err == nil || !strings.Contains(err.Error(), "service unavailable") {
		t.Errorf("expected detector error, got %v", err)
	}
}

func TestWriteRecording_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detections.yaml")
	doc := detections.Document{Frames: []detections.Frame{
		{Index: 0, Boxes: [][]float64{{1, 2, 3, 4}}},
		{Index: 1},
	}}

	if err := writeRecording(path, doc); err != nil {
		t.Fatalf("writeRecording: %v", err)
	}
	loaded, err := detections.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(doc, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func lastFrameLine(t *testing.T, out string) FrameLine {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var line FrameLine
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return line
}

func TestRecordThenReplay_Normalized(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-9)
	wantObjects := []tracker.Object{{ID: 1, Centroid: geometry.Point{X: 0.22, Y: 0.3}}}

	// detect --normalized --record
	det := detector.NewStaticDetector([]detections.Frame{
		{Index: 0, Boxes: [][]float64{{10, 10, 30, 20}}},
		{Index: 1, Boxes: [][]float64{{12, 10, 32, 20}}},
	})
	var out bytes.Buffer
	recorded, err := trackFrames(context.Background(), &sliceSource{n: 2}, det,
		tracker.New(tracker.DefaultMaxMissed, tracker.WithIntegerCentroids(false)),
		newFrameReporter(&out, 2, "test", true, false), true)
	if err != nil {
		t.Fatalf("trackFrames: %v", err)
	}
	path := filepath.Join(t.TempDir(), "detections.yaml")
	if err := writeRecording(path, detections.Document{Normalized: true, Frames: recorded}); err != nil {
		t.Fatalf("writeRecording: %v", err)
	}

	t.Run("track", func(t *testing.T) {
		doc, err := detections.Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !doc.Normalized {
			t.Fatal("expected recording to be marked normalized")
		}

		var out bytes.Buffer
		// Integer centroids are configured but must not apply to relative boxes.
		if err := replayDocument(doc, tracker.DefaultMaxMissed, true, newFrameReporter(&out, len(doc.Frames), "test", true, false)); err != nil {
			t.Fatalf("replayDocument: %v", err)
		}
		if diff := cmp.Diff(wantObjects, lastFrameLine(t, out.String()).Objects, approx); diff != "" {
			t.Errorf("objects mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("detect replay", func(t *testing.T) {
		replay, replayNormalized, err := newDetector(&config.Config{}, path, 0)
		if err != nil {
			t.Fatalf("newDetector: %v", err)
		}
		if !replayNormalized {
			t.Fatal("expected replay to report normalized boxes")
		}

		tr := tracker.New(tracker.DefaultMaxMissed, tracker.WithIntegerCentroids(false))
		var out bytes.Buffer
		replayed, err := trackFrames(context.Background(), &sliceSource{n: 2}, replay, tr, newFrameReporter(&out, 2, "test", true, false), false)
		if err != nil {
			t.Fatalf("trackFrames: %v", err)
		}
		if diff := cmp.Diff(recorded, replayed, approx); diff != "" {
			t.Errorf("replayed boxes were modified (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(wantObjects, tr.Objects(), approx); diff != "" {
			t.Errorf("objects mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestReplayDocument_PixelsUseIntegerCentroids(t *testing.T) {
	doc := detections.Document{Frames: []detections.Frame{
		{Index: 0, Boxes: [][]float64{{0, 0, 5, 5}}},
	}}

	tests := []struct {
		name             string
		integerCentroids bool
		want             geometry.Point
	}{
		{"integer", true, geometry.Point{X: 2, Y: 2}},
		{"fractional", false, geometry.Point{X: 2.5, Y: 2.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := replayDocument(doc, 1, tt.integerCentroids, newFrameReporter(&out, 1, "test", true, false)); err != nil {
				t.Fatalf("replayDocument: %v", err)
			}
			want := []tracker.Object{{ID: 1, Centroid: tt.want}}
			if diff := cmp.Diff(want, lastFrameLine(t, out.String()).Objects); diff != "" {
				t.Errorf("objects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
