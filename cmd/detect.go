package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/face-tracker/internal/config"
	"github.com/kozaktomas/face-tracker/internal/detections"
	"github.com/kozaktomas/face-tracker/internal/detector"
	"github.com/kozaktomas/face-tracker/internal/frames"
	"github.com/kozaktomas/face-tracker/internal/geometry"
	"github.com/kozaktomas/face-tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect DIR",
	Short: "Detect and track faces in a directory of frames",
	Long: `Run every image in DIR (in file name order) through the face detection
service and the tracker. Frames are downscaled to the configured width before
detection, and faces scoring at or below the minimum score are ignored.

Extract frames from a video first, for example:
  ffmpeg -i input.mp4 frames/%06d.jpg

Examples:
  # Detect and track using DETECTOR_URL
  face-tracker detect frames/

  # Save the detections for later replay with "face-tracker track"
  face-tracker detect frames/ --record detections.yaml

  # Re-run tracking on the same frames without the detection service
  face-tracker detect frames/ --replay detections.yaml --max-missed 5

  # Track in relative coordinates, independent of the frame size
  face-tracker detect frames/ --normalized --json`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().Int("max-missed", tracker.DefaultMaxMissed, "Consecutive missed frames before a face is forgotten")
	detectCmd.Flags().Float64("min-score", 0, "Minimum detection score (default from DETECTOR_MIN_SCORE)")
	detectCmd.Flags().Int("width", 0, "Resize frames to this width before detection (default from FRAME_WIDTH)")
	detectCmd.Flags().String("record", "", "Write the detections to this replay file")
	detectCmd.Flags().String("replay", "", "Use boxes from this replay file instead of the detection service")
	detectCmd.Flags().Bool("normalized", false, "Track relative (0-1) coordinates instead of pixels (implied by a normalized replay file)")
	detectCmd.Flags().Bool("json", false, "Output one JSON object per frame")
	detectCmd.Flags().Bool("summary", false, "Show a progress bar and summary instead of per-frame output")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	maxMissed, err := resolveMaxMissed(cmd, cfg.Tracker.MaxMissed)
	if err != nil {
		return err
	}
	width := cfg.Frames.Width
	if cmd.Flags().Changed("width") {
		width = mustGetInt(cmd, "width")
	}
	minScore := cfg.Detector.MinScore
	if cmd.Flags().Changed("min-score") {
		minScore = mustGetFloat64(cmd, "min-score")
	}

	src, err := frames.NewDirSource(args[0], width)
	if err != nil {
		return err
	}
	if src.Len() == 0 {
		return fmt.Errorf("no images found in %s", args[0])
	}

	det, replayNormalized, err := newDetector(cfg, mustGetString(cmd, "replay"), minScore)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A normalized replay already holds relative boxes. Relative coordinates
	// would all truncate to zero with integer centroids.
	normalize := mustGetBool(cmd, "normalized") && !replayNormalized
	relative := normalize || replayNormalized
	t := tracker.New(maxMissed, tracker.WithIntegerCentroids(cfg.Tracker.IntegerCentroids && !relative))
	reporter := newFrameReporter(os.Stdout, src.Len(), "Detecting", mustGetBool(cmd, "json"), mustGetBool(cmd, "summary"))

	recorded, err := trackFrames(ctx, src, det, t, reporter, normalize)
	if err != nil {
		return err
	}
	reporter.finish()

	if path := mustGetString(cmd, "record"); path != "" {
		doc := detections.Document{Normalized: relative, Frames: recorded}
		if err := writeRecording(path, doc); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Recorded %d frames to %s\n", len(recorded), path)
	}
	return nil
}

// newDetector returns a replay detector when replayPath is set, reporting
// whether the replayed boxes are relative, and the HTTP detector otherwise.
func newDetector(cfg *config.Config, replayPath string, minScore float64) (detector.Detector, bool, error) {
	if replayPath != "" {
		doc, err := detections.Load(replayPath)
		if err != nil {
			return nil, false, err
		}
		return detector.NewStaticDetector(doc.Frames), doc.Normalized, nil
	}
	return detector.NewHTTPDetector(cfg.Detector.URL, minScore, cfg.Detector.Timeout()), false, nil
}

// frameSource yields frames until io.EOF.
type frameSource interface {
	Next(ctx context.Context) (frames.Frame, error)
}

// trackFrames runs every frame through the detector and the tracker, reports
// each result and returns the detections for recording.
// With normalized set, boxes are converted to relative coordinates first.
func trackFrames(ctx context.Context, src frameSource, det detector.Detector, t *tracker.Tracker, reporter *frameReporter, normalized bool) ([]detections.Frame, error) {
	var recorded []detections.Frame
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return recorded, nil
		}
		if err != nil {
			return recorded, err
		}

		boxes, err := det.Detect(ctx, frame)
		if err != nil {
			return recorded, fmt.Errorf("detecting faces in %s: %w", frame.Name, err)
		}
		if normalized {
			relative := make([]geometry.BBox, len(boxes))
			for i, b := range boxes {
				relative[i] = b.Normalize(frame.Width, frame.Height)
			}
			boxes = relative
		}
		recorded = append(recorded, detections.NewFrame(frame.Index, boxes))

		t.Update(boxes)
		if err := reporter.report(newFrameLine(frame.Index, frame.Name, len(boxes) == 0, t)); err != nil {
			return recorded, fmt.Errorf("writing output: %w", err)
		}
	}
}

func writeRecording(path string, doc detections.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	if err := detections.Write(f, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close recording: %w", err)
	}
	return nil
}
