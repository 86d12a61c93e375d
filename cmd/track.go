package cmd

import (
	"fmt"
	"os"

	"github.com/kozaktomas/face-tracker/internal/config"
	"github.com/kozaktomas/face-tracker/internal/detections"
	"github.com/kozaktomas/face-tracker/internal/tracker"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track FILE",
	Short: "Replay a recorded detections file through the tracker",
	Long: `Replay a recorded detections file (YAML or JSON) through a fresh tracker
and print the ID assigned to every face, frame by frame.

Replay files are produced by "face-tracker detect --record" or written by hand:

  frames:
    - index: 0
      boxes: [[100, 80, 160, 150], [300, 90, 350, 160]]
    - index: 1
      boxes: []

Files recorded with "detect --normalized" start with "normalized: true"; their
relative coordinates are tracked with fractional centroids.

Examples:
  # Print the tracked IDs of every frame
  face-tracker track detections.yaml

  # Forget faces after 5 missed frames
  face-tracker track detections.yaml --max-missed 5

  # One JSON object per frame for scripting
  face-tracker track detections.yaml --json

  # Progress bar and summary only
  face-tracker track detections.yaml --summary`,
	Args: cobra.ExactArgs(1),
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().Int("max-missed", tracker.DefaultMaxMissed, "Consecutive missed frames before a face is forgotten")
	trackCmd.Flags().Bool("json", false, "Output one JSON object per frame")
	trackCmd.Flags().Bool("summary", false, "Show a progress bar and summary instead of per-frame output")
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	maxMissed, err := resolveMaxMissed(cmd, cfg.Tracker.MaxMissed)
	if err != nil {
		return err
	}

	doc, err := detections.Load(args[0])
	if err != nil {
		return err
	}

	reporter := newFrameReporter(os.Stdout, len(doc.Frames), "Tracking", mustGetBool(cmd, "json"), mustGetBool(cmd, "summary"))
	if err := replayDocument(doc, maxMissed, cfg.Tracker.IntegerCentroids, reporter); err != nil {
		return err
	}
	reporter.finish()
	return nil
}

// replayDocument runs a recorded document through a fresh tracker.
// Relative coordinates would all truncate to zero, so integer centroids are
// only used for pixel documents.
func replayDocument(doc detections.Document, maxMissed int, integerCentroids bool, reporter *frameReporter) error {
	t := tracker.New(maxMissed, tracker.WithIntegerCentroids(integerCentroids && !doc.Normalized))
	for _, frame := range doc.Frames {
		boxes := frame.BBoxes()
		t.Update(boxes)
		if err := reporter.report(newFrameLine(frame.Index, "", len(boxes) == 0, t)); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return nil
}
