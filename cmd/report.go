package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kozaktomas/face-tracker/internal/tracker"
	"github.com/schollz/progressbar/v3"
)

// FrameLine is the per-frame output of the track and detect commands.
type FrameLine struct {
	Frame        int              `json:"frame"`
	Source       string           `json:"source,omitempty"`
	Empty        bool             `json:"empty"`
	Objects      []tracker.Object `json:"objects"`
	Registered   []int            `json:"registered,omitempty"`
	Deregistered []int            `json:"deregistered,omitempty"`
	TotalSeen    int              `json:"total_seen"`
}

// TrackSummary is printed once all frames are processed.
type TrackSummary struct {
	Frames        int    `json:"frames"`
	EmptyFrames   int    `json:"empty_frames"`
	FacesTracked  int    `json:"faces_tracked"`
	Active        int    `json:"active"`
	DurationMs    int64  `json:"duration_ms"`
	DurationHuman string `json:"duration_human,omitempty"`
}

// frameReporter prints frame results as text, NDJSON, or a progress bar
// followed by a summary.
type frameReporter struct {
	out     io.Writer
	encoder *json.Encoder
	bar     *progressbar.ProgressBar
	start   time.Time
	summary TrackSummary
}

func newFrameReporter(out io.Writer, total int, description string, jsonOutput, summaryOnly bool) *frameReporter {
	r := &frameReporter{out: out, start: time.Now()}
	switch {
	case jsonOutput:
		r.encoder = json.NewEncoder(out)
	case summaryOnly:
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("frames"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}
	return r
}

// newFrameLine captures the tracker state after an Update.
func newFrameLine(frame int, source string, empty bool, t *tracker.Tracker) FrameLine {
	changes := t.LastChanges()
	return FrameLine{
		Frame:        frame,
		Source:       source,
		Empty:        empty,
		Objects:      t.Objects(),
		Registered:   changes.Registered,
		Deregistered: changes.Deregistered,
		TotalSeen:    t.NextID() - 1,
	}
}

func (r *frameReporter) report(line FrameLine) error {
	r.summary.Frames++
	if line.Empty {
		r.summary.EmptyFrames++
	}
	r.summary.FacesTracked = line.TotalSeen
	r.summary.Active = len(line.Objects)

	switch {
	case r.encoder != nil:
		if err := r.encoder.Encode(line); err != nil {
			return fmt.Errorf("encoding frame %d: %w", line.Frame, err)
		}
	case r.bar != nil:
		_ = r.bar.Add(1)
	default:
		_, err := fmt.Fprintln(r.out, formatFrameLine(line))
		return err
	}
	return nil
}

// finish prints the summary. NDJSON output has no summary line.
func (r *frameReporter) finish() TrackSummary {
	duration := time.Since(r.start)
	r.summary.DurationMs = duration.Milliseconds()
	r.summary.DurationHuman = formatDuration(duration)

	if r.encoder != nil {
		return r.summary
	}
	if r.bar != nil {
		_ = r.bar.Finish()
		fmt.Fprintln(r.out)
	}

	fmt.Fprintln(r.out, "\nTracking complete!")
	fmt.Fprintf(r.out, "  Frames:        %d\n", r.summary.Frames)
	if r.summary.EmptyFrames > 0 {
		fmt.Fprintf(r.out, "  No face:       %d\n", r.summary.EmptyFrames)
	}
	fmt.Fprintf(r.out, "  Faces tracked: %d\n", r.summary.FacesTracked)
	fmt.Fprintf(r.out, "  Still active:  %d\n", r.summary.Active)
	fmt.Fprintf(r.out, "  Duration:      %s\n", r.summary.DurationHuman)
	return r.summary
}

func formatFrameLine(line FrameLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "frame %d", line.Frame)
	if line.Source != "" {
		fmt.Fprintf(&b, " [%s]", line.Source)
	}
	b.WriteString(":")
	if line.Empty {
		b.WriteString(" no face detected")
	}
	for _, o := range line.Objects {
		fmt.Fprintf(&b, " ID %d (%g, %g)", o.ID, o.Centroid.X, o.Centroid.Y)
		if o.Missed > 0 {
			fmt.Fprintf(&b, " missed=%d", o.Missed)
		}
	}
	if len(line.Registered) > 0 {
		fmt.Fprintf(&b, " +%v", line.Registered)
	}
	if len(line.Deregistered) > 0 {
		fmt.Fprintf(&b, " -%v", line.Deregistered)
	}
	fmt.Fprintf(&b, " | faces tracked: %d", line.TotalSeen)
	return b.String()
}

// outputJSON writes data to stdout as indented JSON.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
