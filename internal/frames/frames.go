// Package frames supplies video frames to the detection loop. Video decoding
// is out of scope; a stream is represented as a directory of still images
// (for example the output of `ffmpeg -i in.mp4 frames/%06d.jpg`).
package frames

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kozaktomas/face-tracker/internal/constants"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Frame is one decoded and resized frame, re-encoded as JPEG.
type Frame struct {
	Index  int
	Name   string
	Data   []byte
	Width  int
	Height int
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// DirSource yields the images of a directory in lexical file name order.
type DirSource struct {
	files []string
	width int
	pos   int
}

// NewDirSource lists the images in dir. Frames wider than width are
// downscaled to it; width <= 0 disables resizing.
func NewDirSource(dir string, width int) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if slices.Contains(imageExtensions, ext) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)

	return &DirSource{files: files, width: width}, nil
}

// Len returns the total number of frames.
func (s *DirSource) Len() int {
	return len(s.files)
}

// Next returns the next frame or io.EOF when the directory is exhausted.
func (s *DirSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.files) {
		return Frame{}, io.EOF
	}

	path := s.files[s.pos]
	index := s.pos
	s.pos++

	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read frame %s: %w", path, err)
	}

	resized, w, h, err := ResizeToWidth(data, s.width)
	if err != nil {
		return Frame{}, fmt.Errorf("frame %s: %w", path, err)
	}

	return Frame{
		Index:  index,
		Name:   filepath.Base(path),
		Data:   resized,
		Width:  w,
		Height: h,
	}, nil
}

// ResizeToWidth decodes an image, downscales it to the given width keeping
// the aspect ratio, and re-encodes it as JPEG. Images already narrower than
// width are only re-encoded.
func ResizeToWidth(data []byte, width int) ([]byte, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	var out image.Image = img
	outW, outH := srcW, srcH
	if width > 0 && srcW > width {
		outW = width
		outH = max(int(float64(srcH)*float64(width)/float64(srcW)), 1)

		resized := image.NewRGBA(image.Rect(0, 0, outW, outH))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), outW, outH, nil
}
