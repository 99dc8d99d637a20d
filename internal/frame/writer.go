package frame

import (
	"fmt"
	"image/png"
	"io"
	"path/filepath"
	"strconv"

	"github.com/giantswarm/simenv/internal/engine"
	"github.com/giantswarm/simenv/internal/fileutil"
	"github.com/giantswarm/simenv/internal/sentinel"
)

// File extensions used for persisted frames.
const (
	PixelExt = ".png"
	TextExt  = ".txt"
)

// ErrEmptyFrame is returned when a frame carries no payload for its mode.
const ErrEmptyFrame = sentinel.Error("frame has no content")

const frameFileMode = 0o644

// Writer writes frames into a single directory. It holds no state besides the
// directory; callers serialize writes per directory and own the counter.
type Writer struct {
	dir string
}

// NewWriter returns a Writer for dir. The directory is created on first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Name returns the file name a frame of the given mode is stored under for
// counter, e.g. "0.png" or "3.txt".
func Name(counter uint64, mode engine.RenderMode) (string, error) {
	switch mode {
	case engine.RenderPixel:
		return strconv.FormatUint(counter, 10) + PixelExt, nil
	case engine.RenderText:
		return strconv.FormatUint(counter, 10) + TextExt, nil
	default:
		return "", fmt.Errorf("no file format for render mode %s", mode)
	}
}

// Write persists f under the name derived from counter and returns that
// name. The file appears atomically: it is either absent or complete.
func (w *Writer) Write(counter uint64, f engine.Frame) (string, error) {
	name, err := Name(counter, f.Mode)
	if err != nil {
		return "", err
	}

	var encode func(io.Writer) error
	switch f.Mode {
	case engine.RenderPixel:
		if f.Image == nil {
			return "", ErrEmptyFrame
		}
		encode = func(out io.Writer) error { return png.Encode(out, f.Image) }
	default:
		encode = func(out io.Writer) error {
			_, err := io.WriteString(out, f.Text)
			return err
		}
	}

	path := filepath.Join(w.dir, name)
	if err := fileutil.WriteFileAtomic(path, frameFileMode, encode); err != nil {
		return "", fmt.Errorf("write frame %s: %w", path, err)
	}
	return name, nil
}
