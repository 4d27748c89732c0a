// Package photo loads still images together with their EXIF orientation.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"gocv.io/x/gocv"

	"github.com/dudu/facemarks/internal/log"
	"github.com/dudu/facemarks/internal/orient"
)

// ErrUnsupported is returned when a file cannot be decoded as an image
var ErrUnsupported = errors.New("photo: unsupported image")

// Photo is a decoded image in its stored pixel layout plus the orientation tag
// that says how to display it
type Photo struct {
	Name        string
	Image       gocv.Mat
	Orientation orient.Orientation
}

// Close releases the pixel buffer
func (p *Photo) Close() error {
	return p.Image.Close()
}

// Load decodes path without applying its orientation, which is returned
// separately. Files without EXIF data are treated as upright.
func Load(path string) (Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Photo{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decode(filepath.Base(path), data)
}

// Decode is Load for in-memory data
func Decode(name string, data []byte) (Photo, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor|gocv.IMReadIgnoreOrientation)
	if err != nil || img.Empty() {
		img.Close()
		return Photo{}, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}

	o, err := ReadOrientation(bytes.NewReader(data))
	if err != nil {
		log.Debug(log.Fields{"photo": name, "error": err}, "no orientation tag, assuming up")
	}

	return Photo{Name: name, Image: img, Orientation: o}, nil
}

// ReadOrientation returns the EXIF orientation tag. Up is returned alongside
// any error, and for tags outside 1..8.
func ReadOrientation(r io.Reader) (orient.Orientation, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return orient.Up, err
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return orient.Up, err
	}
	v, err := tag.Int(0)
	if err != nil {
		return orient.Up, err
	}

	o := orient.Orientation(v)
	if !o.Valid() {
		return orient.Up, fmt.Errorf("orientation tag %d out of range", v)
	}
	return o, nil
}

// Save writes img as a JPEG (or whatever the extension says) at the given quality
func Save(path string, img gocv.Mat, quality int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if !gocv.IMWriteWithParams(path, img, []int{int(gocv.IMWriteJpegQuality), quality}) {
		return fmt.Errorf("failed to write %s", path)
	}
	return nil
}

// OutputPath names the annotated copy of src inside dir: photo.heic with
// suffix "_landmarks" becomes dir/photo_landmarks.jpg
func OutputPath(dir, src, suffix string) string {
	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+suffix+".jpg")
}

// Files yields photos from a list of paths
type Files struct {
	paths []string
	next  int
	loop  bool
}

// NewFiles returns a source over paths. With loop set it starts over after
// the last one instead of returning io.EOF.
func NewFiles(paths []string, loop bool) *Files {
	return &Files{paths: paths, loop: loop}
}

// Next loads the next photo
func (f *Files) Next(ctx context.Context) (Photo, error) {
	if err := ctx.Err(); err != nil {
		return Photo{}, err
	}
	if f.next >= len(f.paths) {
		if !f.loop || len(f.paths) == 0 {
			return Photo{}, io.EOF
		}
		f.next = 0
	}
	path := f.paths[f.next]
	f.next++
	return Load(path)
}

// Len returns the number of paths
func (f *Files) Len() int {
	return len(f.paths)
}

// Close is a no-op; each Photo owns its pixels
func (f *Files) Close() error {
	return nil
}
