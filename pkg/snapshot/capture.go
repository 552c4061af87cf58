// Package snapshot persists full-page screenshots under unique, readable names.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// MaxNameLength caps the sanitized element name in a snapshot file name.
const MaxNameLength = 40

// Target is anything that can write a full-page screenshot to a file.
type Target interface {
	Screenshot(path string) error
}

// CaptureError reports a screenshot that could not be written.
type CaptureError struct {
	Path string
	Err  error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Path, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Capturer writes snapshots into one folder.
//
// File names are <millis>__<label>[__<name>].png. The millisecond stamp never
// repeats within a Capturer, so names are unique even when two captures share
// label and name.
type Capturer struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	last int64
}

// NewCapturer creates a Capturer writing to dir
func NewCapturer(dir string) *Capturer {
	return &Capturer{dir: dir, now: time.Now}
}

// WithClock replaces the time source, for tests
func (c *Capturer) WithClock(now func() time.Time) *Capturer {
	c.now = now
	return c
}

// Dir returns the destination folder
func (c *Capturer) Dir() string {
	return c.dir
}

// Capture writes a screenshot of target and returns its path.
// An empty name omits the name part of the file name.
func (c *Capturer) Capture(target Target, label, name string) (string, error) {
	path, err := c.Reserve(label, name, ".png")
	if err != nil {
		return "", err
	}

	if err := target.Screenshot(path); err != nil {
		return "", &CaptureError{Path: path, Err: err}
	}
	return path, nil
}

// Reserve ensures the folder exists and returns a fresh path with the given
// extension, without writing anything.
func (c *Capturer) Reserve(label, name, ext string) (string, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", &CaptureError{Path: c.dir, Err: err}
	}
	return filepath.Join(c.dir, FileName(c.stamp(), label, name, ext)), nil
}

// stamp returns a strictly increasing millisecond timestamp
func (c *Capturer) stamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

// FileName builds a snapshot file name
func FileName(stamp int64, label, name, ext string) string {
	fileName := strconv.FormatInt(stamp, 10) + "__" + label
	if name != "" {
		fileName += "__" + Sanitize(name)
	}
	return fileName + ext
}

var nonWord = regexp.MustCompile(`[^\w.-]+`)

// Sanitize replaces runs of characters outside [A-Za-z0-9_.-] with an
// underscore and caps the result at MaxNameLength bytes.
func Sanitize(name string) string {
	s := nonWord.ReplaceAllString(name, "_")
	if len(s) > MaxNameLength {
		s = s[:MaxNameLength]
	}
	return s
}
