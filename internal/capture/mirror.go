package capture

import (
	"crypto/sha1" //nolint:gosec // used for file naming, not security
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nao1215/hitscan/internal/model"
)

// Mirror persists captured bodies for debugging.
type Mirror interface {
	// Write stores the body of s. seq is the ring's push counter, starting at 1.
	Write(seq int, s model.ResponseSample) error
}

// FileMirror writes each body to its own file in a directory.
type FileMirror struct {
	dir string
}

// NewFileMirror creates the directory if needed and returns a mirror
// writing into it.
func NewFileMirror(dir string) (*FileMirror, error) {
	if dir == "" {
		return nil, ErrEmptyMirrorDir
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	return &FileMirror{dir: dir}, nil
}

// Write stores the body as resp_<seq>_<hash><ext>.
func (m *FileMirror) Write(seq int, s model.ResponseSample) error {
	path := filepath.Join(m.dir, MirrorFileName(seq, s))
	if err := os.WriteFile(path, s.Body, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Dir returns the mirror directory.
func (m *FileMirror) Dir() string {
	return m.dir
}

// MirrorFileName returns "resp_<seq:05d>_<h><ext>" where h is the first
// 8 hex digits of sha1(url + body length) and ext is ".json" for JSON
// samples, ".html" otherwise.
func MirrorFileName(seq int, s model.ResponseSample) string {
	sum := sha1.Sum([]byte(s.URL + strconv.Itoa(len(s.Body)))) //nolint:gosec // file naming only
	ext := ".html"
	if s.IsJSON() {
		ext = ".json"
	}
	return fmt.Sprintf("resp_%05d_%s%s", seq, hex.EncodeToString(sum[:])[:8], ext)
}
