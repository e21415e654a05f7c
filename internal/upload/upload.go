// Package upload stores user-supplied images in a flat directory under
// collision-free names.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	MaxThumbnailBytes = 2_000_000
	MaxAvatarBytes    = 500_000
)

var (
	ErrMissingFile = errors.New("no file uploaded")
	ErrTooLarge    = errors.New("file too large")
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Longer bases are cut; longer extensions are dropped.
const (
	maxBaseLen = 64
	maxExtLen  = 16
)

type Intake struct {
	dir    string
	logger zerolog.Logger
}

// New creates dir if needed.
func New(dir string, logger zerolog.Logger) (*Intake, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Intake{dir: dir, logger: logger}, nil
}

func (in *Intake) Dir() string {
	return in.dir
}

// Save copies fh into the uploads directory and returns the stored name.
// Files over limit are rejected with ErrTooLarge before anything is written.
func (in *Intake) Save(fh *multipart.FileHeader, limit int64) (string, error) {
	if fh == nil {
		return "", ErrMissingFile
	}
	if fh.Size > limit {
		return "", ErrTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := FileName(fh.Filename)
	path := filepath.Join(in.dir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}

	// Read one byte past the limit so a lying header cannot slip through.
	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	closeErr := dst.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("write %s: %w", name, err)
	case closeErr != nil:
		err = fmt.Errorf("close %s: %w", name, closeErr)
	case n > limit:
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return name, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (in *Intake) Remove(name string) error {
	base := filepath.Base(name)
	if name == "" || base == "." || base == string(filepath.Separator) {
		return nil
	}
	if err := os.Remove(filepath.Join(in.dir, base)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Discard is Remove for cleanup paths: failures are logged, not returned.
func (in *Intake) Discard(name string) {
	if err := in.Remove(name); err != nil {
		in.logger.Warn().Err(err).Str("file", name).Msg("remove upload")
	}
}

// FileName builds "<base><uuid><ext>" from an uploaded file name, keeping
// only filesystem-safe characters of the base.
func FileName(original string) string {
	original = filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	ext := filepath.Ext(original)
	base := strings.TrimSuffix(original, ext)
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	ext = unsafeChars.ReplaceAllString(ext, "")
	if len(base) > maxBaseLen {
		base = base[:maxBaseLen]
	}
	if len(ext) > maxExtLen || ext == "." {
		ext = ""
	}
	return base + uuid.NewString() + strings.ToLower(ext)
}
