package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apptransition "github.com/itam/backend/internal/application/transition"
)

// FileScheme prefixes the locations returned by LocalReportArchive
const FileScheme = "file://"

// LocalReportArchive copies reports into a directory on the local disk.
// Use it in development or when no object storage is configured.
type LocalReportArchive struct {
	dir string
}

// Ensure LocalReportArchive implements ReportArchive
var _ apptransition.ReportArchive = (*LocalReportArchive)(nil)

// NewLocalReportArchive creates the archive directory if needed
func NewLocalReportArchive(dir string) (*LocalReportArchive, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalReportArchive{dir: dir}, nil
}

// Archive copies the report into the archive directory
func (a *LocalReportArchive) Archive(ctx context.Context, localPath, fileName string) (string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) {
		return "", fmt.Errorf("invalid report file name %q", fileName)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open report: %w", err)
	}
	defer src.Close()

	target := filepath.Join(a.dir, fileName)
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create archived report: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to copy report: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to close archived report: %w", err)
	}
	return FileScheme + target, nil
}

// Path returns the local path of a location returned by Archive
func (a *LocalReportArchive) Path(location string) (string, error) {
	p, ok := strings.CutPrefix(location, FileScheme)
	if !ok {
		return "", fmt.Errorf("not a file location: %q", location)
	}
	if filepath.Dir(p) != filepath.Clean(a.dir) {
		return "", fmt.Errorf("report outside archive directory: %q", location)
	}
	return p, nil
}

// Remove deletes an archived report
func (a *LocalReportArchive) Remove(ctx context.Context, location string) error {
	p, err := a.Path(location)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove archived report: %w", err)
	}
	return nil
}
