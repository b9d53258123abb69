package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freelanceos/pkg/logger"
)

var (
	ErrTooLarge = errors.New("file exceeds upload limit")
	ErrEmpty    = errors.New("file is empty")
)

// Result is returned to callers of UploadFile.
type Result struct {
	FileURL      string `json:"file_url"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name,omitempty"`
	Size         int64  `json:"size"`
}

// Service stores uploads on local disk under random names.
type Service struct {
	dir      string
	baseURL  string
	maxBytes int64
	logger   *zap.Logger
}

func NewService(dir, baseURL string, maxBytes int64, logger *zap.Logger) *Service {
	return &Service{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		logger:   logger,
	}
}

func (s *Service) Dir() string { return s.dir }

// Save copies r to <dir>/<uuid><ext>. Partial files are removed on failure.
func (s *Service) Save(ctx context.Context, originalName string, r io.Reader) (*Result, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.NewString() + safeExt(originalName)
	full := filepath.Join(s.dir, name)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	switch {
	case err != nil:
		err = fmt.Errorf("write upload: %w", err)
	case n == 0:
		err = ErrEmpty
	case s.maxBytes > 0 && n > s.maxBytes:
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return nil, err
	}

	logger.WithTrace(ctx, s.logger).Info("File uploaded",
		zap.String("name", name),
		zap.String("original_name", originalName),
		zap.Int64("size", n),
	)
	return &Result{
		FileURL:      s.baseURL + "/" + name,
		Name:         name,
		OriginalName: path.Base(filepath.ToSlash(originalName)),
		Size:         n,
	}, nil
}

// safeExt keeps a short alphanumeric extension so stored names cannot escape the directory.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
