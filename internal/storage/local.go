package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var ErrInvalidReference = errors.New("storage: invalid file reference")

type LocalStorage struct {
	root         string
	publicPrefix string
	logger       *slog.Logger
	now          func() time.Time
}

func NewLocalStorage(root, publicPrefix string, logger *slog.Logger) (*LocalStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{
		root:         abs,
		publicPrefix: strings.TrimRight(publicPrefix, "/"),
		logger:       logger,
		now:          time.Now,
	}, nil
}

func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) Store(ctx context.Context, r io.Reader, dir, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := GenerateUniqueFilename(strings.Trim(dir, "/"), filename, s.now())
	full, err := s.resolve(ref)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("close file: %w", err)
	}

	s.logger.Debug("file stored", "ref", ref)
	return ref, nil
}

func (s *LocalStorage) Delete(ctx context.Context, ref string) bool {
	if ref == "" {
		return false
	}
	full, err := s.resolve(ref)
	if err != nil {
		s.logger.Warn("refusing to delete file outside storage root", "ref", ref)
		return false
	}
	if err := os.Remove(full); err != nil {
		s.logger.Warn("failed to delete stored file", "ref", ref, "error", err)
		return false
	}
	s.logger.Debug("file deleted", "ref", ref)
	return true
}

func (s *LocalStorage) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.publicPrefix + "/" + strings.TrimLeft(path.Clean("/"+ref), "/")
}

// FileSystem serves stored files read-only. Directories are reported as missing so they are
// never listed.
func (s *LocalStorage) FileSystem() http.FileSystem {
	return filesOnly{fs: http.Dir(s.root)}
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

func (s *LocalStorage) Exists(ref string) bool {
	full, err := s.resolve(ref)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (s *LocalStorage) resolve(ref string) (string, error) {
	cleaned := path.Clean("/" + ref)
	if cleaned == "/" {
		return "", ErrInvalidReference
	}
	full := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", ErrInvalidReference
	}
	return full, nil
}
