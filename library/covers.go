package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Cover returns the on-disk path and content type of a book's cover
// thumbnail, fetching and caching it from the feed on first access. The
// cache is keyed by the cover's feed handle with the upstream path's
// extension; population goes through a temp file and an atomic rename so a
// partial download is never served. Returns ErrNotFound when the book does
// not exist or carries no cover.
func (s *Service) Cover(ctx context.Context, id int64) (string, string, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	if b.CoverFileID == "" {
		return "", "", ErrNotFound
	}
	if s.feed == nil {
		return "", "", ErrFeedDisabled
	}

	dir := s.config.CoverCacheDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("library: cover cache dir: %w", err)
	}
	if cached := findCachedCover(dir, b.CoverFileID); cached != "" {
		return cached, coverContentType(cached), nil
	}

	f, err := s.feed.GetFile(ctx, b.CoverFileID)
	if err != nil {
		return "", "", fmt.Errorf("library: resolve cover: %w", err)
	}
	if f.FilePath == "" {
		return "", "", fmt.Errorf("library: feed returned no path for cover of book %d", id)
	}
	ext := path.Ext(f.FilePath)
	if ext == "" {
		ext = ".bin"
	}
	dst := filepath.Join(dir, b.CoverFileID+ext)
	if err := s.fetchCover(ctx, f.FilePath, dst); err != nil {
		return "", "", err
	}
	return dst, coverContentType(dst), nil
}

func (s *Service) fetchCover(ctx context.Context, filePath, dst string) error {
	rc, _, err := s.feed.FileStream(ctx, filePath)
	if err != nil {
		return fmt.Errorf("library: open cover stream: %w", err)
	}
	defer rc.Close()

	tmp := dst + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("library: create cover temp: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("library: write cover: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("library: close cover: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("library: finalize cover: %w", err)
	}
	return nil
}

// findCachedCover returns the path of a usable cached cover file for
// fileID, skipping in-flight .tmp files and empty leftovers.
func findCachedCover(dir, fileID string) string {
	matches, err := filepath.Glob(filepath.Join(dir, fileID+".*"))
	if err != nil {
		return ""
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".tmp") {
			continue
		}
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return m
		}
	}
	return ""
}

func coverContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
