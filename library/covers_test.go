package library

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/biblio/internal/store"
	"github.com/hazyhaar/biblio/telegram"
)

func seedCoverBook(t *testing.T, st *store.Store) *store.Book {
	t.Helper()
	b, err := st.Upsert(context.Background(), &store.Book{
		SourceChatID:    testChatID,
		SourceMessageID: 1,
		FileID:          "file-abc",
		FileName:        "dune.epub",
		CoverFileID:     "thumb-abc",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return b
}

func coverFeed(streams *int) *fakeFeed {
	return &fakeFeed{
		getFile: func(fileID string) (*telegram.File, error) {
			return &telegram.File{FileID: fileID, FilePath: "thumbnails/thumb.jpg"}, nil
		},
		fileStream: func(filePath string) (io.ReadCloser, int64, error) {
			*streams++
			return io.NopCloser(strings.NewReader("jpeg bytes")), 10, nil
		},
	}
}

func TestCover_FetchesAndCaches(t *testing.T) {
	// WHAT: First request streams from the feed; the second is served from
	// the disk cache without another feed call.
	// WHY: Covers render on every catalog page; refetching would hammer
	// the feed.
	streams := 0
	feed := coverFeed(&streams)
	svc, st := testService(t, feed)
	ctx := context.Background()
	b := seedCoverBook(t, st)

	path1, ctype, err := svc.Cover(ctx, b.ID)
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	if ctype != "image/jpeg" {
		t.Errorf("content type: got %q", ctype)
	}
	data, err := os.ReadFile(path1)
	if err != nil || string(data) != "jpeg bytes" {
		t.Fatalf("cached file: data=%q err=%v", data, err)
	}

	path2, _, err := svc.Cover(ctx, b.ID)
	if err != nil {
		t.Fatalf("second cover: %v", err)
	}
	if path2 != path1 {
		t.Errorf("paths differ: %q vs %q", path1, path2)
	}
	if streams != 1 {
		t.Errorf("feed streams: got %d, want 1", streams)
	}
}

func TestCover_IgnoresTmpAndEmptyFiles(t *testing.T) {
	// WHAT: Leftover .tmp files and zero-byte cache entries are not served;
	// the cover is fetched again.
	// WHY: A crash mid-download must not poison the cache.
	streams := 0
	feed := coverFeed(&streams)
	svc, st := testService(t, feed)
	ctx := context.Background()
	b := seedCoverBook(t, st)

	dir := svc.config.CoverCacheDir
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "thumb-abc.jpg.tmp"), []byte("partial"), 0o644)
	os.WriteFile(filepath.Join(dir, "thumb-abc.png"), nil, 0o644)

	path, _, err := svc.Cover(ctx, b.ID)
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	if strings.HasSuffix(path, ".tmp") {
		t.Errorf("served a tmp file: %q", path)
	}
	if streams != 1 {
		t.Errorf("feed streams: got %d, want 1 (stale entries skipped)", streams)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "jpeg bytes" {
		t.Errorf("served bytes: got %q", data)
	}
}

func TestCover_NoCover(t *testing.T) {
	// WHAT: A book without a cover handle returns ErrNotFound.
	// WHY: The HTTP layer answers 404, letting the UI fall back to the
	// default cover.
	svc, st := testService(t, &fakeFeed{})
	ctx := context.Background()
	b, err := st.Upsert(ctx, &store.Book{
		SourceChatID: testChatID, SourceMessageID: 2, FileID: "f", FileName: "x.epub",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, _, err := svc.Cover(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error: got %v, want ErrNotFound", err)
	}
}
