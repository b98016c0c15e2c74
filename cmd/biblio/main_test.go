package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/hazyhaar/biblio/internal/config"
	"github.com/hazyhaar/biblio/library"
	"github.com/hazyhaar/biblio/internal/store"
	_ "modernc.org/sqlite"
)

func testRouter(t *testing.T, adminKey string) (http.Handler, *store.Store) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := store.ApplySchema(db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.NewStore(db)
	svc := library.New(st, nil, &library.Config{CoverCacheDir: t.TempDir()},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	cfg := &config.Config{AdminKey: adminKey, Site: config.SiteConfig{SiteName: "Test", AppIcon: "/i.png"}}
	return router(svc, cfg), st
}

func seedRow(t *testing.T, st *store.Store) *store.Book {
	t.Helper()
	b, err := st.Upsert(context.Background(), &store.Book{
		SourceChatID: -1, SourceMessageID: 1,
		FileID: "f", FileName: "dune.epub", Title: "Dune", Author: "Frank Herbert", Lang: "en",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return b
}

func TestRouter_HealthAndConfig(t *testing.T) {
	// WHAT: Health answers ok; config serves the branding with icon fallbacks.
	// WHY: Both are unauthenticated probes the frontend boots from.
	r, _ := testRouter(t, "")
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("health: resp=%v err=%v", resp, err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	defer resp.Body.Close()
	var site struct {
		SiteName  string `json:"site_name"`
		AppleIcon string `json:"apple_icon"`
	}
	json.NewDecoder(resp.Body).Decode(&site)
	if site.SiteName != "Test" || site.AppleIcon != "/i.png" {
		t.Errorf("site config: %+v", site)
	}
}

func TestRouter_ListAndGet(t *testing.T) {
	// WHAT: /api/books returns {total, items}; /api/books/{id} returns the
	// row or 404.
	// WHY: Primary read surface for the frontend.
	r, st := testRouter(t, "")
	b := seedRow(t, st)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/books?lang=en")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	var list struct {
		Total int          `json:"total"`
		Items []store.Book `json:"items"`
	}
	json.NewDecoder(resp.Body).Decode(&list)
	if list.Total != 1 || len(list.Items) != 1 || list.Items[0].Title != "Dune" {
		t.Errorf("list: %+v", list)
	}

	resp, _ = http.Get(srv.URL + "/api/books/" + itoa(b.ID))
	if resp.StatusCode != 200 {
		t.Errorf("get: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(srv.URL + "/api/books/9999")
	if resp.StatusCode != 404 {
		t.Errorf("missing id: status %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRouter_AdminGate(t *testing.T) {
	// WHAT: PATCH/DELETE reject a wrong key with 403 and pass with the
	// right one; an empty configured key leaves the gate open.
	// WHY: The admin key is the only write protection on the HTTP surface.
	r, st := testRouter(t, "sekret")
	b := seedRow(t, st)
	srv := httptest.NewServer(r)
	defer srv.Close()

	patch := func(key string) int {
		req, _ := http.NewRequest(http.MethodPatch,
			srv.URL+"/api/books/"+itoa(b.ID)+"?key="+key,
			strings.NewReader(`{"title":"Renamed"}`))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("patch: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := patch("wrong"); code != 403 {
		t.Errorf("wrong key: status %d, want 403", code)
	}
	if code := patch("sekret"); code != 200 {
		t.Errorf("right key: status %d, want 200", code)
	}

	row, _ := st.Get(context.Background(), b.ID)
	if row.Title != "Renamed" {
		t.Errorf("title: got %q", row.Title)
	}

	// Open gate when no key configured.
	rOpen, stOpen := testRouter(t, "")
	bOpen := seedRow(t, stOpen)
	srvOpen := httptest.NewServer(rOpen)
	defer srvOpen.Close()
	req, _ := http.NewRequest(http.MethodDelete, srvOpen.URL+"/api/books/"+itoa(bOpen.ID), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("open gate delete: status %d, want 200", resp.StatusCode)
	}
}

func TestRouter_PatchErrors(t *testing.T) {
	// WHAT: Empty patch -> 400; unknown id -> 404.
	// WHY: Clients need to tell validation misses from missing rows.
	r, st := testRouter(t, "")
	b := seedRow(t, st)
	srv := httptest.NewServer(r)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/books/"+itoa(b.ID), strings.NewReader(`{}`))
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("empty patch: status %d, want 400", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodPatch, srv.URL+"/api/books/9999", strings.NewReader(`{"title":"X"}`))
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("unknown id: status %d, want 404", resp.StatusCode)
	}
}

func TestRouter_SyncWithoutFeed(t *testing.T) {
	// WHAT: POST /api/sync without a configured feed answers 400.
	// WHY: Read-only deployments must answer cleanly, not 500.
	r, _ := testRouter(t, "")
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sync", "application/json", nil)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestContentDisposition(t *testing.T) {
	// WHAT: ASCII names pass through; non-ASCII names get an ASCII fallback
	// plus the RFC 5987 encoded original; header-breaking characters are
	// stripped.
	// WHY: Raw non-ASCII in filename="" breaks header encoding on some
	// stacks and loses the name on others.
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"ascii", "dune.epub", `attachment; filename="dune.epub"; filename*=UTF-8''dune.epub`},
		{"empty", "", `attachment; filename="download"; filename*=UTF-8''download`},
		{"path stripped", "../secret/dune.epub", `attachment; filename="dune.epub"; filename*=UTF-8''dune.epub`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := contentDisposition(tc.in); got != tc.want {
				t.Errorf("got  %q\nwant %q", got, tc.want)
			}
		})
	}

	// Non-ASCII: fallback is ASCII-only, the encoded form carries the name.
	got := contentDisposition("三体.epub")
	if !strings.Contains(got, `filename=".epub"`) {
		t.Errorf("ascii fallback: %q", got)
	}
	if !strings.Contains(got, "filename*=UTF-8''%E4%B8%89%E4%BD%93.epub") {
		t.Errorf("utf-8 form: %q", got)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
