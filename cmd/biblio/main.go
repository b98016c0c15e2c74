// Command biblio runs the channel-backed library service: the ingestion
// poller, the cleanup sweeper, the HTTP API with the static frontend, and an
// optional MCP stdio surface.
package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hazyhaar/biblio/dbopen"
	"github.com/hazyhaar/biblio/internal/config"
	"github.com/hazyhaar/biblio/library"
	"github.com/hazyhaar/biblio/internal/store"
	"github.com/hazyhaar/biblio/telegram"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	if !cfg.PollerEnabled() {
		slog.Warn("TG_BOT_TOKEN or TG_BOOK_CHAT_ID not set; ingestion disabled, catalog is read-only")
	}
	if cfg.CleanupInterval > 0 && cfg.MaintChatID == 0 {
		slog.Warn("TG_MAINT_CHAT_ID not set; cleanup disabled")
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Catalog DB.
	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("catalog db", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := store.ApplySchema(db); err != nil {
		slog.Error("apply schema", "error", err)
		os.Exit(1)
	}
	st := store.NewStore(db)

	// Feed client.
	var feed library.Feed
	if cfg.BotToken != "" {
		feed = telegram.New(cfg.BotToken)
	}

	svc := library.New(st, feed, &library.Config{
		BookChatID:      cfg.BookChatID,
		MaintChatID:     cfg.MaintChatID,
		PollInterval:    cfg.PollInterval,
		PollTimeout:     cfg.PollTimeout,
		CleanupInterval: cfg.CleanupInterval,
		CoverCacheDir:   cfg.CoverCacheDir,
	}, logger)
	svc.Start(ctx)

	// Optional MCP stdio surface.
	if cfg.MCPTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "biblio", Version: "1.0.0"}, nil)
		svc.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("mcp stdio", "error", err)
			}
		}()
	}

	r := router(svc, cfg)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Minute, // downloads stream large files
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		slog.Error("server", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func router(svc *library.Service, cfg *config.Config) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	admin := adminGate(cfg.AdminKey)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/api/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, cfg.Site.Resolved())
	})

	r.Get("/api/books", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		books, total, err := svc.Search(r.Context(), store.Query{
			Text:     q.Get("query"),
			Lang:     q.Get("lang"),
			Category: q.Get("category"),
			Limit:    queryInt(r, "limit", 60),
			Offset:   queryInt(r, "offset", 0),
		})
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]any{"total": total, "items": books})
	})

	r.Get("/api/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		b, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, 200, b)
	})

	r.Get("/api/books/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		b, rc, size, err := svc.Download(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, library.ErrNotFound):
				writeError(w, 404, err)
			case errors.Is(err, library.ErrFeedDisabled):
				writeError(w, 500, err)
			default:
				writeError(w, 502, err)
			}
			return
		}
		defer rc.Close()

		mediaType := b.MimeType
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", mediaType)
		w.Header().Set("Content-Disposition", contentDisposition(b.FileName))
		if size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		}
		// Incremental copy; the body is never buffered in full.
		if _, err := io.Copy(w, rc); err != nil {
			slog.Debug("download copy aborted", "book_id", id, "error", err)
		}
	})

	r.Get("/api/books/{id}/cover", func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		path, ctype, err := svc.Cover(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, library.ErrNotFound):
				writeError(w, 404, err)
			case errors.Is(err, library.ErrFeedDisabled):
				writeError(w, 500, err)
			default:
				writeError(w, 502, err)
			}
			return
		}
		w.Header().Set("Content-Type", ctype)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFile(w, r, path)
	})

	r.With(admin).Patch("/api/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		var patch library.BookPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, 400, fmt.Errorf("invalid body: %w", err))
			return
		}
		b, err := svc.Update(r.Context(), id, patch)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, 200, b)
	})

	r.With(admin).Delete("/api/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		alsoTG := r.URL.Query().Get("also_tg") == "true"
		removed, err := svc.Delete(r.Context(), id, alsoTG)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, 200, map[string]bool{"removed": removed})
	})

	r.Post("/api/sync", func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.SyncOnce(r.Context())
		if err != nil {
			if errors.Is(err, library.ErrFeedDisabled) {
				writeError(w, 400, err)
				return
			}
			writeError(w, 502, err)
			return
		}
		writeJSON(w, 200, map[string]any{"status": "ok", "processed": n})
	})

	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, stats)
	})

	// Static frontend, when built. API routes above take precedence.
	if dir := cfg.FrontendDist; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			fs := http.FileServer(http.Dir(dir))
			r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
				path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
				if info, err := os.Stat(path); err != nil || info.IsDir() {
					http.ServeFile(w, r, filepath.Join(dir, "index.html"))
					return
				}
				fs.ServeHTTP(w, r)
			})
		}
	}

	return r
}

// adminGate rejects requests whose "key" query parameter does not match the
// configured admin key. An empty configured key leaves the gate open.
func adminGate(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" {
				got := r.URL.Query().Get("key")
				if subtle.ConstantTimeCompare([]byte(got), []byte(adminKey)) != 1 {
					writeJSON(w, 403, map[string]string{"error": "forbidden"})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

var asciiFilenameFallback = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)

// contentDisposition builds an RFC 6266 / RFC 5987 attachment header: an
// ASCII fallback filename plus the percent-encoded UTF-8 original, so
// non-ASCII names survive header encoding on every client.
func contentDisposition(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "download"
	}

	fallback := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] < 0x80 {
			fallback = append(fallback, name[i])
		}
	}
	ascii := asciiFilenameFallback.ReplaceAllString(string(fallback), "_")
	ascii = strings.TrimSpace(ascii)
	if ascii == "" {
		ascii = "download"
	}

	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
		ascii, percentEncode(name))
}

// percentEncode escapes everything but RFC 3986 unreserved characters, as
// RFC 5987 requires for the filename* parameter.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		writeError(w, 404, err)
	case errors.Is(err, library.ErrNoFields):
		writeError(w, 400, err)
	case errors.Is(err, library.ErrFeedDisabled):
		writeError(w, 400, err)
	default:
		writeError(w, 500, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}
