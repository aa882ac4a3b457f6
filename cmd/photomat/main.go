// Package main provides the photomat binary entry point that runs one
// kiosk station: camera capture, local photo storage, QR delivery, and the
// HTTP surfaces for both the kiosk UI and visitor downloads.
//
// The application flow:
//  1. Load configuration from defaults and environment variables.
//  2. Open the SQLite index and blob storage under the data directory.
//  3. Wire the camera stream, encoder, service, capture machine, and session manager.
//  4. Start the janitor and metrics flush loops.
//  5. Serve HTTP until the process is signalled.
package main

import (
	"context"
	"database/sql"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/photomat/photomat/internal/app"
	"github.com/photomat/photomat/internal/camera"
	"github.com/photomat/photomat/internal/capture"
	"github.com/photomat/photomat/internal/config"
	"github.com/photomat/photomat/internal/delivery"
	"github.com/photomat/photomat/internal/domain"
	"github.com/photomat/photomat/internal/encoder"
	"github.com/photomat/photomat/internal/httpx"
	"github.com/photomat/photomat/internal/janitor"
	"github.com/photomat/photomat/internal/metrics"
	"github.com/photomat/photomat/internal/session"
	"github.com/photomat/photomat/internal/store"
	"github.com/photomat/photomat/internal/store/filesystem"
	"github.com/photomat/photomat/internal/store/sqlite"
	"github.com/photomat/photomat/internal/uplink"
	wembed "github.com/photomat/photomat/web"
)

// inlineThreshold is the payload size below which stills live in the
// SQLite row instead of a blob file. Encoded photos are nearly always
// external; the inline path serves thumbnails and tests.
const inlineThreshold = 4 * 1024

// realClock implements app.Clock using time.Now.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(2)
	}
	return cfg
}

// ensureDataDir creates the data directory and its blobs subdirectory if
// missing and returns both paths.
func ensureDataDir(dir string) (string, string, error) {
	if st, err := os.Stat(dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", "", err
		}
		if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
			return "", "", mkErr
		}
	} else if !st.IsDir() {
		return "", "", errors.New("data path is not a directory")
	}
	blobDir := filepath.Join(dir, "blobs")
	if err := os.MkdirAll(blobDir, 0o700); err != nil {
		return "", "", err
	}
	return dir, blobDir, nil
}

func openDatabase(dataDir string) (*sql.DB, *sqlite.Index, error) {
	dbPath := filepath.Join(dataDir, "photomat.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, nil, err
	}
	idx, err := sqlite.New(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, idx, nil
}

type templates struct{ index, download *template.Template }

func loadTemplates() (*templates, error) {
	out := &templates{}
	pages := []struct {
		name string
		file string
		dst  **template.Template
	}{
		{"index", "index.tmpl.html", &out.index},
		{"download", "download.tmpl.html", &out.download},
	}
	for _, p := range pages {
		b, err := fs.ReadFile(wembed.FS, p.file)
		if err != nil {
			return nil, err
		}
		t, err := template.New(p.name).Parse(string(b))
		if err != nil {
			return nil, err
		}
		*p.dst = t
	}
	return out, nil
}

// openCamera opens the frame source at the configured sensor geometry.
// Frames arrive landscape regardless of display orientation; the encoder
// rotates them for a portrait kiosk.
func openCamera(cfg *config.Config) (*camera.Stream, error) {
	return camera.Open(camera.NewTestPattern(cfg.CamWidth, cfg.CamHeight), camera.Config{
		Width:      cfg.CamWidth,
		Height:     cfg.CamHeight,
		FacingUser: true,
	})
}

func buildService(cfg *config.Config, st *store.Store, cam *camera.Stream, enc *encoder.Encoder, clock app.Clock) *app.Service {
	orientation := encoder.Landscape
	if cfg.Portrait {
		orientation = encoder.Portrait
	}
	svc := &app.Service{
		Store:       st,
		Frames:      cam,
		Encoder:     enc,
		Clock:       clock,
		Orientation: orientation,
		RetainFor:   cfg.RetainFor,
		MaxBytes:    cfg.MaxBytes,
		Logger:      slog.Default(),
	}
	if cfg.UplinkURL != "" {
		svc.Uplink = uplink.New(cfg.UplinkURL, cfg.Format.MIMEType(), 30*time.Second)
	}
	return svc
}

// buildKiosk wires the session manager and capture machine together. The
// two reference each other: an ending session cancels or discards the
// in-flight capture, and a completed capture attaches its photo to the
// session. A capture that lands after its session already ended (idle
// timeout firing during the Capturing window) is discarded immediately
// rather than left for the janitor.
func buildKiosk(cfg *config.Config, capturer capture.Capturer, col app.Collector) (*capture.Machine, *session.Manager) {
	var machine *capture.Machine
	sessions := session.New(cfg.IdleTimeout, func(reason string) {
		machine.Cancel()
		if v := machine.Snapshot(); v.State == capture.Reviewing && v.PhotoID != "" {
			if err := machine.Retake(context.Background()); err != nil {
				slog.Warn("discard on session end", "err", err)
			}
		}
	}, slog.Default())
	machine = capture.New(capturer, capture.Config{
		Count:    cfg.Countdown,
		Interval: time.Second,
		Logger:   slog.Default(),
		OnState: func(s capture.State, id domain.PhotoID) {
			if s != capture.Reviewing || id == "" {
				return
			}
			col.Inc(metrics.CounterPhotosCaptured, 1)
			if err := sessions.AttachPhoto(id); err != nil {
				slog.Info("captured after session end, discarding", "photo_id", id)
				if err := machine.Retake(context.Background()); err != nil {
					slog.Warn("discard orphan capture", "photo_id", id, "err", err)
				}
			}
		},
	})
	return machine, sessions
}

func buildHandler(cfg *config.Config, svc *app.Service, machine *capture.Machine, sessions *session.Manager, minter *delivery.Minter, mgr *metrics.Manager, db *sql.DB, blobDir string, tmpls *templates) http.Handler {
	readiness := func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if _, err := os.ReadDir(blobDir); err != nil {
			return err
		}
		return svc.Ready(ctx)
	}
	h := httpx.New(svc, minter, cfg.MaxBytes)
	h.Machine = machine
	h.Sessions = sessions
	h.Metrics = mgr
	h.MIMEType = cfg.Format.MIMEType()
	h.Readiness = readiness
	h.IndexTmpl = httpx.TemplateRenderer{T: tmpls.index}
	h.DownloadTmpl = httpx.TemplateRenderer{T: tmpls.download}
	h.IndexView = httpx.IndexView{
		CountdownSeconds: cfg.Countdown,
		PortraitMode:     cfg.Portrait,
		MirrorPreview:    true,
	}
	h.Assets = http.FS(wembed.FS)
	h.MetricsPage = metrics.Handler(mgr, cfg.MetricsToken)
	return h.Router()
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{Addr: cfg.Addr, Handler: handler, ReadTimeout: 5 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}
}

func run() error {
	cfg := loadConfig()
	dataDir, blobDir, err := ensureDataDir(cfg.DataDir)
	if err != nil {
		return err
	}
	db, idx, err := openDatabase(dataDir)
	if err != nil {
		return err
	}
	defer db.Close()
	blobs, err := filesystem.New(blobDir)
	if err != nil {
		return err
	}
	clock := realClock{}
	st := store.New(idx, blobs, clock, inlineThreshold)

	cam, err := openCamera(cfg)
	if err != nil {
		return err
	}
	defer cam.Close()

	enc := encoder.New(cfg.Format, cfg.Quality, cfg.MirrorStills)
	svc := buildService(cfg, st, cam, enc, clock)

	minter, err := delivery.NewMinter(cfg.BaseURL)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := metrics.New(db, metrics.Config{})
	if err := mgr.InitSchema(ctx); err != nil {
		return err
	}
	mgr.Start(ctx)
	defer mgr.Stop(context.Background())
	svc.Metrics = mgr

	machine, sessions := buildKiosk(cfg, svc, mgr)

	jan := janitor.New(st, mgr, janitor.Config{Interval: time.Minute, Logger: slog.Default()})
	jan.Start(ctx)
	defer jan.Stop()

	tmpls, err := loadTemplates()
	if err != nil {
		return err
	}
	srv := newServer(cfg, buildHandler(cfg, svc, machine, sessions, minter, mgr, db, blobDir, tmpls))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server", "addr", cfg.Addr, "base_url", cfg.BaseURL, "pid", os.Getpid())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
