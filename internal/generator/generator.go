// Package generator runs the certificate pipeline: load the roster, render one
// image per record into a workspace and archive the results.
package generator

import (
	"log/slog"
	"time"

	"certforge/internal/archive"
	"certforge/internal/certificate"
	"certforge/internal/errcode"
	"certforge/internal/roster"
	"certforge/internal/workspace"
)

// ArchiveName is the file name of the zip produced by every run.
const ArchiveName = "certificates.zip"

// Assets locates the two bundled font files.
type Assets struct {
	NameFontPath    string
	DetailsFontPath string
}

// Observer receives pipeline events, typically to update metrics.
type Observer interface {
	CertificateRendered()
	FontFallback()
	RunFinished(status string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) CertificateRendered()              {}
func (nopObserver) FontFallback()                     {}
func (nopObserver) RunFinished(string, time.Duration) {}

// Result describes a successful run.
type Result struct {
	ArchivePath  string
	// Files are the image names inside the archive. Records whose names
	// sanitize identically share one file.
	Files        []string
	Records      int
	FontFallback bool
}

// Generator is safe to share; each call to Generate is an independent run.
type Generator struct {
	assets   Assets
	logger   *slog.Logger
	observer Observer
}

// New builds a Generator. A nil logger uses slog.Default and a nil observer
// discards events.
func New(assets Assets, logger *slog.Logger, observer Observer) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Generator{assets: assets, logger: logger, observer: observer}
}

// Generate renders one certificate per roster record into ws and archives them.
// The workspace is owned for the whole run and cleared before rendering. On
// failure the returned error is an *errcode.DataFormatError, *errcode.RenderError
// or *errcode.IOError; images written before the failure stay on disk and no
// archive is produced.
func (g *Generator) Generate(ws *workspace.Workspace, spreadsheetPath, templatePath string) (_ *Result, retErr error) {
	start := time.Now()
	log := g.logger.With(slog.String("workspace", ws.Dir()))
	defer func() {
		status := "completed"
		if retErr != nil {
			status = "error"
			log.Error("certificate generation failed", slog.Any("error", retErr))
		}
		g.observer.RunFinished(status, time.Since(start))
	}()

	records, err := roster.Load(spreadsheetPath)
	if err != nil {
		return nil, err
	}
	log.Info("roster loaded", slog.Int("records", len(records)))

	tpl, err := certificate.LoadTemplate(templatePath)
	if err != nil {
		return nil, err
	}
	bounds := tpl.Bounds()
	log.Info("template image loaded", slog.Int("width", bounds.Dx()), slog.Int("height", bounds.Dy()))

	fonts := certificate.LoadFonts(g.assets.NameFontPath, g.assets.DetailsFontPath)
	if fonts.Fallback {
		log.Warn("font loading failed, using default font", slog.Any("error", fonts.Reason))
		g.observer.FontFallback()
	}

	ws.Acquire()
	defer ws.Release()

	if err := ws.Clear(); err != nil {
		return nil, &errcode.IOError{Op: "clear output directory", Path: ws.Dir(), Err: err}
	}

	renderer := certificate.NewRenderer(fonts)
	for i, rec := range records {
		img := renderer.Render(tpl, rec)
		path := ws.Path(certificate.FileName(rec.Name))
		if err := renderer.Save(img, path); err != nil {
			return nil, err
		}
		g.observer.CertificateRendered()
		log.Debug("saved certificate",
			slog.Int("index", i+1),
			slog.String("name", rec.Name),
			slog.String("course", rec.Course),
			slog.String("position", rec.Position),
			slog.String("event", rec.Event),
			slog.String("path", path),
		)
	}

	archivePath := ws.Path(ArchiveName)
	files, err := archive.Create(ws.Dir(), archivePath, ".png")
	if err != nil {
		return nil, &errcode.IOError{Op: "create archive", Path: archivePath, Err: err}
	}
	log.Info("created zip file",
		slog.String("path", archivePath),
		slog.Int("entries", len(files)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		ArchivePath:  archivePath,
		Files:        files,
		Records:      len(records),
		FontFallback: fonts.Fallback,
	}, nil
}
