// Package certificate composites roster records onto the template image.
package certificate

import (
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"certforge/internal/errcode"
	"certforge/internal/roster"
)

// FileSuffix is appended to every sanitized recipient name.
const FileSuffix = "_certificate.png"

// LoadTemplate decodes the background image. The template is never modified.
func LoadTemplate(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, &errcode.RenderError{Msg: "Error loading template image", Err: err}
	}
	return img, nil
}

// FileName derives the output file name for a recipient: spaces become
// underscores and periods are dropped.
func FileName(name string) string {
	safe := strings.ReplaceAll(name, " ", "_")
	safe = strings.ReplaceAll(safe, ".", "")
	return safe + FileSuffix
}

// Renderer draws records with a fixed layout and font set.
type Renderer struct {
	layout Layout
	fonts  Fonts
}

// NewRenderer returns a Renderer using DefaultLayout.
func NewRenderer(fonts Fonts) *Renderer {
	return &Renderer{layout: DefaultLayout, fonts: fonts}
}

// Render returns a fresh copy of tpl with the record's four fields drawn on it.
func (r *Renderer) Render(tpl image.Image, rec roster.Record) *image.NRGBA {
	dst := imaging.Clone(tpl)
	src := image.NewUniform(r.layout.Color)

	r.drawField(dst, src, r.layout.Name, rec.Name)
	r.drawField(dst, src, r.layout.Course, rec.Course)
	r.drawField(dst, src, r.layout.Position, rec.Position)
	r.drawField(dst, src, r.layout.Event, rec.Event)
	return dst
}

// Save writes img as PNG to path.
func (r *Renderer) Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return &errcode.IOError{Op: "save certificate", Path: path, Err: err}
	}
	return nil
}

func (r *Renderer) drawField(dst *image.NRGBA, src image.Image, field Field, text string) {
	face := r.fonts.Face(field.Role)
	d := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot:  anchorDot(face, field, text),
	}
	d.DrawString(text)
}

// anchorDot converts an anchor point into the drawer's baseline origin.
func anchorDot(face font.Face, field Field, text string) fixed.Point26_6 {
	dot := fixed.P(field.At.X, field.At.Y)
	if field.Anchor == AnchorLeftBaseline {
		return dot
	}

	// middle: horizontal center of the advance, vertical center between
	// ascender and descender
	width := font.MeasureString(face, text)
	m := face.Metrics()
	dot.X -= width / 2
	dot.Y += (m.Ascent - m.Descent) / 2
	return dot
}
