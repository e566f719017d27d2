// Package testutil builds roster workbooks and template images for tests.
package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/unidoc/unioffice/spreadsheet"
)

// Header is the standard roster header row.
var Header = []string{"Name", "Course", "Position", "Event"}

// WriteWorkbook saves rows as the first sheet of a new xlsx file in dir and
// returns its path. Empty strings leave the cell out entirely.
func WriteWorkbook(t *testing.T, dir, name string, rows ...[]string) string {
	t.Helper()

	wb := spreadsheet.New()
	sheet := wb.AddSheet()
	for _, values := range rows {
		row := sheet.AddRow()
		for _, v := range values {
			cell := row.AddCell()
			if v != "" {
				cell.SetString(v)
			}
		}
	}

	path := filepath.Join(dir, name)
	if err := wb.SaveToFile(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// WriteTemplate saves a plain white PNG of the given size and returns its path.
func WriteTemplate(t *testing.T, dir string, width, height int) string {
	t.Helper()

	img := imaging.New(width, height, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	path := filepath.Join(dir, "template.png")
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save template: %v", err)
	}
	return path
}
