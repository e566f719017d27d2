package certificate

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// Point sizes of the two faces.
const (
	NameFontSize    = 130
	DetailsFontSize = 50
)

// Fonts holds the faces used for the two roles. Fallback reports whether the
// bundled assets could not be used and the built-in face stands in for both.
type Fonts struct {
	Name     font.Face
	Details  font.Face
	Fallback bool
	// Reason is set when Fallback is true.
	Reason error
}

// Face returns the face assigned to role.
func (f Fonts) Face(role FontRole) font.Face {
	if role == RoleName {
		return f.Name
	}
	return f.Details
}

// LoadFonts parses the two TrueType assets. If either cannot be loaded the
// basic built-in face is used for both roles; this never fails.
func LoadFonts(namePath, detailsPath string) Fonts {
	name, err := loadFace(namePath, NameFontSize)
	if err != nil {
		return fallbackFonts(err)
	}
	details, err := loadFace(detailsPath, DetailsFontSize)
	if err != nil {
		return fallbackFonts(err)
	}
	return Fonts{Name: name, Details: details}
}

func fallbackFonts(reason error) Fonts {
	return Fonts{
		Name:     basicfont.Face7x13,
		Details:  basicfont.Face7x13,
		Fallback: true,
		Reason:   reason,
	}
}

func loadFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %q: %w", path, err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", path, err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build face for %q: %w", path, err)
	}
	return face, nil
}
