package certificate

import (
	"image"
	"image/color"
)

// Anchor controls how a string is positioned relative to its anchor point.
type Anchor int

const (
	// AnchorMiddle centers the text horizontally and vertically on the point.
	AnchorMiddle Anchor = iota
	// AnchorLeftBaseline starts the text at the point with its baseline on it.
	AnchorLeftBaseline
)

// FontRole selects which of the two loaded faces draws a field.
type FontRole int

const (
	RoleName FontRole = iota
	RoleDetails
)

// Field is one text slot on the template.
type Field struct {
	At     image.Point
	Anchor Anchor
	Role   FontRole
}

// Layout places the four record fields. Coordinates are in template pixels and
// are calibrated against the bundled certificate template.
type Layout struct {
	Name     Field
	Course   Field
	Position Field
	Event    Field
	Color    color.Color
}

// DefaultLayout is the only layout; it is not derived from input.
var DefaultLayout = Layout{
	Name:     Field{At: image.Pt(750, 570), Anchor: AnchorMiddle, Role: RoleName},
	Course:   Field{At: image.Pt(1560, 580), Anchor: AnchorMiddle, Role: RoleDetails},
	Position: Field{At: image.Pt(980, 670), Anchor: AnchorLeftBaseline, Role: RoleDetails},
	Event:    Field{At: image.Pt(1590, 680), Anchor: AnchorLeftBaseline, Role: RoleDetails},
	Color:    color.Black,
}
