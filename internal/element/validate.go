package element

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidElement = errors.New("invalid element")

// Validate checks the model constraints an element must satisfy to live in a
// board: a known type, constrained style values, and a non-empty path for
// freedraw.
func Validate(e Element) error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidElement)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %s: unknown type %q", ErrInvalidElement, e.ID, e.Type)
	}
	if err := validateStyle(e.StrokeWidth, e.Roughness, e.Opacity, e.FillStyle, e.StrokeStyle, e.FontFamily); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidElement, e.ID, err)
	}
	if e.Type == TypeFreedraw && len(e.Points) == 0 {
		return fmt.Errorf("%w: %s: freedraw needs at least one point", ErrInvalidElement, e.ID)
	}
	return nil
}

// ValidatePatch checks the constrained style fields p sets. Unset fields
// are not checked.
func ValidatePatch(p Patch) error {
	var (
		width     = DefaultStrokeWidth
		roughness = DefaultRoughness
		opacity   = DefaultOpacity
		fill      = DefaultFillStyle
		stroke    = DefaultStrokeStyle
		font      FontFamily
	)
	if p.StrokeWidth != nil {
		width = *p.StrokeWidth
	}
	if p.Roughness != nil {
		roughness = *p.Roughness
	}
	if p.Opacity != nil {
		opacity = *p.Opacity
	}
	if p.FillStyle != nil {
		fill = *p.FillStyle
	}
	if p.StrokeStyle != nil {
		stroke = *p.StrokeStyle
	}
	if p.FontFamily != nil {
		font = *p.FontFamily
	}
	if err := validateStyle(width, roughness, opacity, fill, stroke, font); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidElement, err)
	}
	return nil
}

func validateStyle(width, roughness int, opacity float64, fill FillStyle, stroke StrokeStyle, font FontFamily) error {
	if !slices.Contains(StrokeWidths, width) {
		return fmt.Errorf("strokeWidth %d not in %v", width, StrokeWidths)
	}
	if !slices.Contains(Roughnesses, roughness) {
		return fmt.Errorf("roughness %d not in %v", roughness, Roughnesses)
	}
	if opacity < 0 || opacity > 100 {
		return fmt.Errorf("opacity %v out of range [0, 100]", opacity)
	}
	switch fill {
	case FillSolid, FillHachure, FillCrossHatch:
	default:
		return fmt.Errorf("unknown fillStyle %q", fill)
	}
	switch stroke {
	case StrokeSolid, StrokeDashed, StrokeDotted:
	default:
		return fmt.Errorf("unknown strokeStyle %q", stroke)
	}
	switch font {
	case "", FontHandDrawn, FontNormal, FontCode:
	default:
		return fmt.Errorf("unknown fontFamily %q", font)
	}
	return nil
}

// ValidateAll validates every element and rejects duplicate ids.
func ValidateAll(elements []Element) error {
	seen := make(map[string]struct{}, len(elements))
	for _, e := range elements {
		if err := Validate(e); err != nil {
			return err
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidElement, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}
