package store

import (
	"errors"
	"fmt"

	"github.com/freeflow/freeflow/backend-go/internal/element"
)

var ErrInvalidStyle = errors.New("invalid style")

// DefaultPatch returns the current default style as element overrides, for
// creating an element in the active style.
func (s *Store) DefaultPatch() element.Patch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.style.Patch()
}

// setStyle updates the default style and, when exactly one element is
// selected, applies patch to that element too. textOnly restricts the
// element update to text elements (font settings). A patch carrying an
// out-of-range value changes nothing.
func (s *Store) setStyle(apply func(*Style), patch element.Patch, textOnly bool) (State, error) {
	if err := element.ValidatePatch(patch); err != nil {
		return s.State(), fmt.Errorf("%w: %w", ErrInvalidStyle, err)
	}

	return s.commit(func() {
		apply(&s.style)

		if len(s.selected) != 1 {
			return
		}
		i := s.indexLocked(s.selected[0])
		if i < 0 {
			return
		}
		if textOnly && s.elements[i].Type != element.TypeText {
			return
		}
		s.elements[i] = patch.Apply(s.elements[i])
	}), nil
}

func (s *Store) SetStrokeColor(color string) (State, error) {
	return s.setStyle(func(st *Style) { st.StrokeColor = color },
		element.Patch{StrokeColor: &color}, false)
}

func (s *Store) SetBackgroundColor(color string) (State, error) {
	return s.setStyle(func(st *Style) { st.BackgroundColor = color },
		element.Patch{BackgroundColor: &color}, false)
}

func (s *Store) SetFillStyle(fill element.FillStyle) (State, error) {
	return s.setStyle(func(st *Style) { st.FillStyle = fill },
		element.Patch{FillStyle: &fill}, false)
}

// SetStrokeWidth accepts only the widths in element.StrokeWidths.
func (s *Store) SetStrokeWidth(width int) (State, error) {
	return s.setStyle(func(st *Style) { st.StrokeWidth = width },
		element.Patch{StrokeWidth: &width}, false)
}

func (s *Store) SetStrokeStyle(stroke element.StrokeStyle) (State, error) {
	return s.setStyle(func(st *Style) { st.StrokeStyle = stroke },
		element.Patch{StrokeStyle: &stroke}, false)
}

// SetRoughness accepts only the levels in element.Roughnesses.
func (s *Store) SetRoughness(roughness int) (State, error) {
	return s.setStyle(func(st *Style) { st.Roughness = roughness },
		element.Patch{Roughness: &roughness}, false)
}

// SetOpacity accepts 0 to 100.
func (s *Store) SetOpacity(opacity float64) (State, error) {
	return s.setStyle(func(st *Style) { st.Opacity = opacity },
		element.Patch{Opacity: &opacity}, false)
}

func (s *Store) SetFontSize(size float64) (State, error) {
	return s.setStyle(func(st *Style) { st.FontSize = size },
		element.Patch{FontSize: &size}, true)
}

func (s *Store) SetFontFamily(family element.FontFamily) (State, error) {
	return s.setStyle(func(st *Style) { st.FontFamily = family },
		element.Patch{FontFamily: &family}, true)
}
