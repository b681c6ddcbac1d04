package contract

import (
	"context"
	"fmt"

	"github.com/roach88/pagecheck/internal/driver"
	"github.com/roach88/pagecheck/internal/outcome"
)

// Surface is the mechanism through which the application shows an error.
type Surface interface {
	Kind() string
	// Reset forgets anything shown before the scenario started.
	Reset(ctx context.Context, d driver.Driver) error
	Read(ctx context.Context, d driver.Driver) (outcome.Reading, error)
}

const (
	SurfaceDialog  = "dialog"
	SurfaceElement = "element"
)

// DialogSurface reads native alert() dialogs.
type DialogSurface struct{}

func (DialogSurface) Kind() string { return SurfaceDialog }

func (DialogSurface) Reset(ctx context.Context, d driver.Driver) error {
	dr, ok := d.(driver.DialogReader)
	if !ok {
		return driver.NewFault("dialog", "", driver.ErrUnsupported)
	}
	return dr.ClearDialog(ctx)
}

func (DialogSurface) Read(ctx context.Context, d driver.Driver) (outcome.Reading, error) {
	dr, ok := d.(driver.DialogReader)
	if !ok {
		return outcome.Reading{}, driver.NewFault("dialog", "", driver.ErrUnsupported)
	}
	text, ok, err := dr.LastDialog(ctx)
	if err != nil {
		return outcome.Reading{}, driver.NewFault("dialog", "", err)
	}
	return outcome.Reading{Text: text, Present: ok}, nil
}

// ElementSurface reads the text of a DOM element such as an alert banner.
type ElementSurface struct {
	Selector string
}

func (ElementSurface) Kind() string { return SurfaceElement }

func (ElementSurface) Reset(context.Context, driver.Driver) error { return nil }

func (s ElementSurface) Read(ctx context.Context, d driver.Driver) (outcome.Reading, error) {
	text, ok, err := d.ReadText(ctx, s.Selector)
	if err != nil {
		return outcome.Reading{}, driver.NewFault("read", s.Selector, err)
	}
	return outcome.Reading{Text: text, Present: ok}, nil
}

// NewSurface builds a surface from its configured kind.
func NewSurface(kind, selector string) (Surface, error) {
	switch kind {
	case SurfaceDialog:
		return DialogSurface{}, nil
	case SurfaceElement:
		if selector == "" {
			return nil, fmt.Errorf("element surface requires a selector")
		}
		return ElementSurface{Selector: selector}, nil
	default:
		return nil, fmt.Errorf("unknown surface kind %q", kind)
	}
}
