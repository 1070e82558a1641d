package style

import (
	"errors"
	"fmt"

	"github.com/joeblew999/plat-map/internal/feature"
)

// ErrInvalidOverride is returned for a malformed style override.
var ErrInvalidOverride = errors.New("invalid style override")

// Override is a style configuration merged over a Table. It is either
// Uniform or PerKind.
type Override interface {
	validate() error
	apply(t *Table)
}

// Uniform sets the plain style of every kind. Selected styles are left as
// they are.
type Uniform Func

func (u Uniform) validate() error {
	if u == nil {
		return fmt.Errorf("%w: nil uniform style", ErrInvalidOverride)
	}
	return nil
}

func (u Uniform) apply(t *Table) {
	t.Point.Plain = Func(u)
	t.Cluster.Plain = Func(u)
}

// PerKind overrides individual variants. Nil fields keep their current
// value, so a partial override never drops other entries.
type PerKind map[feature.Kind]Variant

func (p PerKind) validate() error {
	for k := range p {
		if !k.Valid() {
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidOverride, k)
		}
	}
	return nil
}

func (p PerKind) apply(t *Table) {
	for k, v := range p {
		dst := t.variant(k)
		if v.Plain != nil {
			dst.Plain = v.Plain
		}
		if v.Selected != nil {
			dst.Selected = v.Selected
		}
	}
}

// Merge validates o and applies it onto t. A nil override is a no-op.
func Merge(t *Table, o Override) error {
	if o == nil {
		return nil
	}
	if err := o.validate(); err != nil {
		return err
	}
	o.apply(t)
	return nil
}
