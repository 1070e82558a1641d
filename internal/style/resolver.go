package style

import "github.com/joeblew999/plat-map/internal/feature"

// Resolver picks and runs the style function for a feature. It is not safe
// for concurrent use; the owning layer serializes calls.
type Resolver struct {
	table Table
}

// NewResolver merges override over the built-in defaults. A nil override
// keeps the defaults.
func NewResolver(override Override) (*Resolver, error) {
	r := &Resolver{table: Defaults()}
	if err := Merge(&r.table, override); err != nil {
		return nil, err
	}
	return r, nil
}

// Resolve returns the style of f at the given resolution.
func (r *Resolver) Resolve(f *feature.Feature, resolution float64) Style {
	return r.table.Lookup(feature.KindOf(f), StateOf(f))(f, resolution)
}

// SetStyles merges override onto the live table. Entries it does not name
// are kept.
func (r *Resolver) SetStyles(override Override) error {
	next := r.table
	if err := Merge(&next, override); err != nil {
		return err
	}
	r.table = next
	return nil
}

// Table returns a copy of the current table.
func (r *Resolver) Table() Table {
	return r.table
}
