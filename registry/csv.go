package registry

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// Seed is one row of a CSV manifest used to bulk-register entries that have
// no validate/update/print callbacks of their own — useful for seeding a
// registry in tooling and tests without writing Go for every field. Entries
// that need behavior still register directly with Registry.Register.
type Seed struct {
	Label        string `csv:"label"`
	DefaultValue string `csv:"default_value"`
	Comment      string `csv:"comment"`
}

// LoadSeedsFromCSV reads rows in the shape of Seed from r and registers each
// one, in file order, preserving that order as the registration order
// (and therefore the canonical serialization order). This mirrors
// github.com/dargueta/disko/disks.GetPredefinedDiskGeometry's use of
// gocsv.UnmarshalToCallback over a `csv:"..."`-tagged struct.
func (r *Registry) LoadSeedsFromCSV(reader io.Reader) error {
	return gocsv.UnmarshalToCallback(reader, func(row Seed) error {
		if err := r.Register(row.Label, row.DefaultValue, row.Comment, nil, nil, nil); err != nil {
			return fmt.Errorf("seeding entry %q: %w", row.Label, err)
		}
		return nil
	})
}
