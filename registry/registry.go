// Package registry implements the Entry Registry: a small fixed-capacity,
// insertion-ordered table of typed configuration entries, each with an
// optional validate/update/print capability trio, modeled as a capability
// record rather than bare nullable function pointers.
package registry

import (
	configerrors "github.com/halfword/configvol/errors"
)

// MaxEntries is the fixed capacity of the registry.
const MaxEntries = 8

// MaxLabelBytes bounds a label to 63 bytes plus a NUL, matching the
// firmware's MAX_ENTRY_LABEL_LENGTH.
const MaxLabelBytes = 63

// MaxCommentBytes bounds a rendered "\t<comment>\r\n" suffix to 63 bytes
// plus a NUL, matching the firmware's MAX_ENTRY_COMMENT_LENGTH.
const MaxCommentBytes = 63

// Validator reports whether a raw value (already stripped of its trailing
// comment) is acceptable for this entry.
type Validator func(value string) bool

// Updater applies a validated value to whatever application state this
// entry is backing (a global variable, a peripheral, ...).
type Updater func(value string)

// Printer renders the canonical "LABEL=VALUE" line for this entry (without
// the trailing comment, which the registry stores separately) and returns
// the rendered text. Implementations should not exceed `cap` bytes.
type Printer func(cap int) string

// Entry is one slot of the registry: a label used as the KEY in KEY=VALUE,
// a borrowed default value, a pre-rendered comment suffix, and an optional
// capability trio.
type Entry struct {
	Label        string
	DefaultValue string
	Comment      string // already formatted as "\t<comment>\r\n"
	Validate     Validator
	Update       Updater
	Print        Printer
}

// DefaultLine renders "LABEL=DEFAULT", the fallback line used when an
// entry's line is missing or fails validation.
func (e Entry) DefaultLine() string {
	return e.Label + "=" + e.DefaultValue
}

// Registry is a fixed-capacity, insertion-ordered sequence of Entry slots.
// Registration order is the canonical serialization order; there is no
// re-registration or de-registration.
type Registry struct {
	entries []Entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make([]Entry, 0, MaxEntries)}
}

// Register allocates the next free slot for label/default/comment plus an
// optional validate/update/print trio. It truncates label to MaxLabelBytes
// and formats comment as "\t<comment>\r\n", truncated to MaxCommentBytes.
// It returns configerrors.ErrRegistryFull once MaxEntries slots are taken.
func (r *Registry) Register(
	label string,
	defaultValue string,
	comment string,
	validate Validator,
	update Updater,
	print Printer,
) error {
	if len(r.entries) >= MaxEntries {
		return configerrors.ErrRegistryFull
	}

	if len(label) > MaxLabelBytes {
		label = label[:MaxLabelBytes]
	}

	formattedComment := "\t" + comment + "\r\n"
	if len(formattedComment) > MaxCommentBytes {
		formattedComment = formattedComment[:MaxCommentBytes]
	}

	r.entries = append(r.entries, Entry{
		Label:        label,
		DefaultValue: defaultValue,
		Comment:      formattedComment,
		Validate:     validate,
		Update:       update,
		Print:        print,
	})
	return nil
}

// Entries returns the occupied slots in registration order. The returned
// slice is owned by the registry; callers must not mutate it.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// Len returns the number of occupied slots.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Full reports whether the registry has no remaining capacity.
func (r *Registry) Full() bool {
	return len(r.entries) >= MaxEntries
}
