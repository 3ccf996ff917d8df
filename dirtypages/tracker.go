// Package dirtypages implements the Dirty Page Tracker: a bitset flagging
// which flash pages of the Image Buffer differ from what's on flash. It is
// a direct, smaller-scope cousin of
// github.com/dargueta/disko/drivers/common/blockcache's loadedBlocks /
// dirtyBlocks bitmaps, backed by the same github.com/boljen/go-bitmap.
package dirtypages

import (
	"github.com/boljen/go-bitmap"
)

// Tracker is a bitset of length ceil(imageBytes / pageBytes), one bit per
// flash page of the Image Buffer.
type Tracker struct {
	dirty     bitmap.Bitmap
	pageBytes uint
	numPages  uint
}

// New creates a Tracker for an image of imageBytes bytes divided into pages
// of pageBytes bytes each. All pages start clean.
func New(imageBytes, pageBytes uint) *Tracker {
	numPages := (imageBytes + pageBytes - 1) / pageBytes
	return &Tracker{
		dirty:     bitmap.NewSlice(int(numPages)),
		pageBytes: pageBytes,
		numPages:  numPages,
	}
}

// NumPages returns the number of pages tracked.
func (t *Tracker) NumPages() uint {
	return t.numPages
}

// PageOf returns the index of the page covering byte offset `offset`.
func (t *Tracker) PageOf(offset uint) uint {
	return offset / t.pageBytes
}

// MarkDirty flags the page covering byte offset `offset` as dirty.
func (t *Tracker) MarkDirty(offset uint) {
	t.dirty.Set(int(t.PageOf(offset)), true)
}

// MarkRangeDirty flags every page touched by [offset, offset+length) as
// dirty.
func (t *Tracker) MarkRangeDirty(offset, length uint) {
	if length == 0 {
		return
	}
	first := t.PageOf(offset)
	last := t.PageOf(offset + length - 1)
	for page := first; page <= last; page++ {
		t.dirty.Set(int(page), true)
	}
}

// MarkAllDirty flags every page as dirty, used by the bootstrap path which
// rewrites the entire Image Buffer.
func (t *Tracker) MarkAllDirty() {
	for page := uint(0); page < t.numPages; page++ {
		t.dirty.Set(int(page), true)
	}
}

// IsDirty reports whether the given page index is flagged dirty.
func (t *Tracker) IsDirty(page uint) bool {
	return t.dirty.Get(int(page))
}

// ClearPage clears the dirty bit for a single page, used after that page
// has been committed to flash.
func (t *Tracker) ClearPage(page uint) {
	t.dirty.Set(int(page), false)
}

// ClearAll clears every dirty bit, used after a full-region commit.
func (t *Tracker) ClearAll() {
	for page := uint(0); page < t.numPages; page++ {
		t.dirty.Set(int(page), false)
	}
}

// AnyDirty reports whether at least one page is flagged dirty.
func (t *Tracker) AnyDirty() bool {
	for page := uint(0); page < t.numPages; page++ {
		if t.dirty.Get(int(page)) {
			return true
		}
	}
	return false
}

// DirtyPages returns the indexes of every currently-dirty page, in
// ascending order.
func (t *Tracker) DirtyPages() []uint {
	var pages []uint
	for page := uint(0); page < t.numPages; page++ {
		if t.dirty.Get(int(page)) {
			pages = append(pages, page)
		}
	}
	return pages
}
