// Package image implements the Image Buffer: the single RAM-resident
// mirror of the flash region, logically divided into FAT1, FAT2, root
// directory, and file data regions, addressed as explicit, disjoint
// byte-slice offsets into one owned array rather than four aliased
// pointers.
package image

import (
	"bytes"

	"github.com/halfword/configvol/dirtypages"
	"github.com/halfword/configvol/layout"
)

// Region byte offsets within the mirror (not disk sector numbers — the
// mirror is much smaller than the advertised disk because most of the
// advertised sectors are zero-filler and never stored).
const (
	OffsetFAT1 = 0x000
	OffsetFAT2 = 0x200
	OffsetRoot = 0x400
	OffsetFile = 0x600
)

// DefaultImageBytes is the total size of the mirror: FAT1 (512B) + FAT2
// (512B) + Root (512B) + ~14 KiB of file data, a 16 KiB region overall.
const DefaultImageBytes = 0x4000

// FileRegionBytes is how many bytes of the mirror are available to hold
// CONFIG.TXT's serialized content.
const FileRegionBytes = DefaultImageBytes - OffsetFile

// Buffer is the Image Buffer. It owns a single backing array and exposes
// disjoint slices into it for each FAT12 region. Its Write*IfChanged and
// Mark* methods mark the Dirty Page Tracker; WriteRootContentOnly and
// writes made directly through the region slices do not.
type Buffer struct {
	data    []byte
	tracker *dirtypages.Tracker
}

// New creates a Buffer of DefaultImageBytes, all zeroed, sharing the given
// Dirty Page Tracker.
func New(tracker *dirtypages.Tracker) *Buffer {
	return &Buffer{data: make([]byte, DefaultImageBytes), tracker: tracker}
}

// LoadFrom replaces the entire mirror with a copy of raw (which must be
// DefaultImageBytes long) without marking anything dirty — used once at
// startup to re-hydrate from flash.
func (b *Buffer) LoadFrom(raw []byte) {
	copy(b.data, raw)
}

// Raw returns the full backing array, for handing to the Flash Backing
// Store on commit. Callers must not retain a mutable reference across a
// later Reset/LoadFrom.
func (b *Buffer) Raw() []byte {
	return b.data
}

// FAT1 returns the live FAT1 region (512 bytes). Mutations through this
// slice do NOT mark anything dirty; use WriteFAT1IfChanged for that.
func (b *Buffer) FAT1() []byte {
	return b.data[OffsetFAT1 : OffsetFAT1+layout.SectorSize]
}

// FAT2 returns the live FAT2 region (512 bytes).
func (b *Buffer) FAT2() []byte {
	return b.data[OffsetFAT2 : OffsetFAT2+layout.SectorSize]
}

// Root returns the live root directory region (512 bytes — one sector's
// worth of directory entries; the rest of the advertised root directory
// region reads as zero).
func (b *Buffer) Root() []byte {
	return b.data[OffsetRoot : OffsetRoot+layout.SectorSize]
}

// FileData returns the live file data region (FileRegionBytes long).
func (b *Buffer) FileData() []byte {
	return b.data[OffsetFile:]
}

// MarkFATDirty flags the page(s) covering both FAT copies as dirty. Both
// copies are always written together, so this is the one entry point
// mutators of either FAT should call.
func (b *Buffer) MarkFATDirty() {
	b.tracker.MarkRangeDirty(OffsetFAT1, layout.SectorSize)
	b.tracker.MarkRangeDirty(OffsetFAT2, layout.SectorSize)
}

// MarkRootDirty flags the page(s) covering the root directory region as
// dirty.
func (b *Buffer) MarkRootDirty() {
	b.tracker.MarkRangeDirty(OffsetRoot, layout.SectorSize)
}

// MarkFileDataDirty flags the page(s) covering [offset, offset+length) of
// the file data region as dirty. offset is relative to the start of the
// file data region, not the mirror.
func (b *Buffer) MarkFileDataDirty(offset, length uint) {
	b.tracker.MarkRangeDirty(OffsetFile+offset, length)
}

// MarkAllDirty flags every page as dirty, used by the bootstrap path.
func (b *Buffer) MarkAllDirty() {
	b.tracker.MarkAllDirty()
}

// WriteFAT1IfChanged overwrites FAT1 with data (which must be exactly
// SectorSize bytes) and marks both FAT pages dirty, but only if the
// content actually differs from the mirror.
func (b *Buffer) WriteFAT1IfChanged(data []byte) bool {
	dst := b.FAT1()
	if bytes.Equal(dst, data) {
		return false
	}
	copy(dst, data)
	b.MarkFATDirty()
	return true
}

// WriteFAT2IfChanged is WriteFAT1IfChanged's counterpart for FAT2.
func (b *Buffer) WriteFAT2IfChanged(data []byte) bool {
	dst := b.FAT2()
	if bytes.Equal(dst, data) {
		return false
	}
	copy(dst, data)
	b.MarkFATDirty()
	return true
}

// WriteRootIfChanged overwrites the root directory region with data and
// marks it dirty, but only if the content actually differs.
func (b *Buffer) WriteRootIfChanged(data []byte) bool {
	dst := b.Root()
	if bytes.Equal(dst, data) {
		return false
	}
	copy(dst, data)
	b.MarkRootDirty()
	return true
}

// WriteRootContentOnly overwrites the root directory region with data, if
// it differs, without marking anything dirty. Used for a host write the
// gatekeeper wants reflected in the mirror — so later reads of the
// directory entry see the host's latest bytes — but not carried into the
// next flash commit, such as a transient zero-size CONFIG.TXT rewrite.
func (b *Buffer) WriteRootContentOnly(data []byte) bool {
	dst := b.Root()
	if bytes.Equal(dst, data) {
		return false
	}
	copy(dst, data)
	return true
}

// WriteFileSectorIfChanged overwrites one SectorSize-sized slice of the
// file data region, at byte offset `offset` relative to the region start,
// and marks the covering page dirty, but only if the content actually
// differs.
func (b *Buffer) WriteFileSectorIfChanged(offset uint, data []byte) bool {
	fileData := b.FileData()
	end := offset + uint(len(data))
	if end > uint(len(fileData)) {
		end = uint(len(fileData))
		data = data[:end-offset]
	}
	dst := fileData[offset:end]
	if bytes.Equal(dst, data) {
		return false
	}
	copy(dst, data)
	b.MarkFileDataDirty(offset, uint(len(data)))
	return true
}
