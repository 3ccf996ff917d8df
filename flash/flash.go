// Package flash implements the Flash Backing Store: the opaque,
// byte-addressable, page-programmed region that persists the Image Buffer
// across power cycles. One geometry-driven commit path covers both
// small-page devices (multi-page erase) and large-sector devices
// (single-region erase) instead of per-device duplicated logic.
package flash

import (
	"encoding/binary"

	"github.com/halfword/configvol/dirtypages"
	"github.com/halfword/configvol/logging"
)

// Programmer is the low-level collaborator interface a HAL implements:
// synchronous unlock/lock around the flash controller, whole-page erase,
// and halfword (16-bit) programming.
type Programmer interface {
	Unlock() error
	Lock() error
	ErasePage(pageID uint) error
	ProgramHalfword(address uint32, data uint16) error
}

// Geometry describes how the backing flash region is organized into
// programmable units.
type Geometry struct {
	// BaseAddress is the first address of the flash region, passed to
	// ProgramHalfword/ErasePage as an offset base.
	BaseAddress uint32
	// PageBytes is the size of one erasable page. On small-page devices
	// this is much smaller than ImageBytes (e.g. 1 KiB); on large-sector
	// devices it equals ImageBytes (e.g. 16 KiB), making the whole region
	// one erase unit.
	PageBytes uint
	// ImageBytes is the total size of the persisted region.
	ImageBytes uint
}

// IsUnitary reports whether the whole image is a single erase unit, i.e.
// every dirty page forces a full-region erase and rewrite.
func (g Geometry) IsUnitary() bool {
	return g.PageBytes >= g.ImageBytes
}

// NumPages returns the number of addressable pages in this geometry.
func (g Geometry) NumPages() uint {
	return (g.ImageBytes + g.PageBytes - 1) / g.PageBytes
}

// Store is the Flash Backing Store façade: it knows how to read the whole
// persisted region and how to commit dirty pages of an in-memory mirror
// back to flash, using a Programmer and a Geometry.
type Store struct {
	prog Programmer
	geom Geometry
	log  logging.Logger

	// raw is the view of the flash contents that ReadAll copies from;
	// programPage also copies each successfully committed page into it. Real
	// hardware would read this straight from the memory-mapped flash
	// region instead of caching it, but simulators need somewhere to keep
	// the bytes ProgramHalfword wrote.
	raw []byte
}

// New creates a Store. raw must be exactly geom.ImageBytes long and is the
// backing array the simulator/hardware adapter reads from and
// ProgramHalfword writes into; see NewSimulator for a ready-made one.
func New(prog Programmer, geom Geometry, raw []byte, log logging.Logger) *Store {
	if log == nil {
		log = logging.Default
	}
	return &Store{prog: prog, geom: geom, raw: raw, log: log}
}

// Geometry returns the Store's flash geometry, used by callers that need to
// size a Dirty Page Tracker to match.
func (s *Store) Geometry() Geometry {
	return s.geom
}

// ReadAll returns a copy of the entire persisted region, used once at
// startup to re-hydrate the Image Buffer.
func (s *Store) ReadAll() []byte {
	out := make([]byte, len(s.raw))
	copy(out, s.raw)
	return out
}

// programPage erases pageIndex and reprograms it from image, halfword by
// halfword. It returns the first error encountered, if any, without
// clearing the caller's dirty bit, so the page is retried on the next
// commit.
func (s *Store) programPage(pageIndex uint, image []byte) error {
	pageStart := pageIndex * s.geom.PageBytes
	pageEnd := pageStart + s.geom.PageBytes
	if pageEnd > uint(len(image)) {
		pageEnd = uint(len(image))
	}

	if err := s.prog.ErasePage(pageIndex); err != nil {
		s.log.Error("unable to erase flash page %d: %s", pageIndex, err)
		return err
	}

	for off := pageStart; off+1 < pageEnd; off += 2 {
		halfword := binary.LittleEndian.Uint16(image[off : off+2])
		addr := s.geom.BaseAddress + uint32(off)
		if err := s.prog.ProgramHalfword(addr, halfword); err != nil {
			s.log.Error("unable to program halfword at offset %d: %s", off, err)
			return err
		}
	}

	copy(s.raw[pageStart:pageEnd], image[pageStart:pageEnd])
	return nil
}

// CommitDirty flushes every page flagged dirty in tracker from image to
// flash, clearing each bit only on success. For a unitary (large-sector)
// geometry, any dirty bit triggers a full-region erase and rewrite with the
// bitset cleared atomically beforehand.
func (s *Store) CommitDirty(image []byte, tracker *dirtypages.Tracker) error {
	if !tracker.AnyDirty() {
		return nil
	}

	if err := s.prog.Unlock(); err != nil {
		s.log.Error("unable to unlock flash: %s", err)
		return err
	}
	defer func() {
		if err := s.prog.Lock(); err != nil {
			s.log.Error("unable to lock flash: %s", err)
		}
	}()

	if s.geom.IsUnitary() {
		s.log.Trace("erasing flash sector", nil)
		tracker.ClearAll()
		if err := s.programPage(0, image); err != nil {
			tracker.MarkAllDirty()
			return err
		}
		return nil
	}

	var firstErr error
	for _, page := range tracker.DirtyPages() {
		tracker.ClearPage(page)
		if err := s.programPage(page, image); err != nil {
			tracker.MarkDirty(page * s.geom.PageBytes)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// CommitAll rewrites the entire region unconditionally, used by the
// bootstrap path which has already marked every page dirty; behaves the
// same as CommitDirty but skips the AnyDirty short-circuit.
func (s *Store) CommitAll(image []byte, tracker *dirtypages.Tracker) error {
	tracker.MarkAllDirty()
	return s.CommitDirty(image, tracker)
}
