// Package volume implements the Block Device Façade: the top-level type a
// USB mass-storage stack talks to. It wires together every other package —
// layout, fat12, registry, dirtypages, flash, image, codec, gatekeeper, and
// scheduler — into an init/process/read-sector/write-sectors shape,
// following github.com/dargueta/disko/driver.BaseDriver's
// constructor-assembles-collaborators pattern.
package volume

import (
	"time"

	"github.com/halfword/configvol/codec"
	configerrors "github.com/halfword/configvol/errors"
	"github.com/halfword/configvol/fat12"
	"github.com/halfword/configvol/flash"
	"github.com/halfword/configvol/gatekeeper"
	"github.com/halfword/configvol/image"
	"github.com/halfword/configvol/layout"
	"github.com/halfword/configvol/logging"
	"github.com/halfword/configvol/registry"
	"github.com/halfword/configvol/scheduler"

	"github.com/halfword/configvol/dirtypages"
)

// Volume is the virtual FAT12 config volume. It is not safe for concurrent
// use; the USB stack that owns it is expected to serialize calls from a
// single-threaded main loop.
type Volume struct {
	reg     *registry.Registry
	buffer  *image.Buffer
	tracker *dirtypages.Tracker
	store   *flash.Store
	gate    *gatekeeper.Gatekeeper
	sched   *scheduler.Scheduler
	log     logging.Logger
}

// New assembles a Volume around a Flash Backing Store and an Entry
// Registry. log may be nil, in which case logging.Default is used.
func New(reg *registry.Registry, store *flash.Store, log logging.Logger) *Volume {
	return NewWithClock(reg, store, log, nil)
}

// NewWithClock is New with an injectable scheduler.Clock, letting tests
// drive the Deferred Commit Scheduler's 500ms window without sleeping.
// Production callers should use New.
func NewWithClock(reg *registry.Registry, store *flash.Store, log logging.Logger, clock scheduler.Clock) *Volume {
	if log == nil {
		log = logging.Default
	}
	geom := store.Geometry()
	tracker := dirtypages.New(geom.ImageBytes, geom.PageBytes)

	return &Volume{
		reg:     reg,
		buffer:  image.New(tracker),
		tracker: tracker,
		store:   store,
		gate:    gatekeeper.New(reg, log),
		sched:   scheduler.New(time.Duration(layout.CommitDelayMillis)*time.Millisecond, clock),
		log:     log,
	}
}

// RegisterEntry forwards to the underlying Entry Registry. Volumes are
// meant to be fully registered before Init is called.
func (v *Volume) RegisterEntry(
	label, defaultValue, comment string,
	validate registry.Validator,
	update registry.Updater,
	print registry.Printer,
) error {
	return v.reg.Register(label, defaultValue, comment, validate, update, print)
}

// SectorSize returns the fixed advertised sector size.
func (v *Volume) SectorSize() uint32 {
	return layout.SectorSize
}

// SectorCount returns the fixed advertised sector count.
func (v *Volume) SectorCount() uint32 {
	return layout.SectorCount
}

// Init loads the Image Buffer from flash and validates (or bootstraps)
// CONFIG.TXT. It never blocks on a flash write itself — any repair it makes
// is left for the first Process tick, so USB enumeration never waits on
// flash.
func (v *Volume) Init() error {
	v.buffer.LoadFrom(v.store.ReadAll())

	idx, found := fat12.FindByName83(v.buffer.Root(), fat12.ConfigFileName83())
	if found && fat12.DirentAt(v.buffer.Root(), idx).FileSize() > 0 {
		if v.validateAndCanonicalize(idx) {
			v.sched.NotifyWrite()
		}
		return nil
	}

	v.bootstrap()
	v.sched.NotifyWrite()
	return nil
}

// Process is the periodic tick: if a commit is due, it re-validates
// CONFIG.TXT (sectors may have arrived in any order since the last tick)
// and flushes the Image Buffer's dirty pages to flash.
func (v *Volume) Process() error {
	if !v.sched.Due() {
		return nil
	}
	return v.forceCommit()
}

// ForceCommit re-validates CONFIG.TXT and commits immediately, bypassing
// the Deferred Commit Scheduler's window. Production sector dispatch should
// use Process; this exists for offline tooling (cmd/configvolctl) that
// needs a deterministic, one-shot flush rather than a polled tick.
func (v *Volume) ForceCommit() error {
	return v.forceCommit()
}

func (v *Volume) forceCommit() error {
	if idx, found := fat12.FindByName83(v.buffer.Root(), fat12.ConfigFileName83()); found {
		if fat12.DirentAt(v.buffer.Root(), idx).FileSize() > 0 {
			v.validateAndCanonicalize(idx)
		}
	}

	v.log.Debug("starting flash write")
	err := v.store.CommitDirty(v.buffer.Raw(), v.tracker)
	if err != nil {
		// The scheduler stays pending: a page that failed to program is
		// still flagged dirty inside the tracker and is retried on the next
		// Process tick.
		v.log.Error("deferred flash write failed: %s", err)
		return err
	}
	v.log.Debug("flash write completed successfully")
	v.sched.Clear()
	return nil
}

// ReadSector renders the SectorSize bytes a host would see at the given
// absolute sector number.
func (v *Volume) ReadSector(sector uint32) []byte {
	out := make([]byte, layout.SectorSize)

	switch {
	case sector == 0:
		copy(out, layout.BootSectorBytes[:])
	case sector == layout.FAT1Sector:
		copy(out, v.buffer.FAT1())
	case sector == layout.FAT2Sector:
		copy(out, v.buffer.FAT2())
	case sector == layout.RootDirSector:
		copy(out, v.buffer.Root())
	case sector >= layout.DataFirstSector:
		offset := (sector - layout.DataFirstSector) * layout.SectorSize
		fileData := v.buffer.FileData()
		if offset < uint32(len(fileData)) {
			end := offset + layout.SectorSize
			if end > uint32(len(fileData)) {
				end = uint32(len(fileData))
			}
			copy(out, fileData[offset:end])
		}
	default:
		v.log.Warn("unrecognized disk sector read attempt: %d", sector)
	}
	return out
}

// WriteSectors accepts a host write of one or more contiguous sectors
// starting at startSector. Every sector is classified and, if accepted,
// applied to the Image Buffer; the batch always resets the Deferred Commit
// Scheduler's window, whether or not anything was actually accepted.
func (v *Volume) WriteSectors(startSector uint32, data []byte) error {
	if len(data)%layout.SectorSize != 0 {
		return configerrors.ErrInvalidArgument.WithMessage("write length is not a multiple of the sector size")
	}

	count := uint32(len(data) / layout.SectorSize)
	for s := uint32(0); s < count; s++ {
		sector := startSector + s
		v.writeOneSector(sector, data[s*layout.SectorSize:(s+1)*layout.SectorSize])
	}

	v.sched.NotifyWrite()
	return nil
}

func (v *Volume) writeOneSector(sector uint32, sectorData []byte) {
	switch {
	case sector == layout.FAT1Sector:
		v.buffer.WriteFAT1IfChanged(sectorData)
	case sector == layout.FAT2Sector:
		v.buffer.WriteFAT2IfChanged(sectorData)
	case sector == layout.RootDirSector:
		outcome := v.gate.ClassifyRootDirectoryWrite(sectorData)
		if outcome.Suppress {
			// Still land the host's bytes in the mirror — currentConfigCluster
			// and future ClassifyRootDirectoryWrite calls must see the latest
			// directory state — but don't mark it dirty, so what looks like a
			// transient zero-size rewrite is not carried into a flash commit.
			v.buffer.WriteRootContentOnly(sectorData)
		} else {
			v.buffer.WriteRootIfChanged(sectorData)
		}
	case sector >= layout.DataFirstSector:
		v.writeDataSector(sector, sectorData)
	default:
		// Boot sector and the unused padding sectors of the reserved,
		// FAT, and root directory regions: read-only from the host's
		// point of view, writes are silently dropped.
	}
}

func (v *Volume) writeDataSector(sector uint32, sectorData []byte) {
	offset := (sector - layout.DataFirstSector) * layout.SectorSize
	fileData := v.buffer.FileData()
	if offset+layout.SectorSize > uint32(len(fileData)) {
		return
	}

	writeCluster := layout.SectorToCluster(sector)
	configCluster := v.currentConfigCluster()
	canonicalBytes := v.mirrorBytesAtCluster(layout.FirstDataCluster)
	canonicalHasConfig := canonicalBytes != nil && codec.LooksLikeConfig(canonicalBytes, v.reg)

	decision := v.gate.ClassifyDataSector(writeCluster, configCluster, sectorData, canonicalHasConfig)
	if decision == gatekeeper.Accept {
		v.buffer.WriteFileSectorIfChanged(offset, sectorData)
	}
}

func (v *Volume) currentConfigCluster() uint32 {
	idx, found := fat12.FindByName83(v.buffer.Root(), fat12.ConfigFileName83())
	if !found {
		return 0
	}
	return uint32(fat12.DirentAt(v.buffer.Root(), idx).StartCluster())
}

// mirrorBytesAtCluster returns a view into the Image Buffer's file data
// region starting at the given cluster, capped at codec.MaxFileBytes, or
// nil if the cluster is out of range.
func (v *Volume) mirrorBytesAtCluster(cluster uint32) []byte {
	if cluster < layout.FirstDataCluster {
		return nil
	}
	offset := (cluster - layout.FirstDataCluster) * layout.SectorSize
	fileData := v.buffer.FileData()
	if offset >= uint32(len(fileData)) {
		return nil
	}
	end := offset + uint32(codec.MaxFileBytes)
	if end > uint32(len(fileData)) {
		end = uint32(len(fileData))
	}
	return fileData[offset:end]
}

// flashBytesAtCluster is mirrorBytesAtCluster's counterpart reading from
// the Flash Backing Store directly, the last-resort source candidate when
// neither the recorded cluster nor cluster 2 of the live mirror look like
// valid config content.
func (v *Volume) flashBytesAtCluster(cluster uint32) []byte {
	if cluster < layout.FirstDataCluster {
		return nil
	}
	raw := v.store.ReadAll()
	if image.OffsetFile >= len(raw) {
		return nil
	}
	fileRegion := raw[image.OffsetFile:]
	offset := (cluster - layout.FirstDataCluster) * layout.SectorSize
	if offset >= uint32(len(fileRegion)) {
		return nil
	}
	end := offset + uint32(codec.MaxFileBytes)
	if end > uint32(len(fileRegion)) {
		end = uint32(len(fileRegion))
	}
	return fileRegion[offset:end]
}

// sourceSelect implements the read side of source selection: prefer the
// mirror at the directory's recorded cluster (everything that ever reached
// the mirror already passed the Write Gatekeeper, so it needs no further
// suspicion beyond "does it look like config"), fall back to the mirror's
// canonical cluster 2, then to flash's copy of either, and finally give up
// and let the caller synthesize pure defaults.
func (v *Volume) sourceSelect(cluster uint32) []byte {
	if candidate := v.mirrorBytesAtCluster(cluster); candidate != nil {
		if cluster == layout.FirstDataCluster || codec.LooksLikeConfig(candidate, v.reg) {
			return candidate
		}
	}
	if cluster != layout.FirstDataCluster {
		if candidate := v.mirrorBytesAtCluster(layout.FirstDataCluster); candidate != nil && codec.LooksLikeConfig(candidate, v.reg) {
			return candidate
		}
	}
	if candidate := v.flashBytesAtCluster(cluster); candidate != nil && codec.LooksLikeConfig(candidate, v.reg) {
		return candidate
	}
	if cluster != layout.FirstDataCluster {
		if candidate := v.flashBytesAtCluster(layout.FirstDataCluster); candidate != nil && codec.LooksLikeConfig(candidate, v.reg) {
			return candidate
		}
	}
	return nil
}

// validateAndCanonicalize re-derives CONFIG.TXT from whichever candidate
// buffer source selection picks, then rewrites the Image Buffer so the file
// always lives at cluster 2 with an exactly-sized FAT chain. It reports
// whether the codec repaired anything, the file started at a cluster other
// than 2, or any region of the Image Buffer changed.
func (v *Volume) validateAndCanonicalize(idx int) bool {
	entry := fat12.DirentAt(v.buffer.Root(), idx)
	cluster := uint32(entry.StartCluster())
	if cluster < layout.FirstDataCluster {
		cluster = layout.FirstDataCluster
	}

	result := codec.Normalize(v.reg, v.sourceSelect(cluster))
	if result.Notices != nil {
		v.log.Warn("CONFIG.TXT repaired: %s", result.Notices.Error())
	}

	nonCanonical := cluster != layout.FirstDataCluster
	changed := v.rewriteCanonical(idx, result.Content)
	return result.Repaired || nonCanonical || changed
}

// bootstrap synthesizes a fresh CONFIG.TXT from nothing but registered
// defaults, used by Init when no CONFIG.TXT directory entry exists yet or
// the existing one records a zero file size.
func (v *Volume) bootstrap() {
	idx, found := fat12.FindByName83(v.buffer.Root(), fat12.ConfigFileName83())
	if !found {
		idx, found = fat12.FirstFreeSlot(v.buffer.Root())
		if !found {
			idx = 0
		}
		root := make([]byte, layout.SectorSize)
		copy(root, v.buffer.Root())
		entry := fat12.DirentAt(root, idx)
		entry.SetName83(fat12.ConfigFileName83())
		entry.SetAttributes(fat12.AttributeRegularFile)
		v.buffer.WriteRootIfChanged(root)
	}

	result := codec.Normalize(v.reg, nil)
	if result.Notices != nil {
		v.log.Info("bootstrapping CONFIG.TXT with defaults: %s", result.Notices.Error())
	}
	v.rewriteCanonical(idx, result.Content)
	v.buffer.MarkAllDirty()
}

// rewriteCanonical writes content (zero-padded to fill the rest of the file
// data region) into cluster 2, rebuilds the FAT chain to match its length,
// and points the directory entry at idx to cluster 2 with the matching
// size. It reports whether any of the three regions actually changed.
func (v *Volume) rewriteCanonical(idx int, content []byte) bool {
	changed := false

	padded := make([]byte, image.FileRegionBytes)
	copy(padded, content)
	if v.buffer.WriteFileSectorIfChanged(0, padded) {
		changed = true
	}

	fat := make([]byte, layout.SectorSize)
	fat[0], fat[1], fat[2] = 0xF8, 0xFF, 0xFF
	fat12.RebuildChain(fat, uint32(len(content)))
	if v.buffer.WriteFAT1IfChanged(fat) {
		changed = true
	}
	if v.buffer.WriteFAT2IfChanged(fat) {
		changed = true
	}

	root := make([]byte, layout.SectorSize)
	copy(root, v.buffer.Root())
	entry := fat12.DirentAt(root, idx)
	entry.SetStartCluster(uint16(layout.FirstDataCluster))
	entry.SetFileSize(uint32(len(content)))
	if v.buffer.WriteRootIfChanged(root) {
		changed = true
	}

	return changed
}
