// Package gatekeeper implements the Write Gatekeeper: the filter every host
// write to the file-data region and the root directory sector passes
// through before it is allowed to land in the Image Buffer, split out of
// the block device loop so it can be reasoned about (and tested)
// independently of sector dispatch.
package gatekeeper

import (
	"github.com/halfword/configvol/codec"
	"github.com/halfword/configvol/fat12"
	"github.com/halfword/configvol/image"
	"github.com/halfword/configvol/layout"
	"github.com/halfword/configvol/logging"
	"github.com/halfword/configvol/registry"
)

// clusterCeiling is the inclusive upper bound of the tail-cluster range the
// dot-file check covers: cluster 2 plus the number of sectors in the file
// data region (one past the last cluster that region can hold).
var clusterCeiling = uint32(layout.FirstDataCluster) + uint32(image.FileRegionBytes/layout.SectorSize)

// Decision is the gatekeeper's verdict for one incoming data sector.
type Decision int

const (
	Accept Decision = iota
	Reject
)

// Gatekeeper holds the small amount of state write_sector needed across
// calls: whether a CONFIG.TXT directory entry with a nonzero size has ever
// been observed, used to distinguish a genuine delete from the transient
// zero-size entry some hosts write while renaming or recreating a file.
type Gatekeeper struct {
	reg            *registry.Registry
	log            logging.Logger
	sawConfigEntry bool
}

// New creates a Gatekeeper bound to reg, the table it consults to decide
// whether a buffer "looks like" CONFIG.TXT content. log may be nil, in
// which case logging.Default is used.
func New(reg *registry.Registry, log logging.Logger) *Gatekeeper {
	if log == nil {
		log = logging.Default
	}
	return &Gatekeeper{reg: reg, log: log}
}

// RootDirectoryOutcome is the result of classifying a root directory sector
// write.
type RootDirectoryOutcome struct {
	// Suppress reports that the caller should still copy the new bytes into
	// the root directory mirror (so later reads, e.g. the recorded start
	// cluster, see the host's latest write) but must NOT mark the root
	// directory dirty, so the next flash commit does not carry it — the
	// write looks like a host's transient zero-size rewrite of the
	// CONFIG.TXT entry, not a real deletion, and committing it to flash
	// would discard the configuration.
	Suppress bool
}

// ClassifyRootDirectoryWrite inspects a candidate new root directory sector
// for a CONFIG.TXT entry and decides whether a zero file size should be
// trusted. Some hosts briefly zero a file's directory entry while deleting
// or recreating it before writing the real entry moments later; committing
// that to flash as authoritative would make the volume discard its
// configuration on every save. The mirror itself is always updated with the
// host's bytes regardless of the verdict; only dirty-marking is gated.
func (g *Gatekeeper) ClassifyRootDirectoryWrite(rootSector []byte) RootDirectoryOutcome {
	idx, found := fat12.FindByName83(rootSector, fat12.ConfigFileName83())
	if !found {
		return RootDirectoryOutcome{}
	}

	entry := fat12.DirentAt(rootSector, idx)
	size := entry.FileSize()

	if size == 0 && g.sawConfigEntry {
		g.log.Trace("suppressing dirty flag for transient zero-size CONFIG.TXT entry")
		return RootDirectoryOutcome{Suppress: true}
	}
	if size > 0 {
		g.sawConfigEntry = true
	}
	return RootDirectoryOutcome{}
}

// ClassifyDataSector decides whether a write to writeCluster should be
// allowed to land in the file data region.
//
//   - Writes to CONFIG.TXT's current cluster (per the directory,
//     configCluster — 0 if no entry exists yet) are always allowed.
//   - Writes to cluster 2, the canonical location CONFIG.TXT is
//     renormalized to on every commit, are allowed only if the incoming
//     bytes themselves look like config content — otherwise they are a
//     host metadata file (a dot file, a resource fork) reusing a freed
//     cluster 2.
//   - Writes to clusters 3 through clusterCeiling are allowed unless the
//     canonical mirror currently holds valid config data AND the incoming
//     bytes carry one of the known dot-file signatures, in which case they
//     are rejected as metadata bleeding into config's old tail clusters.
//   - Any other cluster is allowed; it is outside CONFIG.TXT's possible
//     footprint entirely.
func (g *Gatekeeper) ClassifyDataSector(writeCluster, configCluster uint32, sectorData []byte, canonicalHasConfig bool) Decision {
	if configCluster > 0 && writeCluster == configCluster {
		g.log.Trace("allowing CONFIG.TXT write to cluster %d", writeCluster)
		return Accept
	}

	if writeCluster == uint32(layout.FirstDataCluster) {
		if codec.LooksLikeConfig(sectorData, g.reg) {
			return Accept
		}
		g.log.Trace("rejecting non-config write to cluster %d", writeCluster)
		return Reject
	}

	if writeCluster > uint32(layout.FirstDataCluster) && writeCluster <= clusterCeiling && canonicalHasConfig {
		if looksLikeDotFile(sectorData) {
			g.log.Trace("rejecting dot file write to cluster %d", writeCluster)
			return Reject
		}
	}

	return Accept
}

// looksLikeDotFile reports whether sectorData's leading bytes match one of
// the signatures a macOS "._" resource-fork or .DS_Store-style metadata
// file tends to start with: a NUL padding byte, a stale directory-entry
// deleted marker (0xE5 is the real one; 0x05 is its Kanji-escaped form), or
// a literal leading '.' followed by further content.
func looksLikeDotFile(sectorData []byte) bool {
	if len(sectorData) == 0 {
		return false
	}
	if sectorData[0] == 0x00 || sectorData[0] == 0x05 {
		return true
	}
	if sectorData[0] == '.' && len(sectorData) > 1 && sectorData[1] != 0 {
		return true
	}
	return false
}
