// Package fat12 implements the FAT12 allocation table packing rules and
// directory entry layout the config volume needs: 12-bit packed entries,
// chain rebuilding from cluster 2, and 8.3 directory entry fields. The
// struct layout follows github.com/dargueta/disko/file_systems/fat.RawDirent.
package fat12

import (
	"github.com/halfword/configvol/layout"
)

// EndOfChain is the FAT12 end-of-chain marker.
const EndOfChain uint16 = 0xFFF

// DirentSize is the size, in bytes, of one FAT directory entry.
const DirentSize = 32

// MaxDirentsScanned bounds directory scans to one sector's worth of
// entries (16), matching the design note that only the first 16 entries of
// the root directory are ever examined.
const MaxDirentsScanned = layout.SectorSize / DirentSize

// Directory entry field offsets used by this device (attributes, starting
// cluster, file size). Name occupies bytes [0:11).
const (
	OffsetAttributes     = 0x0B
	OffsetClusterLow     = 0x1A
	OffsetFileSize       = 0x1C
	AttributeRegularFile = 0
)

// GetEntry reads the 12-bit FAT entry for cluster c out of a packed FAT
// region. fat must be at least SectorSize bytes.
//
// For even clusters the entry occupies the low byte plus the low nibble of
// the next byte; for odd clusters it's the high nibble of one byte plus the
// whole of the next.
func GetEntry(fat []byte, cluster uint32) uint16 {
	offset := cluster + cluster/2
	if cluster%2 == 0 {
		return uint16(fat[offset]) | (uint16(fat[offset+1]&0x0F) << 8)
	}
	return (uint16(fat[offset]) >> 4) | (uint16(fat[offset+1]) << 4)
}

// SetEntry writes the 12-bit FAT entry for cluster c into a packed FAT
// region, touching only the four bits of any byte shared with a neighboring
// entry.
func SetEntry(fat []byte, cluster uint32, value uint16) {
	offset := cluster + cluster/2
	if cluster%2 == 0 {
		fat[offset] = byte(value & 0xFF)
		fat[offset+1] = (fat[offset+1] & 0xF0) | byte((value>>8)&0x0F)
	} else {
		fat[offset] = (fat[offset] & 0x0F) | byte((value&0x0F)<<4)
		fat[offset+1] = byte((value >> 4) & 0xFF)
	}
}

// RebuildChain rewrites fat in place as a single contiguous chain starting
// at cluster 2, covering ceil(sizeBytes / SectorSize) clusters and
// terminated by EndOfChain. The media byte and the two reserved cluster
// slots (0 and 1) are preserved; everything else in the FAT is zeroed
// first.
func RebuildChain(fat []byte, sizeBytes uint32) {
	clustersNeeded := (sizeBytes + layout.SectorSize - 1) / layout.SectorSize
	if clustersNeeded == 0 {
		clustersNeeded = 1
	}

	// Clusters 0 and 1 aren't real data clusters; byte 0 carries the media
	// descriptor and bytes 0-2 are conventionally 0xF8 0xFF 0xFF. Preserve
	// those three bytes, zero the rest.
	for i := 3; i < len(fat); i++ {
		fat[i] = 0
	}

	for i := uint32(0); i < clustersNeeded; i++ {
		cluster := layout.FirstDataCluster + i
		next := uint16(cluster + 1)
		if i == clustersNeeded-1 {
			next = EndOfChain
		}
		SetEntry(fat, cluster, next)
	}
}

// ChainLength walks the FAT chain starting at `start` and returns the
// number of clusters in it, stopping at EndOfChain or a cluster outside the
// valid range. It never walks more than len(fat)*2/3 steps, so a malformed
// (cyclic) chain can't loop forever.
func ChainLength(fat []byte, start uint32) int {
	maxSteps := len(fat) * 2 / 3
	cluster := start
	count := 0
	for count < maxSteps {
		if int(cluster+cluster/2)+1 >= len(fat) {
			break
		}
		count++
		entry := GetEntry(fat, cluster)
		if entry >= EndOfChain || entry < layout.FirstDataCluster {
			break
		}
		cluster = uint32(entry)
	}
	return count
}
