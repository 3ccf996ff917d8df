// Package layout holds the compiled-in FAT12 geometry for the config
// volume: sector size, region boundaries, and the static boot sector. None
// of it is negotiable at runtime — a real host expects to see exactly this
// BPB, the same way github.com/dargueta/disko's fat.RawFATBootSectorWithBPB
// models a fixed on-disk layout.
package layout

// SectorSize is the only sector size this device advertises.
const SectorSize = 512

// SectorCount is the total number of sectors on the advertised volume. Most
// of them are never backed by real bytes; reads past the data region return
// zero.
const SectorCount = 4096

// ReservedSectors is the number of sectors, starting at sector 0, before
// FAT1 begins. Sector 0 is the boot sector; sectors 1-7 read as zero.
const ReservedSectors = 8

// SectorsPerFAT is the size, in sectors, of each of the two FAT copies.
const SectorsPerFAT = 12

// FAT1Sector and FAT2Sector are the absolute sector numbers at which each
// FAT copy begins. Only the first sector of each twelve-sector run carries
// real bytes; the rest read as zero.
const (
	FAT1Sector = ReservedSectors
	FAT2Sector = FAT1Sector + SectorsPerFAT
)

// RootDirSectors is the size, in sectors, of the root directory region.
// 32 sectors * 512 bytes / 32 bytes-per-entry = 512 directory entries, but
// only the first sector (16 entries) is ever scanned — see
// fat12.MaxDirentsScanned.
const RootDirSectors = 32

// RootDirSector is the absolute sector number of the root directory.
const RootDirSector = FAT2Sector + SectorsPerFAT

// DataFirstSector is the absolute sector number of cluster 2, the first
// cluster of the data region. One cluster is one sector for this device.
const DataFirstSector = RootDirSector + RootDirSectors

// FirstDataCluster is the lowest valid (non-reserved) FAT12 cluster number.
const FirstDataCluster = 2

// SectorToCluster converts an absolute sector number in the data region to
// its FAT12 cluster number.
func SectorToCluster(sector uint32) uint32 {
	return sector - DataFirstSector + FirstDataCluster
}

// ClusterToSector is the inverse of SectorToCluster.
func ClusterToSector(cluster uint32) uint32 {
	return cluster - FirstDataCluster + DataFirstSector
}

// MediaDescriptor is the FAT12 media byte for a fixed (non-removable) disk.
const MediaDescriptor = 0xF8

// VolumeLabel and FileSystemTypeLabel are fixed, space-padded ASCII fields
// baked into the boot sector.
const (
	VolumeLabel         = "CONFIG VOL "
	FileSystemTypeLabel = "FAT12   "
	OEMName             = "mkdosfs\x00"
)

// VolumeSerialNumber is a compiled-in constant, not derived from anything
// at runtime.
const VolumeSerialNumber uint32 = 0x40DD8D18

// CommitDelayMillis is how long, in milliseconds, the Deferred Commit Scheduler waits after the
// last accepted host write before it is allowed to validate and flush.
const CommitDelayMillis = 500

// ConfigFileName8_3 is the 11-byte, space-padded 8.3 form of CONFIG.TXT used
// for case-insensitive directory name comparisons.
const ConfigFileName8_3 = "CONFIG  TXT"
