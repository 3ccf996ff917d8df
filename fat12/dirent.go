package fat12

import (
	"encoding/binary"
	"strings"

	"github.com/halfword/configvol/layout"
)

// Dirent is a decoded view over one 32-byte directory entry. It does not own
// its backing bytes; Put* writes back through the slice it was read from.
type Dirent struct {
	raw []byte
}

// DirentAt returns a Dirent view over the n-th 32-byte slot of a root
// directory sector. n must be in [0, MaxDirentsScanned).
func DirentAt(rootSector []byte, n int) Dirent {
	start := n * DirentSize
	return Dirent{raw: rootSector[start : start+DirentSize]}
}

// Name83 returns the raw, upper-cased 11-byte 8.3 name.
func (d Dirent) Name83() string {
	return strings.ToUpper(string(d.raw[0:11]))
}

// IsFree reports whether this slot has never been written (all zero) or was
// deleted (first byte 0xE5).
func (d Dirent) IsFree() bool {
	return d.raw[0] == 0x00 || d.raw[0] == 0xE5
}

// MatchesName83 reports whether this entry's name equals `name` under
// case-insensitive 8.3 comparison, as FAT12 directory lookups do.
func (d Dirent) MatchesName83(name string) bool {
	return d.Name83() == strings.ToUpper(name)
}

// StartCluster returns the entry's starting cluster number.
func (d Dirent) StartCluster() uint16 {
	return binary.LittleEndian.Uint16(d.raw[OffsetClusterLow:])
}

// FileSize returns the entry's 32-bit file size field.
func (d Dirent) FileSize() uint32 {
	return binary.LittleEndian.Uint32(d.raw[OffsetFileSize:])
}

// Attributes returns the entry's attribute byte.
func (d Dirent) Attributes() uint8 {
	return d.raw[OffsetAttributes]
}

// SetName83 writes an already-padded 11-byte 8.3 name into the entry.
func (d Dirent) SetName83(name11 string) {
	copy(d.raw[0:11], name11)
}

// SetAttributes writes the attribute byte.
func (d Dirent) SetAttributes(attrs uint8) {
	d.raw[OffsetAttributes] = attrs
}

// SetStartCluster writes the entry's starting cluster number.
func (d Dirent) SetStartCluster(cluster uint16) {
	binary.LittleEndian.PutUint16(d.raw[OffsetClusterLow:], cluster)
}

// SetFileSize writes the entry's 32-bit file size field.
func (d Dirent) SetFileSize(size uint32) {
	binary.LittleEndian.PutUint32(d.raw[OffsetFileSize:], size)
}

// FindByName83 scans the first MaxDirentsScanned entries of a root
// directory sector for `name`, returning the slot index and true if found.
func FindByName83(rootSector []byte, name string) (int, bool) {
	for n := 0; n < MaxDirentsScanned; n++ {
		d := DirentAt(rootSector, n)
		if d.IsFree() {
			continue
		}
		if d.MatchesName83(name) {
			return n, true
		}
	}
	return 0, false
}

// FirstFreeSlot scans the first MaxDirentsScanned entries of a root
// directory sector for an unused slot, returning its index and true if one
// exists.
func FirstFreeSlot(rootSector []byte) (int, bool) {
	for n := 0; n < MaxDirentsScanned; n++ {
		if DirentAt(rootSector, n).IsFree() {
			return n, true
		}
	}
	return 0, false
}

// ConfigFileName83 returns the fixed 8.3 name this device's one file is
// always registered under.
func ConfigFileName83() string {
	return layout.ConfigFileName8_3
}
