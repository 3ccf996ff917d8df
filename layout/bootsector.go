package layout

import (
	"bytes"
	"encoding/binary"
)

// RawBootSectorBPB is the BIOS Parameter Block common to all FAT variants,
// laid out field-for-field like github.com/dargueta/disko's
// fat.RawFATBootSectorWithBPB so it round-trips through encoding/binary
// unchanged.
type RawBootSectorBPB struct {
	JmpBoot           [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	SectorsPerFAT16   uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
}

// RawFAT12BootSector extends RawBootSectorBPB with the FAT12-specific
// extended BPB fields, mirroring
// github.com/dargueta/disko/file_systems/fat.RawFAT12BootSector.
type RawFAT12BootSector struct {
	RawBootSectorBPB
	DriveNumber     uint8
	NTReserved      uint8
	ExBootSignature uint8
	VolumeID        uint32
	VolumeLabel     [11]byte
	FileSystemType  [8]byte
}

func padded(s string, n int) [11]byte {
	var out [11]byte
	copy(out[:], s)
	for i := len(s); i < n && i < 11; i++ {
		out[i] = ' '
	}
	return out
}

func padded8(s string, n int) [8]byte {
	var out [8]byte
	copy(out[:], s)
	for i := len(s); i < n && i < 8; i++ {
		out[i] = ' '
	}
	return out
}

// bootSectorStruct is the typed form of the boot sector baked into this
// device. It is serialized once, at package init, into BootSectorBytes.
var bootSectorStruct = RawFAT12BootSector{
	RawBootSectorBPB: RawBootSectorBPB{
		JmpBoot:           [3]byte{0xEB, 0x3C, 0x90},
		OEMName:           [8]byte{'m', 'k', 'd', 'o', 's', 'f', 's', 0x00},
		BytesPerSector:    SectorSize,
		SectorsPerCluster: 1,
		ReservedSectors:   ReservedSectors,
		NumFATs:           2,
		RootEntryCount:    RootDirSectors * SectorSize / 32,
		TotalSectors16:    SectorCount,
		Media:             MediaDescriptor,
		SectorsPerFAT16:   SectorsPerFAT,
		SectorsPerTrack:   1,
		NumHeads:          1,
		HiddenSectors:     0,
		TotalSectors32:    0,
	},
	DriveNumber:     0,
	NTReserved:      0,
	ExBootSignature: 0x29,
	VolumeID:        VolumeSerialNumber,
	VolumeLabel:     padded(VolumeLabel, len(VolumeLabel)),
	FileSystemType:  padded8(FileSystemTypeLabel, len(FileSystemTypeLabel)),
}

// BootSectorBytes is the full, constant 512-byte boot sector returned for
// every read of sector 0. It never changes at runtime.
var BootSectorBytes [SectorSize]byte

func init() {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, bootSectorStruct); err != nil {
		panic("layout: failed to serialize compiled-in boot sector: " + err.Error())
	}
	copy(BootSectorBytes[:], buf.Bytes())
}
