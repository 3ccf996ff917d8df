package fat12_test

import (
	"testing"

	"github.com/halfword/configvol/fat12"
	"github.com/halfword/configvol/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRootSector() []byte {
	return make([]byte, layout.SectorSize)
}

func TestFirstFreeSlotOnEmptyDirectory(t *testing.T) {
	root := newRootSector()
	idx, ok := fat12.FirstFreeSlot(root)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestSetNameAndFind(t *testing.T) {
	root := newRootSector()
	d := fat12.DirentAt(root, 0)
	d.SetName83(fat12.ConfigFileName83())
	d.SetAttributes(fat12.AttributeRegularFile)
	d.SetStartCluster(2)
	d.SetFileSize(42)

	idx, ok := fat12.FindByName83(root, "config.txt")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	found := fat12.DirentAt(root, idx)
	assert.EqualValues(t, 2, found.StartCluster())
	assert.EqualValues(t, 42, found.FileSize())
	assert.False(t, found.IsFree())
}

func TestFindByNameMissing(t *testing.T) {
	root := newRootSector()
	_, ok := fat12.FindByName83(root, "config.txt")
	assert.False(t, ok)
}

func TestOnlyFirstSixteenEntriesScanned(t *testing.T) {
	root := make([]byte, layout.SectorSize*2) // pretend a bigger buffer
	d := fat12.DirentAt(root, fat12.MaxDirentsScanned)
	d.SetName83(fat12.ConfigFileName83())

	_, ok := fat12.FindByName83(root, "config.txt")
	assert.False(t, ok, "entries beyond the first sector must not be scanned")
}
