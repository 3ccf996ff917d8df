package fat12_test

import (
	"testing"

	"github.com/halfword/configvol/fat12"
	"github.com/halfword/configvol/layout"
	"github.com/stretchr/testify/assert"
)

func TestSetGetEntryRoundTrip(t *testing.T) {
	fat := make([]byte, layout.SectorSize)

	fat12.SetEntry(fat, 2, 3)
	fat12.SetEntry(fat, 3, fat12.EndOfChain)

	assert.EqualValues(t, 3, fat12.GetEntry(fat, 2))
	assert.EqualValues(t, fat12.EndOfChain, fat12.GetEntry(fat, 3))
}

func TestSetEntryDoesNotClobberNeighbor(t *testing.T) {
	fat := make([]byte, layout.SectorSize)

	fat12.SetEntry(fat, 2, 0x0ABC)
	fat12.SetEntry(fat, 3, 0x0DEF)

	assert.EqualValues(t, 0x0ABC, fat12.GetEntry(fat, 2))
	assert.EqualValues(t, 0x0DEF, fat12.GetEntry(fat, 3))
}

func TestRebuildChainSingleCluster(t *testing.T) {
	fat := make([]byte, layout.SectorSize)
	fat[0], fat[1], fat[2] = 0xF8, 0xFF, 0xFF

	fat12.RebuildChain(fat, 100) // one cluster's worth

	assert.EqualValues(t, fat12.EndOfChain, fat12.GetEntry(fat, 2))
	assert.EqualValues(t, byte(0xF8), fat[0], "media byte must survive rebuild")
}

func TestRebuildChainMultiCluster(t *testing.T) {
	fat := make([]byte, layout.SectorSize)

	fat12.RebuildChain(fat, layout.SectorSize+1) // needs 2 clusters

	assert.EqualValues(t, 3, fat12.GetEntry(fat, 2))
	assert.EqualValues(t, fat12.EndOfChain, fat12.GetEntry(fat, 3))
	assert.Equal(t, 2, fat12.ChainLength(fat, 2))
}

func TestRebuildChainZeroSizeStillGetsOneCluster(t *testing.T) {
	fat := make([]byte, layout.SectorSize)
	fat12.RebuildChain(fat, 0)
	assert.EqualValues(t, fat12.EndOfChain, fat12.GetEntry(fat, 2))
}
