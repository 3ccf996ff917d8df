package flash_test

import (
	"errors"
	"testing"

	"github.com/halfword/configvol/dirtypages"
	"github.com/halfword/configvol/flash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallPageGeometry() flash.Geometry {
	return flash.Geometry{BaseAddress: 0x0800_0000, PageBytes: 1024, ImageBytes: 16 * 1024}
}

func unitaryGeometry() flash.Geometry {
	return flash.Geometry{BaseAddress: 0x0800_0000, PageBytes: 16 * 1024, ImageBytes: 16 * 1024}
}

func TestCommitDirtyNoPendingIsNoop(t *testing.T) {
	geom := smallPageGeometry()
	sim, raw := flash.NewSimulator(geom)
	store := flash.New(sim, geom, raw, nil)
	tracker := dirtypages.New(geom.ImageBytes, geom.PageBytes)

	image := make([]byte, geom.ImageBytes)
	require.NoError(t, store.CommitDirty(image, tracker))
}

func TestCommitDirtySmallPageOnlyTouchesDirtyPages(t *testing.T) {
	geom := smallPageGeometry()
	sim, raw := flash.NewSimulator(geom)
	store := flash.New(sim, geom, raw, nil)
	tracker := dirtypages.New(geom.ImageBytes, geom.PageBytes)

	image := make([]byte, geom.ImageBytes)
	image[0] = 0xAB
	tracker.MarkDirty(0)

	require.NoError(t, store.CommitDirty(image, tracker))
	assert.False(t, tracker.AnyDirty())
	assert.EqualValues(t, 0xAB, store.ReadAll()[0])
	assert.EqualValues(t, 0x00, store.ReadAll()[1024], "page 1 was never dirty, must be untouched")
}

func TestCommitDirtyUnitaryRewritesWholeImage(t *testing.T) {
	geom := unitaryGeometry()
	sim, raw := flash.NewSimulator(geom)
	store := flash.New(sim, geom, raw, nil)
	tracker := dirtypages.New(geom.ImageBytes, geom.PageBytes)

	image := make([]byte, geom.ImageBytes)
	image[len(image)-2] = 0xCD
	tracker.MarkDirty(0)

	require.NoError(t, store.CommitDirty(image, tracker))
	assert.False(t, tracker.AnyDirty())
	assert.EqualValues(t, 0xCD, store.ReadAll()[len(image)-2])
}

type failingProgrammer struct {
	*flash.Simulator
	failAt int
	calls  int
}

func (f *failingProgrammer) ProgramHalfword(address uint32, data uint16) error {
	f.calls++
	if f.calls == f.failAt {
		return errors.New("simulated program failure")
	}
	return f.Simulator.ProgramHalfword(address, data)
}

func TestCommitDirtyFailureLeavesPageDirty(t *testing.T) {
	geom := smallPageGeometry()
	sim, raw := flash.NewSimulator(geom)
	failing := &failingProgrammer{Simulator: sim, failAt: 1}
	store := flash.New(failing, geom, raw, nil)
	tracker := dirtypages.New(geom.ImageBytes, geom.PageBytes)

	image := make([]byte, geom.ImageBytes)
	tracker.MarkDirty(0)

	err := store.CommitDirty(image, tracker)
	assert.Error(t, err)
	assert.True(t, tracker.IsDirty(0), "failed page must stay dirty so the next tick retries")
}

func TestReadAllReturnsACopy(t *testing.T) {
	geom := smallPageGeometry()
	sim, raw := flash.NewSimulator(geom)
	store := flash.New(sim, geom, raw, nil)

	copy1 := store.ReadAll()
	copy1[0] = 0x99

	assert.NotEqual(t, copy1[0], store.ReadAll()[0])
}
