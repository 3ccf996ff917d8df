package gatekeeper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfword/configvol/fat12"
	"github.com/halfword/configvol/gatekeeper"
	"github.com/halfword/configvol/layout"
	"github.com/halfword/configvol/registry"
)

func newRegistry(t *testing.T) *registry.Registry {
	reg := registry.New()
	require.NoError(t, reg.Register("WIFI_SSID", "unset", "network name", nil, nil, nil))
	return reg
}

func TestClassifyDataSectorAllowsConfigCluster(t *testing.T) {
	g := gatekeeper.New(newRegistry(t), nil)
	decision := g.ClassifyDataSector(5, 5, []byte("anything at all"), true)
	assert.Equal(t, gatekeeper.Accept, decision)
}

func TestClassifyDataSectorRejectsNonConfigOnClusterTwo(t *testing.T) {
	g := gatekeeper.New(newRegistry(t), nil)
	dotFile := make([]byte, 512)
	dotFile[0] = 0x00

	decision := g.ClassifyDataSector(uint32(layout.FirstDataCluster), 0, dotFile, false)
	assert.Equal(t, gatekeeper.Reject, decision)
}

func TestClassifyDataSectorAcceptsConfigLookingDataOnClusterTwo(t *testing.T) {
	g := gatekeeper.New(newRegistry(t), nil)
	sector := make([]byte, 512)
	copy(sector, "WIFI_SSID=homelab\r\n")

	decision := g.ClassifyDataSector(uint32(layout.FirstDataCluster), 0, sector, false)
	assert.Equal(t, gatekeeper.Accept, decision)
}

func TestClassifyDataSectorRejectsDotFileInTailClusters(t *testing.T) {
	g := gatekeeper.New(newRegistry(t), nil)
	sector := make([]byte, 512)
	sector[0] = '.'
	sector[1] = '_'

	decision := g.ClassifyDataSector(uint32(layout.FirstDataCluster)+1, 0, sector, true)
	assert.Equal(t, gatekeeper.Reject, decision)
}

func TestClassifyDataSectorAcceptsTailClusterWhenCanonicalHasNoConfig(t *testing.T) {
	g := gatekeeper.New(newRegistry(t), nil)
	sector := make([]byte, 512)
	sector[0] = 0x05

	decision := g.ClassifyDataSector(uint32(layout.FirstDataCluster)+1, 0, sector, false)
	assert.Equal(t, gatekeeper.Accept, decision)
}

func TestClassifyDataSectorAcceptsClusterBeyondCeiling(t *testing.T) {
	g := gatekeeper.New(newRegistry(t), nil)
	sector := make([]byte, 512)
	sector[0] = 0x00

	decision := g.ClassifyDataSector(500, 0, sector, true)
	assert.Equal(t, gatekeeper.Accept, decision)
}

func rootSectorWithConfigEntry(size uint32) []byte {
	root := make([]byte, 512)
	entry := fat12.DirentAt(root, 0)
	entry.SetName83("CONFIG  TXT")
	entry.SetStartCluster(2)
	entry.SetFileSize(size)
	return root
}

func TestClassifyRootDirectoryWriteSuppressesTransientZeroSize(t *testing.T) {
	g := gatekeeper.New(newRegistry(t), nil)

	real := rootSectorWithConfigEntry(40)
	outcome := g.ClassifyRootDirectoryWrite(real)
	assert.False(t, outcome.Suppress)

	transient := rootSectorWithConfigEntry(0)
	outcome = g.ClassifyRootDirectoryWrite(transient)
	assert.True(t, outcome.Suppress)
}

func TestClassifyRootDirectoryWriteDoesNotSuppressFirstEverZeroSize(t *testing.T) {
	g := gatekeeper.New(newRegistry(t), nil)

	transient := rootSectorWithConfigEntry(0)
	outcome := g.ClassifyRootDirectoryWrite(transient)
	assert.False(t, outcome.Suppress)
}

func TestClassifyRootDirectoryWriteNoEntryIsNotSuppressed(t *testing.T) {
	g := gatekeeper.New(newRegistry(t), nil)
	root := make([]byte, 512)

	outcome := g.ClassifyRootDirectoryWrite(root)
	assert.False(t, outcome.Suppress)
}
