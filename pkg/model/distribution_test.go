package model

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguration_Locations(t *testing.T) {
	dist, err := url.Parse("https://example.com/dist.zip")
	require.NoError(t, err)

	cfg := Configuration{DistributionURL: dist}
	assert.Equal(t, "https://example.com/dist.zip", cfg.DistributionLocation())
	assert.Empty(t, cfg.ChecksumLocation())

	assert.Empty(t, Configuration{}.DistributionLocation())
}

func TestLocalDistribution_SiblingPaths(t *testing.T) {
	d := LocalDistribution{ArchivePath: "/cache/key/dist.zip", DistributionDir: "/cache/key/dist"}

	assert.Equal(t, "/cache/key/dist.zip.part", d.PartPath())
	assert.Equal(t, "/cache/key/dist.zip.checksum", d.ChecksumPath())
	assert.Equal(t, "/cache/key/dist.zip.lock", d.LockPath())
}
