package logicclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInfo(t *testing.T) {
	info := ParseInfo(`id=7 name="My Graph" numobjs=42 period=250 avg=31 revision=12.3 extra=yes`)

	assert.Equal(t, 7, info.ID)
	assert.Equal(t, 42, info.NumObjs)
	assert.Equal(t, 250, info.Period)
	assert.Equal(t, 31, info.Avg)
	assert.True(t, info.HasRevision)
	assert.Equal(t, Revision{Major: 12, Minor: 3}, info.Revision)
	assert.Equal(t, "12.3", info.Revision.String())

	v, ok := info.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "My Graph", v)

	v, ok = info.Get("extra")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
}

func TestParseInfo_Missing(t *testing.T) {
	info := ParseInfo("id=1 bogus")

	assert.Equal(t, 1, info.ID)
	assert.Zero(t, info.NumObjs)
	assert.False(t, info.HasRevision)
	assert.Equal(t, Revision{}, info.Revision)

	_, ok := info.Get("bogus")
	assert.False(t, ok)
}

func TestParseInfo_RevisionWithoutMinor(t *testing.T) {
	info := ParseInfo("revision=5")
	assert.True(t, info.HasRevision)
	assert.Equal(t, Revision{Major: 5}, info.Revision)
}
