package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkPool(t *testing.T) {
	p := NewChunkPool(64)

	buf := p.Get(10)
	assert.Len(t, *buf, 10)
	assert.Equal(t, 64, cap(*buf))

	p.Put(buf)

	buf = p.Get(64)
	assert.Len(t, *buf, 64)
}
