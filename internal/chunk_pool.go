package internal

import "sync"

// ChunkPool recycles fixed-size read buffers.
type ChunkPool struct {
	size int
	pool sync.Pool
}

func NewChunkPool(size int) *ChunkPool {
	p := &ChunkPool{size: size}
	p.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return p
}

// Get returns a buffer of length n, which must not exceed the pool size.
func (p *ChunkPool) Get(n int) *[]byte {
	buf := p.pool.Get().(*[]byte)
	*buf = (*buf)[:n]
	return buf
}

func (p *ChunkPool) Put(buf *[]byte) {
	*buf = (*buf)[:p.size]
	p.pool.Put(buf)
}
