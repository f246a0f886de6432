package coarsetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowIsRecent(t *testing.T) {
	got := Now()
	assert.WithinDuration(t, time.Now(), got, 2*tick)
}

func TestNowAdvances(t *testing.T) {
	first := Now()
	assert.Eventually(t, func() bool {
		return Now().After(first)
	}, time.Second, tick/5)
}

// BenchmarkTimeNow/time-8         	35926340	         32.82 ns/op	       0 B/op	       0 allocs/op
// BenchmarkTimeNow/coarsetime-8   	609668066	         1.950 ns/op	       0 B/op	       0 allocs/op
func BenchmarkTimeNow(b *testing.B) {
	var t time.Time

	b.Run("time", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			t = time.Now()
		}
	})

	b.Run("coarsetime", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			t = Now()
		}
	})

	_ = t
}
