package intgen

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	seqBits = 12
	seqMask = 1<<seqBits - 1
)

// TimestampSeqGenerator 高 52 位毫秒时间戳，低 12 位序列号，进程内严格递增
type TimestampSeqGenerator struct {
	state atomic.Int64
	now   func() int64
}

func NewTimestampSeqGenerator() *TimestampSeqGenerator {
	g := &TimestampSeqGenerator{now: func() int64 { return time.Now().UnixMilli() }}
	g.state.Store(g.now() << seqBits)
	return g
}

func (g *TimestampSeqGenerator) Generate(ctx context.Context) (int64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		old := g.state.Load()
		oldTs, oldSeq := old>>seqBits, old&seqMask

		ts, seq := g.now(), int64(0)
		if ts <= oldTs {
			// 时钟回拨或者同一毫秒内，沿用旧时间戳继续递增
			ts, seq = oldTs, oldSeq+1
			if seq > seqMask {
				ts, seq = oldTs+1, 0
			}
		}

		next := ts<<seqBits | seq
		if g.state.CompareAndSwap(old, next) {
			return next, nil
		}
	}
}
