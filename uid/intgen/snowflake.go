package intgen

import (
	"context"
	"net"
	"sync/atomic"
	"time"
)

const (
	machineIDBits  = 10
	maxMachineID   = 1<<machineIDBits - 1
	timestampShift = seqBits + machineIDBits
)

var snowflakeEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

type SnowflakeOptions struct {
	// 为空时从本机 IPv4 地址的后两个字节推导
	MachineID *int64 `cfg:"machineID"`
}

// SnowflakeGenerator 41 位时间戳 + 10 位机器号 + 12 位序列号
type SnowflakeGenerator struct {
	state     atomic.Int64
	machineID int64
	now       func() int64
}

func NewSnowflakeGeneratorWithOptions(options *SnowflakeOptions) *SnowflakeGenerator {
	machineID := int64(-1)
	if options != nil && options.MachineID != nil {
		machineID = *options.MachineID
	}
	if machineID < 0 {
		machineID = machineIDFromIP()
	}

	g := &SnowflakeGenerator{
		machineID: machineID & maxMachineID,
		now:       func() int64 { return time.Now().UnixMilli() - snowflakeEpoch },
	}
	g.state.Store(g.now() << seqBits)
	return g
}

func machineIDFromIP() int64 {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return 0
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipv4 := ipnet.IP.To4(); ipv4 != nil {
				return int64(ipv4[2])<<8 | int64(ipv4[3])
			}
		}
	}
	return 0
}

func (g *SnowflakeGenerator) Generate(ctx context.Context) (int64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		old := g.state.Load()
		oldTs, oldSeq := old>>seqBits, old&seqMask

		ts, seq := g.now(), int64(0)
		if ts <= oldTs {
			ts, seq = oldTs, oldSeq+1
			if seq > seqMask {
				ts, seq = oldTs+1, 0
			}
		}

		if g.state.CompareAndSwap(old, ts<<seqBits|seq) {
			return ts<<timestampShift | g.machineID<<seqBits | seq, nil
		}
	}
}
