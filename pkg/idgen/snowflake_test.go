package idgen

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowflake(t *testing.T) {
	tests := []struct {
		name         string
		datacenterID int64
		workerID     int64
		wantErr      error
	}{
		{"有效参数_最小值", 0, 0, nil},
		{"有效参数_最大值", 31, 31, nil},
		{"无效WorkerID_负数", 1, -1, ErrInvalidWorkerID},
		{"无效WorkerID_超出", 1, 32, ErrInvalidWorkerID},
		{"无效DatacenterID_负数", -1, 1, ErrInvalidDatacenterID},
		{"无效DatacenterID_超出", 32, 1, ErrInvalidDatacenterID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sf, err := NewSnowflake(tt.datacenterID, tt.workerID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, sf)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, sf)
		})
	}
}

func TestSnowflake_NextID(t *testing.T) {
	sf, err := NewSnowflake(10, 5)
	require.NoError(t, err)

	id1, err := sf.NextID()
	require.NoError(t, err)
	assert.Greater(t, int64(id1), int64(0))

	id2, err := sf.NextID()
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	datacenterID, workerID, _ := id1.Parts()
	assert.Equal(t, int64(10), datacenterID)
	assert.Equal(t, int64(5), workerID)
	assert.WithinDuration(t, time.Now(), id1.Time(), time.Second)
}

func TestSnowflake_Concurrent(t *testing.T) {
	sf, err := NewSnowflake(1, 1)
	require.NoError(t, err)

	const goroutines, perGoroutine = 8, 2000
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		ids = make(map[ID]struct{}, goroutines*perGoroutine)
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				id, err := sf.NextID()
				assert.NoError(t, err)
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, goroutines*perGoroutine, "ID 必须唯一")
}

func TestSnowflake_SequenceOverflow(t *testing.T) {
	sf, err := NewSnowflake(0, 0)
	require.NoError(t, err)

	ticks := int64(Epoch + 1000)
	calls := 0
	sf.now = func() int64 {
		calls++
		// 前 MaxSequence+2 次调用停在同一毫秒
		if calls > MaxSequence+2 {
			return ticks + 1
		}
		return ticks
	}

	seen := make(map[ID]struct{})
	for i := 0; i <= MaxSequence+1; i++ {
		id, err := sf.NextID()
		require.NoError(t, err)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, MaxSequence+2)
}

func TestSnowflake_ClockBackwards(t *testing.T) {
	sf, err := NewSnowflake(0, 0)
	require.NoError(t, err)

	now := int64(Epoch + 5000)
	sf.now = func() int64 { return now }
	_, err = sf.NextID()
	require.NoError(t, err)

	now -= 10
	_, err = sf.NextID()
	assert.ErrorIs(t, err, ErrClockMovedBackwards)
}

func TestID_String(t *testing.T) {
	assert.Equal(t, "123456789", ID(123456789).String())
}
