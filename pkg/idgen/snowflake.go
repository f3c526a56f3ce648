// Package idgen Snowflake ID 生成器，用于错误响应中的 error_id 等可追踪标识
package idgen

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	// Epoch 起始时间戳 (2023-01-01 00:00:00 UTC)
	Epoch int64 = 1672502400000 // 毫秒时间戳

	// 位数分配
	WorkerIDBits     = 5  // 工作机器ID位数
	DatacenterIDBits = 5  // 数据中心ID位数
	SequenceBits     = 12 // 序列号位数

	// 最大值计算(切记不是个数)
	MaxWorkerID     = -1 ^ (-1 << WorkerIDBits)     // 31
	MaxDatacenterID = -1 ^ (-1 << DatacenterIDBits) // 31
	MaxSequence     = -1 ^ (-1 << SequenceBits)     // 4095

	// 位移量
	WorkerIDShift     = SequenceBits                                   // 12
	DatacenterIDShift = SequenceBits + WorkerIDBits                    // 17
	TimestampShift    = SequenceBits + WorkerIDBits + DatacenterIDBits // 22

	// 等待下一毫秒时的休眠时间
	sleepDuration = 100 * time.Microsecond
)

var (
	// ErrInvalidWorkerID 工作机器ID超出有效范围
	ErrInvalidWorkerID = errors.New("invalid worker id: must be between 0 and 31")

	// ErrInvalidDatacenterID 数据中心ID超出有效范围
	ErrInvalidDatacenterID = errors.New("invalid datacenter id: must be between 0 and 31")

	// ErrClockMovedBackwards 检测到时钟回拨
	ErrClockMovedBackwards = errors.New("clock moved backwards: refusing to generate id")
)

// ID Snowflake ID
type ID int64

// String 十进制字符串
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Time ID 中的生成时间
func (id ID) Time() time.Time {
	return time.UnixMilli((int64(id) >> TimestampShift) + Epoch)
}

// Parts 拆分 ID：数据中心ID、工作机器ID、序列号
func (id ID) Parts() (datacenterID, workerID, sequence int64) {
	v := int64(id)
	return (v >> DatacenterIDShift) & MaxDatacenterID, (v >> WorkerIDShift) & MaxWorkerID, v & MaxSequence
}

// Snowflake Snowflake 算法的 ID 生成器（线程安全）
// ID结构：时间戳(41位) | 数据中心ID(5位) | 工作机器ID(5位) | 序列号(12位)
type Snowflake struct {
	mu sync.Mutex

	lastTimestamp int64
	sequence      int64

	// precomputed 预计算的 datacenterID 与 workerID 部分
	precomputed int64

	// now 时钟，测试时可替换
	now func() int64
}

// NewSnowflake 创建生成器
func NewSnowflake(datacenterID, workerID int64) (*Snowflake, error) {
	if datacenterID < 0 || datacenterID > MaxDatacenterID {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDatacenterID, datacenterID)
	}
	if workerID < 0 || workerID > MaxWorkerID {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerID, workerID)
	}
	return &Snowflake{
		lastTimestamp: -1,
		precomputed:   (datacenterID << DatacenterIDShift) | (workerID << WorkerIDShift),
		now:           func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// NextID 生成下一个唯一ID
func (s *Snowflake) NextID() (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timestamp := s.now()
	if timestamp < s.lastTimestamp {
		return 0, fmt.Errorf("%w: detected backward drift of %d ms",
			ErrClockMovedBackwards, s.lastTimestamp-timestamp)
	}

	if timestamp == s.lastTimestamp {
		s.sequence = (s.sequence + 1) & MaxSequence
		if s.sequence == 0 {
			// 当前毫秒序列号耗尽
			timestamp = s.waitNextMillis(s.lastTimestamp)
		}
	} else {
		s.sequence = 0
	}
	s.lastTimestamp = timestamp

	return ID(((timestamp - Epoch) << TimestampShift) | s.precomputed | s.sequence), nil
}

// waitNextMillis 等待直到获取到比 last 更大的时间戳
func (s *Snowflake) waitNextMillis(last int64) int64 {
	timestamp := s.now()
	for timestamp <= last {
		time.Sleep(sleepDuration)
		timestamp = s.now()
	}
	return timestamp
}

var (
	defaultSnowflake *Snowflake
	once             sync.Once
)

// Default 默认生成器（datacenter 0, worker 0）
func Default() *Snowflake {
	once.Do(func() {
		defaultSnowflake, _ = NewSnowflake(0, 0)
	})
	return defaultSnowflake
}

// NextID 使用默认生成器生成ID
func NextID() (ID, error) {
	return Default().NextID()
}
