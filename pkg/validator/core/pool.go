package core

import (
	"sync"
)

// ============================================================================
// 对象池优化 - 减少内存分配和 GC 压力
// ============================================================================

const (
	// maxPooledErrors 错误列表容量超过此值时不再复用，防止内存常驻
	maxPooledErrors = 1000
	// maxPooledDepth 路径栈容量超过此值时不再复用
	maxPooledDepth = 256
)

// validationContextPool ValidationContext 对象池
// 线程安全：sync.Pool 是线程安全的；取出的实例只属于一次校验调用
var validationContextPool = sync.Pool{
	New: func() any {
		return NewValidationContext()
	},
}

// AcquireContext 从对象池获取 ValidationContext
// 使用后必须调用 ReleaseContext 归还，归还前用 TakeErrors 取走错误
func AcquireContext() *ValidationContext {
	vc := validationContextPool.Get().(*ValidationContext)
	vc.reset()
	return vc
}

// ReleaseContext 将 ValidationContext 归还到对象池
func ReleaseContext(vc *ValidationContext) {
	if vc == nil {
		return
	}

	// 防止内存泄漏：过大的实例直接丢弃
	if cap(vc.Errors) > maxPooledErrors || cap(vc.path) > maxPooledDepth {
		return
	}

	vc.reset()
	validationContextPool.Put(vc)
}
