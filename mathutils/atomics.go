// Package mathutils provides the lock-free scalar update primitives the
// traversal kernels use on the push path: each is a CAS loop that reads
// the current value, computes the new one, and swaps until it wins.
// They tolerate concurrent writers from any socket to any word.
package mathutils

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// WriteAdd atomically adds delta to *addr, returning the old value.
func WriteAdd(addr *float64, delta float64) float64 {
	ptr := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(ptr)
		newVal := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(ptr, old, newVal) {
			return math.Float64frombits(old)
		}
	}
}

// WriteMult atomically multiplies *addr by f.
func WriteMult(addr *float64, f float64) {
	ptr := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(ptr)
		newVal := math.Float64bits(math.Float64frombits(old) * f)
		if atomic.CompareAndSwapUint64(ptr, old, newVal) {
			return
		}
	}
}

// WriteDiv atomically divides *addr by f.
func WriteDiv(addr *float64, f float64) {
	ptr := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(ptr)
		newVal := math.Float64bits(math.Float64frombits(old) / f)
		if atomic.CompareAndSwapUint64(ptr, old, newVal) {
			return
		}
	}
}

// WriteAddFloat32 atomically adds delta to *addr.
func WriteAddFloat32(addr *float32, delta float32) {
	ptr := (*uint32)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint32(ptr)
		newVal := math.Float32bits(math.Float32frombits(old) + delta)
		if atomic.CompareAndSwapUint32(ptr, old, newVal) {
			return
		}
	}
}

// WriteMultFloat32 atomically multiplies *addr by f.
func WriteMultFloat32(addr *float32, f float32) {
	ptr := (*uint32)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint32(ptr)
		newVal := math.Float32bits(math.Float32frombits(old) * f)
		if atomic.CompareAndSwapUint32(ptr, old, newVal) {
			return
		}
	}
}
