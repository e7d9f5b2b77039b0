package numautils

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// PageSize is the assumed small-page size for alignment and binding.
const PageSize = 4096

const (
	mpolBind       = 2
	mpolInterleave = 3
)

// MapDataArray allocates one contiguous region of elemSize*n bytes
// (n = sum of sizeArr) whose physical pages are bound to socket s for
// the sub-range belonging to s. The returned slice is usable uniformly
// by all threads. On fake topologies it degrades to an ordinary
// allocation.
func MapDataArray(t *Topology, sizeArr []int, elemSize int) ([]byte, error) {
	total := 0
	for _, sz := range sizeArr {
		total += sz
	}
	length := total * elemSize
	if length == 0 {
		return nil, nil
	}
	if t.fake {
		return make([]byte, length), nil
	}
	buf, err := unix.Mmap(-1, 0, roundUpPage(length),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "mmap data array")
	}
	// Bind each socket's page range, then fault the pages in from a
	// thread running on that socket so first-touch agrees with mbind.
	var wg sync.WaitGroup
	offset := 0
	for s, sz := range sizeArr {
		lo := offset * elemSize
		hi := (offset + sz) * elemSize
		offset += sz
		if hi <= lo {
			continue
		}
		lo = lo &^ (PageSize - 1)
		wg.Add(1)
		go func(node, lo, hi int) {
			defer wg.Done()
			if err := t.BindToNode(node); err == nil {
				defer t.UnbindThread()
			}
			mbindRange(t, buf[lo:hi], node)
			for p := lo; p < hi; p += PageSize {
				buf[p] = 0
			}
		}(t.nodes[s], lo, hi)
	}
	wg.Wait()
	return buf[:length], nil
}

// Striped returns a typed view of a MapDataArray region sized to
// sum(sizeArr) elements of T.
func Striped[T any](t *Topology, sizeArr []int) ([]T, error) {
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	buf, err := MapDataArray(t, sizeArr, elemSize)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&buf[0])), len(buf)/elemSize), nil
}

// mbindRange asks the kernel to keep the pages of buf on node.
// Best-effort: first-touch from the bound thread covers the common
// case when the syscall is unavailable.
func mbindRange(t *Topology, buf []byte, node int) {
	if t.fake || len(buf) == 0 {
		return
	}
	mask := nodeMask(node)
	_, _, errno := unix.Syscall6(unix.SYS_MBIND,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
		uintptr(mpolBind),
		uintptr(unsafe.Pointer(&mask[0])),
		uintptr(len(mask)*64),
		0)
	_ = errno
}

// SetInterleaveAll sets the process memory policy to interleave
// unspecified allocations across all nodes, as the hot-path
// allocations all request socket-local placement explicitly.
func SetInterleaveAll(t *Topology) error {
	if t.fake {
		return nil
	}
	var mask [8]uint64
	for _, node := range t.nodes {
		mask[node/64] |= uint64(1) << (uint(node) % 64)
	}
	_, _, errno := unix.Syscall(unix.SYS_SET_MEMPOLICY,
		uintptr(mpolInterleave),
		uintptr(unsafe.Pointer(&mask[0])),
		uintptr(len(mask)*64))
	if errno != 0 {
		return errors.Wrap(errno, "set_mempolicy interleave")
	}
	return nil
}

func nodeMask(node int) []uint64 {
	mask := make([]uint64, node/64+1)
	mask[node/64] = uint64(1) << (uint(node) % 64)
	return mask
}

func roundUpPage(n int) int {
	return (n + PageSize - 1) &^ (PageSize - 1)
}
