package numautils

import (
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// BindToNode locks the calling goroutine to its OS thread and restricts
// that thread to the CPUs of the given node. Memory the thread
// allocates and touches afterwards is placed on that node by the
// kernel's first-touch policy, which is how socket-local allocation is
// expressed here. Callers must pair with UnbindThread when the worker
// exits.
func (t *Topology) BindToNode(node int) error {
	runtime.LockOSThread()
	if t.fake {
		return nil
	}
	cpus, ok := t.nodeCPUs[node]
	if !ok || len(cpus) == 0 {
		return errors.Errorf("no CPUs for node %d", node)
	}
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		set.Set(cpu)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "bind thread to node %d", node)
	}
	return nil
}

// UnbindThread releases the OS-thread lock taken by BindToNode.
func (t *Topology) UnbindThread() {
	runtime.UnlockOSThread()
}
