package featureflags

import (
	"sync/atomic"

	"github.com/Sidd-007/eppo-go/pkg/evalconfig"
)

// snapshotHolder publishes configuration snapshots via a single atomic
// pointer swap: readers never block on a writer mid-fetch, and every
// evaluation call sees either the previous snapshot or the new one in
// full, never a partially-updated mix of the two.
type snapshotHolder struct {
	ptr atomic.Pointer[evalconfig.PreparedSnapshot]
}

func (h *snapshotHolder) publish(snap *evalconfig.PreparedSnapshot) {
	h.ptr.Store(snap)
}

func (h *snapshotHolder) current() *evalconfig.PreparedSnapshot {
	return h.ptr.Load()
}
