// Package pmm implements the physical frame allocator: a per-region bitmap
// built from the firmware memory map and reached through the higher-half
// direct map, handing out and reclaiming page-sized, page-aligned physical
// frames.
package pmm

import (
	"math"

	"nyxkernel/kernel/addr"
	"nyxkernel/kernel/mem"
)

// Frame describes a physical memory page index.
type Frame uint64

// InvalidFrame is returned by the allocator when it fails to reserve the
// requested frame.
const InvalidFrame = Frame(math.MaxUint64)

// IsValid returns true if this is a valid frame.
func (f Frame) IsValid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the first byte of this frame.
func (f Frame) Address() addr.PhysAddr {
	return addr.PhysAddr(uint64(f) << mem.PageShift)
}

// FrameFromAddress returns the frame containing the given physical address.
func FrameFromAddress(p addr.PhysAddr) Frame {
	return Frame(p.Uint64() >> mem.PageShift)
}
