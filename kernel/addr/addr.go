// Package addr defines the physical and virtual address types shared by
// every layer of the memory core. The two types are representationally
// identical (a uint64) but are kept distinct so the compiler catches any
// attempt to use a physical address where a virtual one is expected, or
// vice-versa.
package addr

import "nyxkernel/kernel/mem"

// PhysAddr represents an address in physical memory.
type PhysAddr uint64

// VirtAddr represents an address in the kernel's virtual address space.
type VirtAddr uint64

// NewPhys wraps a raw integer as a PhysAddr.
func NewPhys(v uint64) PhysAddr { return PhysAddr(v) }

// NewVirt wraps a raw integer as a VirtAddr.
func NewVirt(v uint64) VirtAddr { return VirtAddr(v) }

// IsNull returns true if this is the null (zero) address.
func (p PhysAddr) IsNull() bool { return p == 0 }

// IsNull returns true if this is the null (zero) address.
func (v VirtAddr) IsNull() bool { return v == 0 }

// IsPageAligned returns true if the address is aligned to mem.PageSize.
func (p PhysAddr) IsPageAligned() bool { return p.IsAlignedTo(uint64(mem.PageSize)) }

// IsPageAligned returns true if the address is aligned to mem.PageSize.
func (v VirtAddr) IsPageAligned() bool { return v.IsAlignedTo(uint64(mem.PageSize)) }

// IsAlignedTo returns true if the address is a multiple of n. n must be a
// power of two.
func (p PhysAddr) IsAlignedTo(n uint64) bool { return uint64(p)&(n-1) == 0 }

// IsAlignedTo returns true if the address is a multiple of n. n must be a
// power of two.
func (v VirtAddr) IsAlignedTo(n uint64) bool { return uint64(v)&(n-1) == 0 }

// AlignUp rounds the address up to the next multiple of n (a power of two).
func (p PhysAddr) AlignUp(n uint64) PhysAddr {
	return PhysAddr((uint64(p) + n - 1) &^ (n - 1))
}

// AlignUp rounds the address up to the next multiple of n (a power of two).
func (v VirtAddr) AlignUp(n uint64) VirtAddr {
	return VirtAddr((uint64(v) + n - 1) &^ (n - 1))
}

// AlignDown rounds the address down to the previous multiple of n (a power
// of two).
func (p PhysAddr) AlignDown(n uint64) PhysAddr {
	return PhysAddr(uint64(p) &^ (n - 1))
}

// AlignDown rounds the address down to the previous multiple of n (a power
// of two).
func (v VirtAddr) AlignDown(n uint64) VirtAddr {
	return VirtAddr(uint64(v) &^ (n - 1))
}

// Add returns p + delta.
func (p PhysAddr) Add(delta uint64) PhysAddr { return p + PhysAddr(delta) }

// Add returns v + delta.
func (v VirtAddr) Add(delta uint64) VirtAddr { return v + VirtAddr(delta) }

// Uint64 returns the raw integer value of the address.
func (p PhysAddr) Uint64() uint64 { return uint64(p) }

// Uint64 returns the raw integer value of the address.
func (v VirtAddr) Uint64() uint64 { return uint64(v) }

// AsPointer reinterprets a VirtAddr as a raw pointer into the kernel's
// address space. Callers are responsible for ensuring that the address is
// actually mapped before dereferencing the result.
func (v VirtAddr) AsPointer() uintptr { return uintptr(v) }
