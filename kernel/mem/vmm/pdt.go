package vmm

import (
	"nyxkernel/kernel"
	"nyxkernel/kernel/addr"
)

var (
	// activePDTFn is used by tests to override calls to activePDT which
	// would otherwise fault outside of kernel (ring 0) mode.
	activePDTFn = activePDT

	// switchPDTFn is used by tests to override calls to switchPDT which
	// would otherwise fault outside of kernel (ring 0) mode.
	switchPDTFn = switchPDT
)

// Pagemap wraps a PML4 root frame and exposes Map/Unmap/Translate against
// it. Unlike the recursively-mapped scheme this replaces, a Pagemap needs no
// temporary mapping to edit an inactive table: every table, active or not,
// is already reachable through the HHDM window.
type Pagemap struct {
	root addr.PhysAddr
}

// NewPagemap wraps an existing PML4 frame, as reported by the boot
// collaborator's PagemapRoot.
func NewPagemap(root addr.PhysAddr) Pagemap {
	return Pagemap{root: root}
}

// Root returns the physical address of this pagemap's PML4.
func (pm Pagemap) Root() addr.PhysAddr { return pm.root }

// Map establishes a mapping in this pagemap.
func (pm Pagemap) Map(virt addr.VirtAddr, phys addr.PhysAddr, flags PageTableEntryFlag) *kernel.Error {
	return Map(pm.root, virt, phys, flags)
}

// Unmap removes a mapping from this pagemap.
func (pm Pagemap) Unmap(virt addr.VirtAddr) *kernel.Error {
	return Unmap(pm.root, virt)
}

// Translate resolves a virtual address to its backing physical address in
// this pagemap.
func (pm Pagemap) Translate(virt addr.VirtAddr) (addr.PhysAddr, *kernel.Error) {
	return Translate(pm.root, virt)
}

// Activate installs this pagemap as the CPU's active translation tree.
func (pm Pagemap) Activate() {
	switchPDTFn(uintptr(pm.root))
}

// ActivePagemap returns the currently active pagemap, as reported by the
// architecture's CR3 register.
func ActivePagemap() Pagemap {
	return Pagemap{root: addr.PhysAddr(activePDTFn())}
}
