package vmm

import (
	"unsafe"

	"nyxkernel/kernel/addr"
)

// pageTableWalker is invoked once per translation level while walking a
// virtual address down a page table tree. Returning false aborts the walk.
type pageTableWalker func(level int, pte *pageTableEntry) bool

// walk descends the 4-level translation tree rooted at root, starting from
// the higher-half direct map rather than a recursively mapped last PML4
// entry: at each level the table's physical address is already readable at
// hhdm+tableAddr, so there is no need to install or tear down a temporary
// mapping to inspect an inactive table.
func walk(hhdm uint64, root addr.PhysAddr, virt addr.VirtAddr, walkFn pageTableWalker) {
	tableAddr := root

	for level := 0; level < pageLevels; level++ {
		shift := pageLevelShifts[level]
		index := (virt.Uint64() >> shift) & ((1 << pageLevelBits) - 1)

		tableVirt := uintptr(hhdm) + uintptr(tableAddr)
		entry := (*pageTableEntry)(unsafe.Pointer(tableVirt + uintptr(index)*unsafe.Sizeof(pageTableEntry(0))))

		if !walkFn(level, entry) {
			return
		}

		tableAddr = entry.Frame().Address()
	}
}
