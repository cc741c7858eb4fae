package vmm

import (
	"nyxkernel/kernel"
	"nyxkernel/kernel/addr"
)

// Translate returns the physical address that corresponds to virt inside
// the translation tree rooted at root, or ErrInvalidMapping if virt is not
// currently mapped.
func Translate(root addr.PhysAddr, virt addr.VirtAddr) (addr.PhysAddr, *kernel.Error) {
	hhdm := hhdmOffsetFn()

	var (
		err    *kernel.Error
		offset = virt.Uint64() & ((1 << pageLevelShifts[pageLevels-1]) - 1)
		phys   addr.PhysAddr
	)

	walk(hhdm, root, virt, func(level int, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			err = ErrInvalidMapping
			return false
		}

		if level == pageLevels-1 {
			phys = pte.Frame().Address()
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	return phys.Add(offset), nil
}
