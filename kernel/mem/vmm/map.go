package vmm

import (
	"nyxkernel/kernel"
	"nyxkernel/kernel/addr"
	"nyxkernel/kernel/boot/limine"
	"nyxkernel/kernel/mem/pmm"
)

var (
	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	hhdmOffsetFn    = limine.HHDMOffset
	allocFrameFn    = pmm.AllocFrame
	freeFrameFn     = pmm.FreeFrame
	flushTLBEntryFn = flushTLBEntry
	panicFn         = kernel.Panic

	errUnalignedAddress = &kernel.Error{Module: "vmm", Message: "address is not page-aligned"}
)

// Map establishes a mapping from virt to phys inside the translation tree
// rooted at root, allocating any missing intermediate tables along the way.
// Both addresses must be page-aligned.
func Map(root addr.PhysAddr, virt addr.VirtAddr, phys addr.PhysAddr, flags PageTableEntryFlag) *kernel.Error {
	if !virt.IsPageAligned() || !phys.IsPageAligned() {
		panicFn(errUnalignedAddress)
	}

	hhdm := hhdmOffsetFn()

	var err *kernel.Error
	walk(hhdm, root, virt, func(level int, pte *pageTableEntry) bool {
		if level == pageLevels-1 {
			pte.SetFrame(pmm.FrameFromAddress(phys))
			pte.SetFlags(FlagPresent | flags)
			flushTLBEntryFn(virt.AsPointer())
			return true
		}

		if pte.HasFlags(FlagPresent) {
			return true
		}

		var newTable addr.PhysAddr
		newTable, err = allocFrameFn()
		if err != nil {
			return false
		}

		frame := pmm.FrameFromAddress(newTable)
		zeroTable(hhdm, frame)

		*pte = 0
		pte.SetFrame(frame)
		pte.SetFlags(FlagPresent | FlagRW)
		return true
	})

	return err
}

// Unmap removes a mapping previously installed by Map, returning the
// backing frame to the physical allocator. Any intermediate table missing
// along the way is a fatal programmer error; a missing final entry returns
// ErrInvalidMapping.
func Unmap(root addr.PhysAddr, virt addr.VirtAddr) *kernel.Error {
	hhdm := hhdmOffsetFn()

	var err *kernel.Error
	walk(hhdm, root, virt, func(level int, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			if level < pageLevels-1 {
				panicFn(ErrInvalidMapping)
			}
			err = ErrInvalidMapping
			return false
		}

		if level == pageLevels-1 {
			frame := pte.Frame()
			pte.ClearFlags(FlagPresent)
			flushTLBEntryFn(virt.AsPointer())
			err = freeFrameFn(frame.Address())
			return true
		}

		return true
	})

	return err
}
