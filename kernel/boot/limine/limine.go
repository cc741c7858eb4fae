// Package limine holds the narrow data contract the memory core reads from
// the (out-of-scope) Limine boot protocol glue: the firmware memory map,
// the higher-half direct map offset, the initial page table root, and a
// handful of optional pointers (kernel file base for symbol resolution,
// framebuffer, RSDP). None of the actual protocol request/response
// handshake, nor anything downstream of it (serial, framebuffer, ACPI,
// GDT/IDT, stack traces) is implemented here.
//
// The shape mirrors a multiboot tag-walking API (MemoryMapEntry,
// VisitMemRegions) because the memory core's consumers (kernel/mem/pmm)
// are written against that visitor style; the boot protocol providing it
// is a Limine response list rather than a multiboot2 tag stream.
package limine

import "nyxkernel/kernel/addr"

// MemoryEntryType classifies a MemoryMapEntry.
type MemoryEntryType uint32

const (
	// MemUsable marks memory immediately available for the kernel to use.
	MemUsable MemoryEntryType = iota

	// MemReserved marks memory the kernel must never touch.
	MemReserved

	// MemACPIReclaimable marks ACPI tables that can be reclaimed once the
	// kernel has finished consuming them.
	MemACPIReclaimable

	// MemACPINVS marks memory that must be preserved across sleep states.
	MemACPINVS

	// MemBadMemory marks memory the firmware has flagged as defective.
	MemBadMemory

	// MemBootloaderReclaimable marks memory used by the bootloader itself
	// that becomes available once the kernel no longer needs it.
	MemBootloaderReclaimable

	// MemKernelAndModules marks the region(s) occupied by the loaded
	// kernel image and any boot modules.
	MemKernelAndModules

	// MemFramebuffer marks memory backing a boot-time framebuffer.
	MemFramebuffer
)

// MemoryMapEntry describes one contiguous physical memory region as
// reported by the firmware.
type MemoryMapEntry struct {
	Base   addr.PhysAddr
	Length uint64
	Type   MemoryEntryType
}

// FramebufferInfo describes the optional boot-time linear framebuffer.
type FramebufferInfo struct {
	PhysAddr addr.PhysAddr
	Pitch    uint32
	Width    uint32
	Height   uint32
	Bpp      uint8
}

// BootInfo is the full set of data the boot protocol glue publishes exactly
// once, before any memory-core package is initialized.
type BootInfo struct {
	MemoryMap []MemoryMapEntry

	// HHDMOffset is the constant virtual offset O such that physical
	// address P is readable at virtual address P+O.
	HHDMOffset uint64

	// PagemapRoot is the physical address of the bootloader-provided
	// PML4, as read from CR3.
	PagemapRoot addr.PhysAddr

	// KernelFileBase is the virtual address the kernel ELF image was
	// loaded at, used by the (out-of-scope) stack-trace symbol resolver.
	KernelFileBase addr.VirtAddr

	// KernelStart and KernelEnd bound the loaded kernel image in virtual
	// memory (the linker script's __kernel_start_address /
	// __kernel_end_address symbols).
	KernelStart, KernelEnd addr.VirtAddr

	// Framebuffer is nil if no framebuffer was requested or none was
	// provided by the firmware.
	Framebuffer *FramebufferInfo

	// RSDP is the physical address of the ACPI root system description
	// pointer, or the null address if none was supplied.
	RSDP addr.PhysAddr
}

var (
	info  BootInfo
	isSet bool
)

// Set publishes the boot information collected by boot glue. It must be
// called exactly once, before any other function in this package, and
// before any memory-core subsystem is initialized.
func Set(i BootInfo) {
	if isSet {
		panic("limine: Set called more than once")
	}
	info = i
	isSet = true
}

// Get returns the published boot information. Calling Get before Set is
// fatal.
func Get() BootInfo {
	if !isSet {
		panic("limine: Get called before Set")
	}
	return info
}

// MemRegionVisitor is invoked by VisitMemRegions for each memory map entry.
// Returning false aborts the scan.
type MemRegionVisitor func(entry *MemoryMapEntry) bool

// VisitMemRegions invokes visitor for each entry in the published memory
// map, in the order the firmware reported them, until the visitor returns
// false or the map is exhausted.
func VisitMemRegions(visitor MemRegionVisitor) {
	if !isSet {
		panic("limine: VisitMemRegions called before Set")
	}

	for i := range info.MemoryMap {
		if !visitor(&info.MemoryMap[i]) {
			return
		}
	}
}

// HHDMOffset returns the published higher-half direct map offset.
func HHDMOffset() uint64 { return Get().HHDMOffset }

// PagemapRoot returns the physical address of the bootloader-provided PML4.
func PagemapRoot() addr.PhysAddr { return Get().PagemapRoot }

// resetForTesting clears the package-level state so tests can call Set
// more than once within the same test binary.
func resetForTesting() {
	info = BootInfo{}
	isSet = false
}
