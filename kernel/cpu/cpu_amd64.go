// Package cpu declares the architecture primitives the memory core treats
// as external collaborators: port I/O, control-register access, TLB
// invalidation, and the handful of privileged instructions needed to halt
// and mask interrupts. Every function here has no Go body — it is
// implemented in architecture assembly that sits outside the memory core's
// scope (see spec.md §6, "architecture primitives").
package cpu

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt.
func Halt()

// InvalidatePage flushes a single TLB entry for a particular virtual
// address (the invlpg instruction). The page-table walker declares and
// uses its own package-local equivalent (kernel/mem/vmm/tlb.go) rather
// than this one, the same split the teacher carries between kernel/cpu
// and kernel/mem/vmm/tlb.go.
func InvalidatePage(virtAddr uintptr)

// ReadCR2 returns the faulting address recorded by the CPU for the most
// recent page fault.
func ReadCR2() uintptr

// ReadCR3 returns the physical address of the currently active page table
// directory.
func ReadCR3() uintptr

// Outb writes a byte to the given I/O port.
func Outb(port uint16, value uint8)

// Inb reads a byte from the given I/O port.
func Inb(port uint16) uint8

// LoadGDT loads a new global descriptor table from the given descriptor
// pointer.
func LoadGDT(gdtDescriptorAddr uintptr)

// LoadIDT loads a new interrupt descriptor table from the given descriptor
// pointer.
func LoadIDT(idtDescriptorAddr uintptr)
