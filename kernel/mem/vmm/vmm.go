// Package vmm implements the HHDM-addressed 4-level page-table walker and
// the virtual-memory object manager layered on top of it: Map/Unmap/
// Translate operate on a single page at a time, while Manager reserves and
// backs multi-page virtual ranges ("VM objects") for the kernel heap and
// other large consumers.
package vmm

import (
	"unsafe"

	"nyxkernel/kernel"
	"nyxkernel/kernel/addr"
	"nyxkernel/kernel/boot/limine"
	"nyxkernel/kernel/mem"
	"nyxkernel/kernel/sync"
)

var (
	errOutOfVirtualSpace = &kernel.Error{Module: "vmm", Message: "virtual address space exhausted"}
	errUnknownObject     = &kernel.Error{Module: "vmm", Message: "address does not correspond to a live VM object"}
)

// VMO (virtual-memory object) describes a contiguous run of virtual pages
// backed by physical frames. The struct itself is written directly into the
// first mapped page of the range it describes (self-describing metadata,
// same discipline as the frame bitmap): `next` is the singly-linked-list
// node header, and Base points past this struct to the first usable byte.
type VMO struct {
	next *VMO

	Base   addr.VirtAddr
	Length uint64
	Flags  PageTableEntryFlag
	InUse  bool
}

// Manager reserves page-aligned virtual ranges from a bump cursor and backs
// them with physical frames, one page at a time, through a Pagemap.
type Manager struct {
	pagemap      Pagemap
	defaultFlags PageTableEntryFlag
	baseAddress  addr.VirtAddr
	cursor       addr.VirtAddr

	head, tail *VMO
}

// global is the once-initialized, lock-guarded manager the rest of the
// kernel reaches through AllocateObject/FreeObject.
var global sync.OnceLock[Manager]

// Init builds the kernel's virtual-memory object manager using the
// currently active pagemap and the kernel image's end address (rounded up
// to a page boundary) as the start of the VMO window. Must be called
// exactly once, after limine.Set and pmm.Init.
func Init() *kernel.Error {
	info := limine.Get()

	var m Manager
	m.pagemap = NewPagemap(info.PagemapRoot)
	m.defaultFlags = flagsFromPermissions(true, false, false)
	m.baseAddress = info.KernelEnd.AlignUp(uint64(mem.PageSize))
	m.cursor = m.baseAddress

	global.Set(m)
	return nil
}

// AllocateObject reserves enough virtual pages to host size bytes plus the
// VMO header, backs each with a freshly allocated physical frame, and
// returns the new object.
func AllocateObject(size uint64) (*VMO, *kernel.Error) {
	m := global.Lock()
	defer global.Unlock()
	return m.allocateObject(size)
}

// FreeObject marks the VM object whose payload starts at base as no longer
// in use. The virtual range itself is not reclaimed (see DESIGN.md).
func FreeObject(base addr.VirtAddr) *kernel.Error {
	m := global.Lock()
	defer global.Unlock()
	return m.freeObject(base)
}

func (m *Manager) allocateObject(size uint64) (*VMO, *kernel.Error) {
	nodeSz := uint64(unsafe.Sizeof(VMO{}))
	pages := (size + nodeSz + uint64(mem.PageSize) - 1) / uint64(mem.PageSize)
	length := pages * uint64(mem.PageSize)

	if m.cursor.Uint64()+length < m.cursor.Uint64() {
		return nil, errOutOfVirtualSpace
	}

	nodeAddr := m.cursor
	for i := uint64(0); i < pages; i++ {
		frame, err := allocFrameFn()
		if err != nil {
			return nil, err
		}
		if err := m.pagemap.Map(m.cursor.Add(i*uint64(mem.PageSize)), frame, m.defaultFlags); err != nil {
			return nil, err
		}
	}

	node := (*VMO)(unsafe.Pointer(nodeAddr.AsPointer()))
	node.next = nil
	node.Base = nodeAddr.Add(nodeSz)
	node.Length = length
	node.Flags = m.defaultFlags
	node.InUse = true

	if m.head == nil {
		m.head = node
	} else {
		m.tail.next = node
	}
	m.tail = node

	m.cursor = m.cursor.Add(length)
	return node, nil
}

func (m *Manager) freeObject(base addr.VirtAddr) *kernel.Error {
	var prev *VMO
	for node := m.head; node != nil; node = node.next {
		if node.Base == base {
			node.InUse = false

			if prev == nil {
				m.head = node.next
			} else {
				prev.next = node.next
			}
			if node == m.tail {
				m.tail = prev
			}
			node.next = nil

			return nil
		}
		prev = node
	}
	return errUnknownObject
}
