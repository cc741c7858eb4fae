package heap

import (
	"unsafe"

	"nyxkernel/kernel/mem/vmm"
)

// vmoHeaderSize is the width of the VMO record the VMM writes at the start
// of an object's first page; base always points this many bytes past it.
var vmoHeaderSize = uint64(unsafe.Sizeof(vmm.VMO{}))

// regionHeader is written directly into the first bytes of the VMO backing
// a heap region. base points at the first byte available to block headers;
// end is one past the last byte mapped by the underlying VMO.
type regionHeader struct {
	next *regionHeader

	base, end      uintptr
	totalAllocated uint64
	freeHead       *freeNode
}

var regionHeaderSize = uint64(unsafe.Sizeof(regionHeader{}))

// newRegionHeader carves a regionHeader out of a freshly allocated VMO and
// initializes it to an empty region.
func newRegionHeader(vmo *vmm.VMO) *regionHeader {
	hdr := (*regionHeader)(unsafe.Pointer(vmo.Base.AsPointer()))
	*hdr = regionHeader{
		base: vmo.Base.AsPointer() + uintptr(regionHeaderSize),
		end:  vmo.Base.AsPointer() - uintptr(vmoHeaderSize) + uintptr(vmo.Length),
	}
	return hdr
}

// fits reports whether a fresh block with the given payload size can still
// be bumped off the end of this region.
func (r *regionHeader) fits(payloadSize uint64) bool {
	needed := 2*headerSize + payloadSize
	return r.base+uintptr(r.totalAllocated)+uintptr(needed) <= r.end
}

// bumpCursor returns the address a freshly bumped block's left header would
// occupy.
func (r *regionHeader) bumpCursor() uintptr { return r.base + uintptr(r.totalAllocated) }

func (r *regionHeader) owns(address uintptr) bool {
	return address >= r.base && address < r.base+uintptr(r.totalAllocated)
}

// pushFree inserts n at the head of this region's free list.
func (r *regionHeader) pushFree(n *freeNode) {
	n.prev = nil
	n.next = r.freeHead
	if r.freeHead != nil {
		r.freeHead.prev = n
	}
	r.freeHead = n
}

// removeFree detaches n from this region's free list.
func (r *regionHeader) removeFree(n *freeNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		r.freeHead = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.prev, n.next = nil, nil
}

// blockContaining finds the block in this region's stream whose payload
// range contains address, or the zero block if none does.
func (r *regionHeader) blockContaining(address uintptr) (block, bool) {
	for cur := r.base; cur < r.bumpCursor(); {
		b := block(cur)
		start := b.payloadAddr()
		end := start + uintptr(b.size())
		if address >= start && address < end {
			return b, true
		}
		cur = b.end()
	}
	return 0, false
}
