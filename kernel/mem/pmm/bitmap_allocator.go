package pmm

import (
	"reflect"
	"unsafe"

	"nyxkernel/kernel"
	"nyxkernel/kernel/addr"
	"nyxkernel/kernel/boot/limine"
	"nyxkernel/kernel/kfmt/early"
	"nyxkernel/kernel/mem"
	"nyxkernel/kernel/sync"
)

var (
	errOutOfMemory  = &kernel.Error{Module: "pmm", Message: "no free frames available"}
	errDoubleFree   = &kernel.Error{Module: "pmm", Message: "frame already free"}
	errUnownedFrame = &kernel.Error{Module: "pmm", Message: "address not owned by any usable region"}

	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	hhdmOffsetFn  = limine.HHDMOffset
	limineVisitFn = limine.VisitMemRegions
	panicFn       = kernel.Panic
)

// bitmapHeader is the header gopher-os-style allocators keep at the front of
// a tracked structure; here it lives at the base of the Usable region itself
// rather than in a side-allocated buffer, immediately followed by the bit
// array it describes.
type bitmapHeader struct {
	totalPages uint64
	usedPages  uint64
	lastIndex  uint64
}

// region tracks one Usable memory-map entry and the bitmap embedded at its
// base, reached through the higher-half direct map.
type region struct {
	base   addr.PhysAddr
	length uint64

	hdr  *bitmapHeader
	bits []uint64
}

func (r *region) isFull() bool {
	return r.hdr.usedPages >= r.hdr.totalPages
}

func (r *region) bitSet(index uint64) bool {
	return r.bits[index>>6]&(uint64(1)<<(index&63)) != 0
}

func (r *region) setBit(index uint64) {
	r.bits[index>>6] |= uint64(1) << (index & 63)
}

func (r *region) clearBit(index uint64) {
	r.bits[index>>6] &^= uint64(1) << (index & 63)
}

// BitmapAllocator hands out and reclaims physical frames using one bitmap
// per Usable firmware memory-map entry, embedded inside the region itself.
// The zero value is not ready for use; build one through Init.
type BitmapAllocator struct {
	regions    []region
	totalPages uint64
	usedPages  uint64
}

// global is the once-initialized, lock-guarded instance the rest of the
// kernel reaches through AllocFrame/FreeFrame.
var global sync.OnceLock[BitmapAllocator]

// Init builds the per-region bitmaps from the published boot memory map and
// installs the result as the package-wide allocator. Must be called exactly
// once, after limine.Set.
func Init() *kernel.Error {
	var alloc BitmapAllocator
	if err := alloc.build(); err != nil {
		return err
	}
	global.Set(alloc)
	return nil
}

// AllocFrame reserves and returns one free physical frame from the
// package-wide allocator installed by Init.
func AllocFrame() (addr.PhysAddr, *kernel.Error) {
	alloc := global.Lock()
	defer global.Unlock()
	return alloc.allocFrame()
}

// FreeFrame returns a previously allocated frame through the package-wide
// allocator installed by Init.
func FreeFrame(p addr.PhysAddr) *kernel.Error {
	alloc := global.Lock()
	defer global.Unlock()
	return alloc.freeFrame(p)
}

// build installs a bitmap for every Usable memory-map entry. Exposed on the
// type (rather than only as the package-level Init) so tests can construct
// and exercise a BitmapAllocator without going through the global singleton.
func (alloc *BitmapAllocator) build() *kernel.Error {
	hhdm := hhdmOffsetFn()

	var initErr *kernel.Error
	limineVisitFn(func(entry *limine.MemoryMapEntry) bool {
		if entry.Type != limine.MemUsable {
			return true
		}

		if err := alloc.addRegion(hhdm, entry); err != nil {
			initErr = err
			return false
		}
		return true
	})
	if initErr != nil {
		return initErr
	}

	alloc.printStats()
	return nil
}

// addRegion installs a bitmap at the base of a single Usable region and
// reserves the pages the bitmap itself occupies.
func (alloc *BitmapAllocator) addRegion(hhdm uint64, entry *limine.MemoryMapEntry) *kernel.Error {
	totalPages := entry.Length / uint64(mem.PageSize)
	if totalPages == 0 {
		return nil
	}

	bitmapWords := (totalPages + 63) >> 6
	bitmapBytes := bitmapWords * 8
	headerSize := uint64(unsafe.Sizeof(bitmapHeader{}))

	reservedBytes := mem.Size(headerSize + bitmapBytes).AlignUp(mem.PageSize)
	reservedPages := uint64(reservedBytes) >> mem.PageShift
	if reservedPages > totalPages {
		// Region too small to host its own bitmap; nothing to reclaim from it.
		return nil
	}

	virtBase := uintptr(hhdm) + uintptr(entry.Base)
	mem.Memset(virtBase, 0, reservedBytes)

	hdr := (*bitmapHeader)(unsafe.Pointer(virtBase))
	hdr.totalPages = totalPages
	hdr.usedPages = reservedPages
	hdr.lastIndex = reservedPages % totalPages

	var bitsHdr reflect.SliceHeader
	bitsHdr.Data = virtBase + uintptr(headerSize)
	bitsHdr.Len = int(bitmapWords)
	bitsHdr.Cap = int(bitmapWords)
	bits := *(*[]uint64)(unsafe.Pointer(&bitsHdr))

	r := region{base: entry.Base, length: entry.Length, hdr: hdr, bits: bits}
	for i := uint64(0); i < reservedPages; i++ {
		r.setBit(i)
	}

	alloc.regions = append(alloc.regions, r)
	alloc.totalPages += totalPages
	alloc.usedPages += reservedPages
	return nil
}

// allocFrame reserves and returns one free physical frame using a next-fit
// scan across the tracked regions. Returns an error if every region is full.
func (alloc *BitmapAllocator) allocFrame() (addr.PhysAddr, *kernel.Error) {
	for ri := range alloc.regions {
		r := &alloc.regions[ri]
		if r.isFull() {
			continue
		}

		index := r.hdr.lastIndex
		for scanned := uint64(0); scanned < r.hdr.totalPages; scanned++ {
			if index >= r.hdr.totalPages {
				index = 0
			}
			if !r.bitSet(index) {
				r.setBit(index)
				r.hdr.usedPages++
				r.hdr.lastIndex = index + 1
				alloc.usedPages++
				return r.base.Add(index * uint64(mem.PageSize)), nil
			}
			index++
		}
	}

	return addr.PhysAddr(0), errOutOfMemory
}

// freeFrame returns a previously allocated frame to its owning region.
// Freeing an address that was never allocated, or does not belong to any
// tracked region, is a fatal condition.
func (alloc *BitmapAllocator) freeFrame(p addr.PhysAddr) *kernel.Error {
	for ri := range alloc.regions {
		r := &alloc.regions[ri]
		if p < r.base || p >= r.base.Add(r.length) {
			continue
		}

		index := (uint64(p) - uint64(r.base)) / uint64(mem.PageSize)
		if !r.bitSet(index) {
			panicFn(errDoubleFree)
			return errDoubleFree
		}

		r.clearBit(index)
		r.hdr.usedPages--
		alloc.usedPages--
		return nil
	}

	panicFn(errUnownedFrame)
	return errUnownedFrame
}

func (alloc *BitmapAllocator) printStats() {
	early.Printf(
		"[pmm] page stats: free: %d/%d across %d region(s)\n",
		alloc.totalPages-alloc.usedPages,
		alloc.totalPages,
		uint64(len(alloc.regions)),
	)
}
