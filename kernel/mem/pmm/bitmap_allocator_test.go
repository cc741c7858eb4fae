package pmm

import (
	"unsafe"

	"testing"

	"nyxkernel/kernel/addr"
	"nyxkernel/kernel/boot/limine"
	"nyxkernel/kernel/mem"
)

// fakeRegion allocates a real Go byte slice and treats its address as the
// base of a physical memory region, with HHDM offset zero, so the bitmap
// header/bit-array overlay machinery can run against ordinary Go memory.
func fakeRegion(t *testing.T, pages uint64) (limine.MemoryMapEntry, []byte) {
	t.Helper()
	buf := make([]byte, pages*uint64(mem.PageSize))
	for i := range buf {
		buf[i] = 0xAA
	}
	base := addr.PhysAddr(uintptr(unsafe.Pointer(&buf[0])))
	return limine.MemoryMapEntry{Base: base, Length: uint64(len(buf)), Type: limine.MemUsable}, buf
}

func withHHDMOffsetZero(t *testing.T) {
	t.Helper()
	orig := hhdmOffsetFn
	hhdmOffsetFn = func() uint64 { return 0 }
	t.Cleanup(func() { hhdmOffsetFn = orig })
}

func TestBitmapAllocatorBuildReservesOwnBitmap(t *testing.T) {
	withHHDMOffsetZero(t)

	entry, _ := fakeRegion(t, 64)

	orig := limineVisitFn
	limineVisitFn = func(v limine.MemRegionVisitor) { v(&entry) }
	defer func() { limineVisitFn = orig }()

	var alloc BitmapAllocator
	if err := alloc.build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(alloc.regions) != 1 {
		t.Fatalf("expected 1 region; got %d", len(alloc.regions))
	}

	r := &alloc.regions[0]
	if r.hdr.usedPages == 0 {
		t.Fatal("expected the bitmap's own pages to be marked used")
	}
	for i := uint64(0); i < r.hdr.usedPages; i++ {
		if !r.bitSet(i) {
			t.Fatalf("expected bit %d (bitmap storage) to be set", i)
		}
	}
}

func TestBitmapAllocatorAllocFreeRoundTrip(t *testing.T) {
	withHHDMOffsetZero(t)

	entry, _ := fakeRegion(t, 64)
	orig := limineVisitFn
	limineVisitFn = func(v limine.MemRegionVisitor) { v(&entry) }
	defer func() { limineVisitFn = orig }()

	var alloc BitmapAllocator
	if err := alloc.build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	usedBefore := alloc.usedPages

	phys, err := alloc.allocFrame()
	if err != nil {
		t.Fatalf("allocFrame: %v", err)
	}

	if alloc.usedPages != usedBefore+1 {
		t.Fatalf("expected usedPages to grow by 1; got %d -> %d", usedBefore, alloc.usedPages)
	}

	if err := alloc.freeFrame(phys); err != nil {
		t.Fatalf("freeFrame: %v", err)
	}

	if alloc.usedPages != usedBefore {
		t.Fatalf("expected usedPages to return to %d; got %d", usedBefore, alloc.usedPages)
	}

	phys2, err := alloc.allocFrame()
	if err != nil {
		t.Fatalf("allocFrame after free: %v", err)
	}

	// Next-fit resumes past the last allocation, so the just-freed frame is
	// not handed out again while the frames after it are still free.
	if want := phys.Add(uint64(mem.PageSize)); phys2 != want {
		t.Fatalf("expected next-fit to resume past the just-freed frame %x at %x; got %x", phys, want, phys2)
	}
}

func TestBitmapAllocatorDoubleFreePanics(t *testing.T) {
	withHHDMOffsetZero(t)

	entry, _ := fakeRegion(t, 64)
	orig := limineVisitFn
	limineVisitFn = func(v limine.MemRegionVisitor) { v(&entry) }
	defer func() { limineVisitFn = orig }()

	var alloc BitmapAllocator
	if err := alloc.build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	phys, err := alloc.allocFrame()
	if err != nil {
		t.Fatalf("allocFrame: %v", err)
	}

	if err := alloc.freeFrame(phys); err != nil {
		t.Fatalf("freeFrame: %v", err)
	}

	origPanic := panicFn
	panicked := false
	panicFn = func(e interface{}) { panicked = true }
	defer func() { panicFn = origPanic }()

	_ = alloc.freeFrame(phys)
	if !panicked {
		t.Fatal("expected a double free to invoke panicFn")
	}
}

func TestBitmapAllocatorFreeUnownedAddress(t *testing.T) {
	withHHDMOffsetZero(t)

	entry, _ := fakeRegion(t, 64)
	orig := limineVisitFn
	limineVisitFn = func(v limine.MemRegionVisitor) { v(&entry) }
	defer func() { limineVisitFn = orig }()

	var alloc BitmapAllocator
	if err := alloc.build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	origPanic := panicFn
	panicked := false
	panicFn = func(e interface{}) { panicked = true }
	defer func() { panicFn = origPanic }()

	_ = alloc.freeFrame(addr.PhysAddr(0xdeadbeef000))
	if !panicked {
		t.Fatal("expected freeing an address outside every region to invoke panicFn")
	}
}

func TestBitmapAllocatorExhaustion(t *testing.T) {
	withHHDMOffsetZero(t)

	// A region just large enough to host its own bitmap plus a single
	// free page.
	entry, _ := fakeRegion(t, 2)
	orig := limineVisitFn
	limineVisitFn = func(v limine.MemRegionVisitor) { v(&entry) }
	defer func() { limineVisitFn = orig }()

	var alloc BitmapAllocator
	if err := alloc.build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	for {
		if _, err := alloc.allocFrame(); err != nil {
			break
		}
	}

	if _, err := alloc.allocFrame(); err == nil {
		t.Fatal("expected allocFrame to fail once every region is full")
	}
}
