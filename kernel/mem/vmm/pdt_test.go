package vmm

import (
	"testing"

	"nyxkernel/kernel/addr"
)

func withMockedPDTCollaborators(t *testing.T) {
	t.Helper()
	origActive, origSwitch := activePDTFn, switchPDTFn
	t.Cleanup(func() { activePDTFn, switchPDTFn = origActive, origSwitch })
}

func TestPagemapRoot(t *testing.T) {
	pm := NewPagemap(addr.PhysAddr(0x1000))
	if got, want := pm.Root(), addr.PhysAddr(0x1000); got != want {
		t.Fatalf("Root() = %x; want %x", got, want)
	}
}

func TestPagemapActivate(t *testing.T) {
	withMockedPDTCollaborators(t)

	var switchedTo uintptr
	switchPDTFn = func(p uintptr) { switchedTo = p }

	pm := NewPagemap(addr.PhysAddr(0x2000))
	pm.Activate()

	if switchedTo != 0x2000 {
		t.Fatalf("Activate() switched to %x; want %x", switchedTo, 0x2000)
	}
}

func TestActivePagemap(t *testing.T) {
	withMockedPDTCollaborators(t)

	activePDTFn = func() uintptr { return 0x3000 }

	pm := ActivePagemap()
	if got, want := pm.Root(), addr.PhysAddr(0x3000); got != want {
		t.Fatalf("ActivePagemap().Root() = %x; want %x", got, want)
	}
}
