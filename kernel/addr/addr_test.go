package addr

import "testing"

func TestPhysAddrAlignment(t *testing.T) {
	specs := []struct {
		addr    PhysAddr
		aligned bool
	}{
		{0, true},
		{4096, true},
		{4095, false},
		{8192, true},
		{1, false},
	}

	for _, spec := range specs {
		if got := spec.addr.IsPageAligned(); got != spec.aligned {
			t.Errorf("PhysAddr(%d).IsPageAligned() = %v; want %v", spec.addr, got, spec.aligned)
		}
	}
}

func TestVirtAddrAlignedTo(t *testing.T) {
	if !VirtAddr(64).IsAlignedTo(64) {
		t.Error("expected 64 to be aligned to 64")
	}
	if VirtAddr(65).IsAlignedTo(64) {
		t.Error("expected 65 not to be aligned to 64")
	}
}

func TestAlignUpDown(t *testing.T) {
	if got, exp := VirtAddr(10).AlignUp(8), VirtAddr(16); got != exp {
		t.Errorf("AlignUp(10, 8) = %d; want %d", got, exp)
	}
	if got, exp := VirtAddr(16).AlignUp(8), VirtAddr(16); got != exp {
		t.Errorf("AlignUp(16, 8) = %d; want %d", got, exp)
	}
	if got, exp := VirtAddr(10).AlignDown(8), VirtAddr(8); got != exp {
		t.Errorf("AlignDown(10, 8) = %d; want %d", got, exp)
	}
}

func TestIsNull(t *testing.T) {
	if !PhysAddr(0).IsNull() {
		t.Error("expected zero PhysAddr to be null")
	}
	if PhysAddr(1).IsNull() {
		t.Error("expected non-zero PhysAddr not to be null")
	}
}

func TestAdd(t *testing.T) {
	if got, exp := PhysAddr(0x1000).Add(0x10), PhysAddr(0x1010); got != exp {
		t.Errorf("Add = %x; want %x", got, exp)
	}
}
