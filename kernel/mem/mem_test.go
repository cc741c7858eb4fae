package mem

import "testing"

func TestSizeToPages(t *testing.T) {
	specs := []struct {
		size     Size
		expPages uint64
	}{
		{1023 * Kb, 256},
		{1024 * Kb, 256},
		{1 * Byte, 1},
		{PageSize, 1},
		{PageSize + 1, 2},
	}

	for specIndex, spec := range specs {
		if got := spec.size.Pages(); got != spec.expPages {
			t.Errorf("[spec %d] expected Pages(%d bytes) to equal %d; got %d", specIndex, spec.size, spec.expPages, got)
		}
	}
}

func TestSizeAlignUp(t *testing.T) {
	if got, exp := Size(10).AlignUp(8), Size(16); got != exp {
		t.Errorf("AlignUp(10, 8) = %d; want %d", got, exp)
	}
	if got, exp := Size(16).AlignUp(8), Size(16); got != exp {
		t.Errorf("AlignUp(16, 8) = %d; want %d", got, exp)
	}
}
