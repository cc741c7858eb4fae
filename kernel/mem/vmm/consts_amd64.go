//go:build amd64

package vmm

// pageLevels is the depth of the x86_64 translation tree: PML4, PML3 (PDPT),
// PML2 (PD), PML1 (PT).
const pageLevels = 4

// pageLevelShifts holds, for each level from PML4 (index 0) to PML1 (index
// pageLevels-1), the bit position of that level's 9-bit index inside a
// virtual address.
var pageLevelShifts = [pageLevels]uint8{39, 30, 21, 12}

// pageLevelBits is the width, in bits, of each level's index.
const pageLevelBits = 9
