// Package kmain is the orchestrator: the one package allowed to import both
// nyxkernel/kernel (for Error/Panic) and the memory-core layers, since those
// layers themselves import nyxkernel/kernel and a Kmain living there would
// close an import cycle.
package kmain

import (
	"nyxkernel/kernel"
	"nyxkernel/kernel/kfmt/early"
	"nyxkernel/kernel/mem/heap"
	"nyxkernel/kernel/mem/pmm"
	"nyxkernel/kernel/mem/vmm"
)

var errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

// Kmain is the first Go symbol control reaches after the (out-of-scope) boot
// trampoline has parsed the bootloader's response structures and published
// them via limine.Set. It brings up the three memory-core layers in their
// required order: the page-frame allocator first, since everything else
// allocates physical frames through it; the VM object manager second, since
// the heap carves its regions out of VM objects; the heap last.
//
// Kmain is not expected to return. If it does, Panic halts the CPU.
func Kmain() {
	early.Printf("bringing up memory core\n")

	var err *kernel.Error
	if err = pmm.Init(); err != nil {
		kernel.Panic(err)
	} else if err = vmm.Init(); err != nil {
		kernel.Panic(err)
	} else if err = heap.Init(); err != nil {
		kernel.Panic(err)
	}

	early.Printf("memory core ready\n")

	kernel.Panic(errKmainReturned)
}
