package kernel

import (
	"nyxkernel/kernel/cpu"
	"nyxkernel/kernel/kfmt/early"
)

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt

	errRuntimePanic = &Error{Module: "rt", Message: "unknown cause"}

	panicSink PanicSink
)

// PanicSink is invoked with a nonzero exit code right before Panic halts the
// CPU. It exists so that boot glue can wire a port-0xF4 style test-exit
// write-up without this package knowing anything about I/O ports; left
// unregistered, Panic skips straight to halting.
type PanicSink interface {
	Exit(code uint8)
}

// SetPanicSink registers the exit sink Panic reports to before halting.
func SetPanicSink(s PanicSink) {
	panicSink = s
}

// Panic outputs the supplied error (if not nil) to the console, reports a
// failure exit code to the registered PanicSink (if any), and halts the CPU.
// Calls to Panic never return. Panic also works as a redirection target for
// calls to panic() (resolved via runtime.gopanic)
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	var err *Error

	switch t := e.(type) {
	case *Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	early.Printf("\n-----------------------------------\n")
	if err != nil {
		early.Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	early.Printf("*** kernel panic: system halted ***")
	early.Printf("\n-----------------------------------\n")

	if panicSink != nil {
		panicSink.Exit(1)
	}

	cpuHaltFn()
}
