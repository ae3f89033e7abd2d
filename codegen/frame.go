package codegen

import (
	"ncc/ast"
	"ncc/types"
)

// AssignLVarOffsets lays out every function's stack frame. The first
// 32 bytes below rbp hold the callee-saved registers; variadic frames
// reserve 128 bytes to cover the 96-byte register save area as well.
// Each local sits at the next offset aligned to its type, and the
// frame size is rounded up to a multiple of 16.
func AssignLVarOffsets(prog *ast.Program) {
	for _, fn := range prog.Funcs {
		offset := 32
		if fn.IsVariadic {
			offset = 128
		}

		for _, v := range fn.Locals {
			offset = types.AlignTo(offset, v.Align)
			offset += v.Ty.Size
			v.Offset = offset
		}
		fn.StackSize = types.AlignTo(offset, 16)
	}
}
