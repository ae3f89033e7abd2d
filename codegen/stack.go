package codegen

import "fmt"

// The expression evaluation stack is mapped onto six general-purpose
// registers (r10/r11 caller-saved, r12-r15 callee-saved) and, for
// floating values, a parallel bank
// of xmm registers sharing the same index.
var gpRegs = []string{"r10", "r11", "r12", "r13", "r14", "r15"}
var fpRegs = []string{"xmm8", "xmm9", "xmm10", "xmm11", "xmm12", "xmm13"}

// regStack models the virtual evaluation stack. Slot n lives in
// register n mod 6; when slot n (n >= 6) is created, the previous
// occupant of its register is spilled to the machine stack and restored
// when slot n dies, so expression depth is unbounded.
//
// banks records, per live slot, whether the value is in the gp or the
// xmm bank. depth counts 8-byte words currently pushed on the machine
// stack, which the call lowering uses to keep rsp 16-byte aligned.
type regStack struct {
	g     *Generator
	banks []bool // true = xmm bank
	depth int
}

func (s *regStack) top() int {
	return len(s.banks)
}

// push reserves the next slot and returns its register name, spilling
// the register's previous occupant first when the stack is more than
// six deep.
func (s *regStack) push(isFloat bool) string {
	n := len(s.banks)
	if n >= len(gpRegs) {
		s.spill(n - len(gpRegs))
	}
	s.banks = append(s.banks, isFloat)
	if isFloat {
		return fpRegs[n%len(fpRegs)]
	}
	return gpRegs[n%len(gpRegs)]
}

// pop destroys the top slot, restoring the spilled value that its
// register displaced, if any.
func (s *regStack) pop() {
	n := len(s.banks) - 1
	s.banks = s.banks[:n]
	if n >= len(gpRegs) {
		s.restore(n - len(gpRegs))
	}
}

func (s *regStack) spill(slot int) {
	if s.banks[slot] {
		s.g.println("  sub rsp, 8")
		s.g.printf("  movsd [rsp], %s\n", fpRegs[slot%len(fpRegs)])
	} else {
		s.g.printf("  push %s\n", gpRegs[slot%len(gpRegs)])
	}
	s.depth++
}

func (s *regStack) restore(slot int) {
	if s.banks[slot] {
		s.g.printf("  movsd %s, [rsp]\n", fpRegs[slot%len(fpRegs)])
		s.g.println("  add rsp, 8")
	} else {
		s.g.printf("  pop %s\n", gpRegs[slot%len(gpRegs)])
	}
	s.depth--
}

// gp returns the general-purpose register holding the slot i places
// below the top (0 is the top of the stack).
func (s *regStack) gp(i int) string {
	return gpRegs[(len(s.banks)-1-i)%len(gpRegs)]
}

// fp is the xmm-bank counterpart of gp.
func (s *regStack) fp(i int) string {
	return fpRegs[(len(s.banks)-1-i)%len(fpRegs)]
}

// setBank retags the top slot after a load or conversion moved its
// value between banks.
func (s *regStack) setBank(isFloat bool) {
	s.banks[len(s.banks)-1] = isFloat
}

// snapshot and restoreState bracket the arms of a branch so both sides
// are generated from the same virtual-stack state.
func (s *regStack) snapshot() ([]bool, int) {
	return append([]bool(nil), s.banks...), s.depth
}

func (s *regStack) restoreState(banks []bool, depth int) {
	s.banks = banks
	s.depth = depth
}

// sized register names for the gp bank and the argument registers.
var sizedNames = map[string][4]string{
	"r10": {"r10b", "r10w", "r10d", "r10"},
	"r11": {"r11b", "r11w", "r11d", "r11"},
	"r12": {"r12b", "r12w", "r12d", "r12"},
	"r13": {"r13b", "r13w", "r13d", "r13"},
	"r14": {"r14b", "r14w", "r14d", "r14"},
	"r15": {"r15b", "r15w", "r15d", "r15"},
	"rdi": {"dil", "di", "edi", "rdi"},
	"rsi": {"sil", "si", "esi", "rsi"},
	"rdx": {"dl", "dx", "edx", "rdx"},
	"rcx": {"cl", "cx", "ecx", "rcx"},
	"r8":  {"r8b", "r8w", "r8d", "r8"},
	"r9":  {"r9b", "r9w", "r9d", "r9"},
	"rax": {"al", "ax", "eax", "rax"},
}

// sized returns reg's name at the given byte width.
func sized(reg string, size int) string {
	names, ok := sizedNames[reg]
	if !ok {
		panic(fmt.Sprintf("codegen: unknown register %s", reg))
	}
	switch size {
	case 1:
		return names[0]
	case 2:
		return names[1]
	case 4:
		return names[2]
	default:
		return names[3]
	}
}
