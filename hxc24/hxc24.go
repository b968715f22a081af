// Package hxc24 implements the HXC-24 processor of the Nexel-24: a
// 24-bit address / 16-bit data CPU clocked at 18.432MHz with
// memory-mapped coprocessor access.
package hxc24

import (
	"fmt"
	"sort"
	"strings"
)

// Every address leaving the CPU is masked to the 24-bit bus width.
const ADDR_MASK = 0x00FFFFFF

// The interrupt vector table lives in the first 0x20 bytes of BIOS:
// eight 3-byte little-endian handler addresses indexed by interrupt id.
// The reset vector shares the table base.
const (
	VECTOR_BASE  = 0xFF0000
	VECTOR_BYTES = 3
)

// HXC-24 Status Register flags
const (
	STATUS_FLAG_CARRY             = 1 << 0 // C
	STATUS_FLAG_ZERO              = 1 << 1 // Z
	STATUS_FLAG_INTERRUPT_DISABLE = 1 << 2 // I
	STATUS_FLAG_DECIMAL           = 1 << 3 // D
	STATUS_FLAG_OVERFLOW          = 1 << 6 // V
	STATUS_FLAG_NEGATIVE          = 1 << 7 // N
)

// Interrupt identities. The id doubles as the priority: higher numeric
// id is serviced first. NMI bypasses the interrupt-disable flag; all
// others are gated by it both when requested and when dispatched.
const (
	INT_SWI = iota
	INT_PAD_EVENT
	INT_TIMER0
	INT_APU_BUF_EMPTY
	INT_VLU_DONE
	INT_DMA_DONE
	INT_HBLANK
	INT_NMI
)

// Memory is the CPU's window onto the unified bus. The console routes
// coprocessor windows before they ever reach backing storage.
type Memory interface {
	Read(addr uint32) uint8
	Write(addr uint32, val uint8)
}

// Coprocessor receives COP dispatch bytes. The high nibble selects the
// unit, the low nibble the operation.
type Coprocessor interface {
	Dispatch(op uint8)
}

var flagMap map[uint8]byte = map[uint8]byte{
	STATUS_FLAG_CARRY:             'C',
	STATUS_FLAG_ZERO:              'Z',
	STATUS_FLAG_INTERRUPT_DISABLE: 'I',
	STATUS_FLAG_DECIMAL:           'D',
	STATUS_FLAG_OVERFLOW:          'V',
	STATUS_FLAG_NEGATIVE:          'N',
}

func statusString(p uint8) string {
	var sb strings.Builder

	flags := []uint8{
		STATUS_FLAG_NEGATIVE,
		STATUS_FLAG_OVERFLOW,
		STATUS_FLAG_DECIMAL,
		STATUS_FLAG_INTERRUPT_DISABLE,
		STATUS_FLAG_ZERO,
		STATUS_FLAG_CARRY,
	}

	for _, f := range flags {
		if p&f > 0 {
			sb.WriteByte(flagMap[f])
		} else {
			sb.WriteByte('.')
		}
	}

	return sb.String()
}

// CPU implements all of the machine state for the HXC-24.
type CPU struct {
	acc    uint16    // main register
	x, y   uint16    // index registers
	r      [8]uint16 // general purpose registers R0-R7
	status uint8     // a register for storing various status bits
	sp     uint16    // stack pointer - stack lives in WorkRAM so 16 bits suffice
	pc     uint32    // the program counter, 24 bits used

	cycles  uint64 // lifetime cycle counter
	halted  bool   // set by HLT, cleared only by reset
	waiting bool   // set by WFI, cleared when an interrupt is serviced

	// Pending interrupt ids, held sorted by descending priority and
	// free of duplicates.
	pending []uint8

	mem Memory
	cop Coprocessor
}

func New(m Memory) *CPU {
	// Power on state: stack grows down from the top of WorkRAM,
	// execution starts at the BIOS base until reset loads the
	// real vector.
	return &CPU{
		sp:  0xFFFF,
		pc:  VECTOR_BASE,
		mem: m,
	}
}

func (c *CPU) String() string {
	return fmt.Sprintf("A,X,Y: 0x%04x, 0x%04x, 0x%04x; PC: 0x%06x, SP: 0x%04x, P: %s; OP: %s",
		c.acc, c.x, c.y, c.pc, c.sp, statusString(c.status), opcodes[c.mem.Read(c.pc)])
}

// AttachCoprocessor wires the COP instruction to a dispatch target.
// Without one, COP executes as a NOP.
func (c *CPU) AttachCoprocessor(cop Coprocessor) {
	c.cop = cop
}

// Accessors for the console and the debugger. The register file itself
// stays unexported so all mutation funnels through Step and Reset.

func (c *CPU) A() uint16       { return c.acc }
func (c *CPU) X() uint16       { return c.x }
func (c *CPU) Y() uint16       { return c.y }
func (c *CPU) R(n int) uint16  { return c.r[n&0x07] }
func (c *CPU) SP() uint16      { return c.sp }
func (c *CPU) PC() uint32      { return c.pc }
func (c *CPU) Status() uint8   { return c.status }
func (c *CPU) Cycles() uint64  { return c.cycles }
func (c *CPU) Halted() bool    { return c.halted }
func (c *CPU) SetPC(pc uint32) { c.pc = pc & ADDR_MASK }

// SetR lets the guest-facing COP dispatcher seed job arguments.
func (c *CPU) SetR(n int, val uint16) { c.r[n&0x07] = val }

// memRead returns the byte from memory at addr.
func (c *CPU) memRead(addr uint32) uint8 {
	return c.mem.Read(addr & ADDR_MASK)
}

// memWrite writes val to memory at addr.
func (c *CPU) memWrite(addr uint32, val uint8) {
	c.mem.Write(addr&ADDR_MASK, val)
}

// memRead16 returns the two bytes from memory at addr (lower byte is
// first).
func (c *CPU) memRead16(addr uint32) uint16 {
	lsb := uint16(c.memRead(addr))
	msb := uint16(c.memRead(addr + 1))

	return (msb << 8) | lsb
}

// memWrite16 stores val at addr (lower byte is first).
func (c *CPU) memWrite16(addr uint32, val uint16) {
	c.memWrite(addr, uint8(val&0x00FF))
	c.memWrite(addr+1, uint8(val>>8))
}

// memRead24 returns the three bytes from memory at addr as a 24-bit
// little-endian value.
func (c *CPU) memRead24(addr uint32) uint32 {
	lo := uint32(c.memRead(addr))
	mid := uint32(c.memRead(addr + 1))
	hi := uint32(c.memRead(addr + 2))

	return lo | (mid << 8) | (hi << 16)
}

// Reset re-initializes the register file, reads the reset vector from
// the BIOS base and clears the cycle counter. Pending interrupts
// survive a reset.
func (c *CPU) Reset() {
	c.acc, c.x, c.y = 0, 0, 0
	c.r = [8]uint16{}
	c.status = 0
	c.sp = 0xFFFF
	c.halted = false
	c.waiting = false
	c.cycles = 0

	c.pc = c.memRead24(VECTOR_BASE)
}

// RequestInterrupt queues id for servicing. Maskable requests are
// dropped outright while interrupt-disable is set; duplicates of an
// already-pending id are never queued twice.
func (c *CPU) RequestInterrupt(id uint8) {
	if id != INT_NMI && c.status&STATUS_FLAG_INTERRUPT_DISABLE > 0 {
		return
	}
	c.enqueue(id)
}

// TriggerNMI queues the non-maskable interrupt regardless of the
// interrupt-disable flag.
func (c *CPU) TriggerNMI() {
	c.enqueue(INT_NMI)
}

func (c *CPU) enqueue(id uint8) {
	for _, p := range c.pending {
		if p == id {
			return
		}
	}
	c.pending = append(c.pending, id)
	sort.Slice(c.pending, func(i, j int) bool { return c.pending[i] > c.pending[j] })
}

// PendingInterrupts exposes a copy of the queue for tests and the
// debugger.
func (c *CPU) PendingInterrupts() []uint8 {
	return append([]uint8(nil), c.pending...)
}

// serviceInterrupt dispatches the highest-priority serviceable pending
// interrupt, if any. A serviced interrupt consumes the whole step: the
// return address is pushed, interrupts are disabled and execution
// continues at the handler from the vector table.
func (c *CPU) serviceInterrupt() bool {
	for i, id := range c.pending {
		if id != INT_NMI && c.status&STATUS_FLAG_INTERRUPT_DISABLE > 0 {
			continue
		}

		c.pending = append(c.pending[:i], c.pending[i+1:]...)
		c.pushU24(c.pc)
		c.flagsOn(STATUS_FLAG_INTERRUPT_DISABLE)
		c.pc = c.memRead24(VECTOR_BASE + uint32(id)*VECTOR_BYTES)
		c.waiting = false
		c.cycles += 7
		return true
	}

	return false
}

// Step runs the CPU for one decision: service an interrupt, or fetch
// and execute a single instruction. It returns the cycles consumed.
func (c *CPU) Step() uint64 {
	start := c.cycles

	if c.halted {
		c.cycles += 1
		return c.cycles - start
	}

	if c.serviceInterrupt() {
		return c.cycles - start
	}

	if c.waiting {
		c.cycles += 1
		return c.cycles - start
	}

	op := c.memRead(c.pc)
	c.pc = (c.pc + 1) & ADDR_MASK
	c.execute(op)

	return c.cycles - start
}

// fetch16 reads a 16-bit immediate at PC and advances past it.
func (c *CPU) fetch16() uint16 {
	v := c.memRead16(c.pc)
	c.pc = (c.pc + 2) & ADDR_MASK
	return v
}

// fetch24 reads a 24-bit absolute address at PC and advances past it.
func (c *CPU) fetch24() uint32 {
	v := c.memRead24(c.pc)
	c.pc = (c.pc + 3) & ADDR_MASK
	return v
}

// setNegativeAndZeroFlags sets the STATUS_FLAG_NEGATIVE and
// STATUS_FLAG_ZERO bits of the status register accordingly for the
// 16-bit value specified in n.
func (c *CPU) setNegativeAndZeroFlags(n uint16) {
	if n == 0 {
		c.flagsOn(STATUS_FLAG_ZERO)
	} else {
		c.flagsOff(STATUS_FLAG_ZERO)
	}

	if n&0x8000 != 0 {
		c.flagsOn(STATUS_FLAG_NEGATIVE)
	} else {
		c.flagsOff(STATUS_FLAG_NEGATIVE)
	}
}

// flagsOn forces the flags in mask (STATUS_FLAG_XXX|STATUS_FLAG_YYY)
// on in the status register.
func (c *CPU) flagsOn(mask uint8) {
	c.status = c.status | mask
}

// flagsOff forces the flags in mask (STATUS_FLAG_XXX|STATUS_FLAG_YYY)
// off in the status register.
func (c *CPU) flagsOff(mask uint8) {
	c.status = c.status &^ mask
}

// getStackAddr maps the 16-bit stack counter into WorkRAM.
func (c *CPU) getStackAddr() uint32 {
	return uint32(c.sp)
}

// pushStack writes then decrements; popStack increments then reads.
func (c *CPU) pushStack(val uint8) {
	c.memWrite(c.getStackAddr(), val)
	c.sp -= 1
}

func (c *CPU) popStack() uint8 {
	c.sp += 1
	return c.memRead(c.getStackAddr())
}

// pushU24 pushes low, mid, high so that popping in the inverse order
// reconstructs the original.
func (c *CPU) pushU24(addr uint32) {
	c.pushStack(uint8(addr & 0xFF))
	c.pushStack(uint8((addr >> 8) & 0xFF))
	c.pushStack(uint8((addr >> 16) & 0xFF))
}

func (c *CPU) popU24() uint32 {
	hi := uint32(c.popStack())
	mid := uint32(c.popStack())
	lo := uint32(c.popStack())

	return lo | (mid << 8) | (hi << 16)
}

// branch reads the 8-bit signed displacement, advances PC past it, and
// takes the branch when the mask bits compare per predicate. Taken
// branches cost 3 cycles; not-taken, 2.
func (c *CPU) branch(mask uint8, predicate bool) {
	offset := int8(c.memRead(c.pc))
	c.pc = (c.pc + 1) & ADDR_MASK

	if (c.status&mask > 0) == predicate {
		c.pc = uint32(int64(c.pc)+int64(offset)) & ADDR_MASK
		c.cycles += 3
	} else {
		c.cycles += 2
	}
}

// addWithFlags adds value into the accumulator: carry is unsigned
// overflow of the 16-bit add, overflow is the signed-sign mismatch.
func (c *CPU) addWithFlags(value uint16) {
	result := c.acc + value

	var mask uint8
	if result < c.acc {
		mask |= STATUS_FLAG_CARRY
	}
	if (c.acc^result)&(value^result)&0x8000 != 0 {
		mask |= STATUS_FLAG_OVERFLOW
	}

	c.flagsOff(STATUS_FLAG_CARRY | STATUS_FLAG_OVERFLOW)
	c.flagsOn(mask)

	c.acc = result
	c.setNegativeAndZeroFlags(c.acc)
}

// subWithFlags subtracts value from the accumulator. Carry is the
// inverse of the borrow: C=1 means "no borrow".
func (c *CPU) subWithFlags(value uint16) {
	result := c.acc - value

	var mask uint8
	if value <= c.acc {
		mask |= STATUS_FLAG_CARRY
	}
	if (c.acc^value)&(c.acc^result)&0x8000 != 0 {
		mask |= STATUS_FLAG_OVERFLOW
	}

	c.flagsOff(STATUS_FLAG_CARRY | STATUS_FLAG_OVERFLOW)
	c.flagsOn(mask)

	c.acc = result
	c.setNegativeAndZeroFlags(c.acc)
}

// execute dispatches a fetched opcode. Unknown opcodes behave as NOP so
// a runaway guest can never crash the emulator.
func (c *CPU) execute(op uint8) {
	switch op {
	case OP_NOP:
		c.cycles += 1

	case OP_LDA_IMM:
		c.acc = c.fetch16()
		c.setNegativeAndZeroFlags(c.acc)
		c.cycles += 2

	case OP_STA_ABS:
		c.memWrite16(c.fetch24(), c.acc)
		c.cycles += 3

	case OP_LDX_IMM:
		c.x = c.fetch16()
		c.setNegativeAndZeroFlags(c.x)
		c.cycles += 2

	case OP_STX_ABS:
		c.memWrite16(c.fetch24(), c.x)
		c.cycles += 3

	case OP_LDY_IMM:
		c.y = c.fetch16()
		c.setNegativeAndZeroFlags(c.y)
		c.cycles += 2

	case OP_STY_ABS:
		c.memWrite16(c.fetch24(), c.y)
		c.cycles += 3

	case OP_LDA_ABS, OP_LDX_ABS, OP_LDY_ABS:
		// Reserved on current silicon: the assembler emits these
		// but the CPU treats them as a NOP over the operand.
		c.fetch24()
		c.cycles += 1

	case OP_ADD_IMM:
		c.addWithFlags(c.fetch16())
		c.cycles += 2

	case OP_SUB_IMM:
		c.subWithFlags(c.fetch16())
		c.cycles += 2

	case OP_AND_IMM:
		c.acc &= c.fetch16()
		c.setNegativeAndZeroFlags(c.acc)
		c.cycles += 2

	case OP_OR_IMM:
		c.acc |= c.fetch16()
		c.setNegativeAndZeroFlags(c.acc)
		c.cycles += 2

	case OP_XOR_IMM:
		c.acc ^= c.fetch16()
		c.setNegativeAndZeroFlags(c.acc)
		c.cycles += 2

	case OP_JMP_ABS:
		c.pc = c.fetch24() & ADDR_MASK
		c.cycles += 3

	case OP_JSR_ABS:
		addr := c.fetch24()
		c.pushU24(c.pc)
		c.pc = addr & ADDR_MASK
		c.cycles += 5

	case OP_RTS:
		c.pc = c.popU24() & ADDR_MASK
		c.cycles += 4

	case OP_BRA:
		offset := int8(c.memRead(c.pc))
		c.pc = (c.pc + 1) & ADDR_MASK
		c.pc = uint32(int64(c.pc)+int64(offset)) & ADDR_MASK
		c.cycles += 2

	case OP_BEQ:
		c.branch(STATUS_FLAG_ZERO, true)
	case OP_BNE:
		c.branch(STATUS_FLAG_ZERO, false)
	case OP_BCS:
		c.branch(STATUS_FLAG_CARRY, true)
	case OP_BCC:
		c.branch(STATUS_FLAG_CARRY, false)
	case OP_BMI:
		c.branch(STATUS_FLAG_NEGATIVE, true)
	case OP_BPL:
		c.branch(STATUS_FLAG_NEGATIVE, false)
	case OP_BVS:
		c.branch(STATUS_FLAG_OVERFLOW, true)
	case OP_BVC:
		c.branch(STATUS_FLAG_OVERFLOW, false)

	case OP_SEI:
		c.flagsOn(STATUS_FLAG_INTERRUPT_DISABLE)
		c.cycles += 1

	case OP_CLI:
		c.flagsOff(STATUS_FLAG_INTERRUPT_DISABLE)
		c.cycles += 1

	case OP_RTI:
		c.pc = c.popU24() & ADDR_MASK
		c.flagsOff(STATUS_FLAG_INTERRUPT_DISABLE)
		c.cycles += 5

	case OP_WFI:
		c.waiting = true
		c.cycles += 1

	case OP_COP:
		arg := c.memRead(c.pc)
		c.pc = (c.pc + 1) & ADDR_MASK
		if c.cop != nil {
			c.cop.Dispatch(arg)
		}
		c.cycles += 4

	case OP_HLT:
		c.halted = true
		c.cycles += 1

	default:
		c.cycles += 1
	}
}
