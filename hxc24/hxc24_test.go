package hxc24

import (
	"testing"
)

type mem struct {
	data []uint8
}

func (m *mem) Read(addr uint32) uint8 {
	return m.data[addr&ADDR_MASK]
}

func (m *mem) Write(addr uint32, val uint8) {
	m.data[addr&ADDR_MASK] = val
}

func NewMem() *mem {
	return &mem{data: make([]uint8, ADDR_MASK+1)}
}

// load places a program at addr and points the reset vector at it.
func load(m *mem, addr uint32, prog []uint8) {
	m.data[VECTOR_BASE] = uint8(addr & 0xFF)
	m.data[VECTOR_BASE+1] = uint8((addr >> 8) & 0xFF)
	m.data[VECTOR_BASE+2] = uint8((addr >> 16) & 0xFF)
	copy(m.data[addr:], prog)
}

func TestReset(t *testing.T) {
	m := NewMem()
	load(m, 0x400400, []uint8{OP_NOP})

	c := New(m)
	c.acc = 0x1234
	c.cycles = 99
	c.Reset()

	if c.acc != 0 || c.pc != 0x400400 || c.sp != 0xFFFF || c.cycles != 0 {
		t.Errorf("Got A=0x%04x, PC=0x%06x, SP=0x%04x, cycles=%d after reset", c.acc, c.pc, c.sp, c.cycles)
	}
}

func TestLoadsAndStores(t *testing.T) {
	cases := []struct {
		prog       []uint8
		wantA      uint16
		wantAddr   uint32
		wantVal    uint16
		wantCycles uint64
	}{
		// LDA #0x1234; STA $001000; HLT
		{[]uint8{0x01, 0x34, 0x12, 0x02, 0x00, 0x10, 0x00, 0xFF}, 0x1234, 0x001000, 0x1234, 6},
		// LDA #0x0000 sets Z
		{[]uint8{0x01, 0x00, 0x00, 0xFF}, 0x0000, 0, 0, 3},
	}

	for i, tc := range cases {
		m := NewMem()
		load(m, 0xFF0020, tc.prog)
		c := New(m)
		c.Reset()

		for !c.halted {
			c.Step()
		}

		if c.acc != tc.wantA {
			t.Errorf("%d: A = 0x%04x, wanted 0x%04x", i, c.acc, tc.wantA)
		}
		if tc.wantAddr != 0 {
			if got := c.memRead16(tc.wantAddr); got != tc.wantVal {
				t.Errorf("%d: [0x%06x] = 0x%04x, wanted 0x%04x", i, tc.wantAddr, got, tc.wantVal)
			}
		}
		if c.cycles != tc.wantCycles {
			t.Errorf("%d: cycles = %d, wanted %d", i, c.cycles, tc.wantCycles)
		}
	}
}

func TestArithmeticFlags(t *testing.T) {
	cases := []struct {
		acc        uint16
		op         uint8
		operand    uint16
		wantA      uint16
		wantC      bool
		wantZ      bool
		wantV      bool
		wantN      bool
	}{
		{0xFFFF, OP_ADD_IMM, 0x0001, 0x0000, true, true, false, false},
		{0x0100, OP_ADD_IMM, 0x0050, 0x0150, false, false, false, false},
		{0x7FFF, OP_ADD_IMM, 0x0001, 0x8000, false, false, true, true},
		{0x0100, OP_SUB_IMM, 0x0050, 0x00B0, true, false, false, false}, // no borrow: C=1
		{0x0000, OP_SUB_IMM, 0x0001, 0xFFFF, false, false, false, true}, // borrow: C=0
		{0x8000, OP_SUB_IMM, 0x0001, 0x7FFF, true, false, true, false},
		{0xF0F0, OP_AND_IMM, 0xFF00, 0xF000, false, false, false, true},
		{0x00F0, OP_OR_IMM, 0x0F00, 0x0FF0, false, false, false, false},
		{0xFFFF, OP_XOR_IMM, 0xFFFF, 0x0000, false, true, false, false},
	}

	for i, tc := range cases {
		m := NewMem()
		load(m, 0xFF0020, []uint8{tc.op, uint8(tc.operand & 0xFF), uint8(tc.operand >> 8)})
		c := New(m)
		c.Reset()
		c.acc = tc.acc
		c.Step()

		if c.acc != tc.wantA {
			t.Errorf("%d: A = 0x%04x, wanted 0x%04x", i, c.acc, tc.wantA)
		}
		checks := []struct {
			flag uint8
			want bool
		}{
			{STATUS_FLAG_CARRY, tc.wantC},
			{STATUS_FLAG_ZERO, tc.wantZ},
			{STATUS_FLAG_OVERFLOW, tc.wantV},
			{STATUS_FLAG_NEGATIVE, tc.wantN},
		}
		for _, ch := range checks {
			if got := c.status&ch.flag > 0; got != ch.want {
				t.Errorf("%d: flag %c = %t, wanted %t", i, flagMap[ch.flag], got, ch.want)
			}
		}
	}
}

func TestBranches(t *testing.T) {
	cases := []struct {
		op         uint8
		status     uint8
		offset     uint8
		wantPC     uint32
		wantCycles uint64
	}{
		{OP_BRA, 0, 10, 0xFF0020 + 2 + 10, 2}, // BRA is always 2 cycles
		{OP_BEQ, STATUS_FLAG_ZERO, 10, 0xFF0020 + 2 + 10, 3},
		{OP_BEQ, 0, 10, 0xFF0022, 2},
		{OP_BNE, 0, 0xFE, 0xFF0020, 3}, // -2: loop back onto itself
		{OP_BNE, STATUS_FLAG_ZERO, 10, 0xFF0022, 2},
		{OP_BCS, STATUS_FLAG_CARRY, 0x80, 0xFF0022 - 128, 3},
		{OP_BCC, 0, 4, 0xFF0026, 3},
		{OP_BMI, STATUS_FLAG_NEGATIVE, 4, 0xFF0026, 3},
		{OP_BPL, STATUS_FLAG_NEGATIVE, 4, 0xFF0022, 2},
		{OP_BVS, STATUS_FLAG_OVERFLOW, 4, 0xFF0026, 3},
		{OP_BVC, STATUS_FLAG_OVERFLOW, 4, 0xFF0022, 2},
	}

	for i, tc := range cases {
		m := NewMem()
		load(m, 0xFF0020, []uint8{tc.op, tc.offset})
		c := New(m)
		c.Reset()
		c.status = tc.status
		got := c.Step()

		if c.pc != tc.wantPC || got != tc.wantCycles {
			t.Errorf("%d: PC = 0x%06x, cycles = %d, wanted PC = 0x%06x, cycles %d", i, c.pc, got, tc.wantPC, tc.wantCycles)
		}
	}
}

func TestJsrRts(t *testing.T) {
	m := NewMem()
	// JSR $001000 at 0xFF0020; RTS at 0x001000.
	load(m, 0xFF0020, []uint8{0x21, 0x00, 0x10, 0x00})
	m.data[0x001000] = OP_RTS

	c := New(m)
	c.Reset()
	oldSP := c.sp

	c.Step()
	if c.pc != 0x001000 {
		t.Errorf("After JSR, PC = 0x%06x, wanted 0x001000", c.pc)
	}
	if c.sp != oldSP-3 {
		t.Errorf("After JSR, SP = 0x%04x, wanted 0x%04x", c.sp, oldSP-3)
	}

	c.Step()
	if c.pc != 0xFF0024 {
		t.Errorf("After RTS, PC = 0x%06x, wanted 0xFF0024", c.pc)
	}
	if c.sp != oldSP {
		t.Errorf("After RTS, SP = 0x%04x, wanted 0x%04x", c.sp, oldSP)
	}
}

func TestStackOrder(t *testing.T) {
	m := NewMem()
	c := New(m)

	c.pushU24(0x123456)
	// Pushed low, mid, high with write-then-decrement.
	if m.data[0xFFFF] != 0x56 || m.data[0xFFFE] != 0x34 || m.data[0xFFFD] != 0x12 {
		t.Errorf("Stack bytes = %02x %02x %02x, wanted 56 34 12", m.data[0xFFFF], m.data[0xFFFE], m.data[0xFFFD])
	}
	if got := c.popU24(); got != 0x123456 {
		t.Errorf("popU24 = 0x%06x, wanted 0x123456", got)
	}
}

func TestInterruptMasking(t *testing.T) {
	m := NewMem()
	c := New(m)

	c.flagsOn(STATUS_FLAG_INTERRUPT_DISABLE)
	c.RequestInterrupt(INT_TIMER0)
	if len(c.pending) != 0 {
		t.Errorf("Masked interrupt was enqueued: %v", c.pending)
	}

	c.TriggerNMI()
	if len(c.pending) != 1 || c.pending[0] != INT_NMI {
		t.Errorf("NMI not enqueued past mask: %v", c.pending)
	}
}

func TestInterruptPriorityAndDedup(t *testing.T) {
	m := NewMem()
	c := New(m)

	c.RequestInterrupt(INT_PAD_EVENT)
	c.RequestInterrupt(INT_HBLANK)
	c.RequestInterrupt(INT_TIMER0)
	c.RequestInterrupt(INT_HBLANK) // dup

	want := []uint8{INT_HBLANK, INT_TIMER0, INT_PAD_EVENT}
	got := c.PendingInterrupts()
	if len(got) != len(want) {
		t.Fatalf("Queue = %v, wanted %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Queue[%d] = %d, wanted %d", i, got[i], want[i])
		}
	}
}

func TestInterruptService(t *testing.T) {
	m := NewMem()
	// Program: NOP at entry. Handler for VLU_DONE at 0x002000.
	load(m, 0xFF0020, []uint8{OP_NOP})
	v := uint32(VECTOR_BASE + INT_VLU_DONE*VECTOR_BYTES)
	m.data[v] = 0x00
	m.data[v+1] = 0x20
	m.data[v+2] = 0x00

	c := New(m)
	c.Reset()
	c.RequestInterrupt(INT_VLU_DONE)

	cyc := c.Step()
	if cyc != 7 {
		t.Errorf("Interrupt service consumed %d cycles, wanted 7", cyc)
	}
	if c.pc != 0x002000 {
		t.Errorf("PC = 0x%06x, wanted handler 0x002000", c.pc)
	}
	if c.status&STATUS_FLAG_INTERRUPT_DISABLE == 0 {
		t.Errorf("I flag not set by interrupt service")
	}
	if len(c.pending) != 0 {
		t.Errorf("Queue not drained: %v", c.pending)
	}

	// The pushed return address is the pre-service PC.
	if got := c.popU24(); got != 0xFF0020 {
		t.Errorf("Pushed PC = 0x%06x, wanted 0xFF0020", got)
	}
}

func TestRTIRestoresReturnAddress(t *testing.T) {
	m := NewMem()
	load(m, 0xFF0020, []uint8{OP_NOP})
	v := uint32(VECTOR_BASE + INT_NMI*VECTOR_BYTES)
	m.data[v] = 0x00
	m.data[v+1] = 0x20
	m.data[v+2] = 0x00
	m.data[0x002000] = OP_RTI

	c := New(m)
	c.Reset()
	c.TriggerNMI()

	c.Step() // service
	c.Step() // RTI
	if c.pc != 0xFF0020 {
		t.Errorf("After RTI, PC = 0x%06x, wanted 0xFF0020", c.pc)
	}
	if c.status&STATUS_FLAG_INTERRUPT_DISABLE != 0 {
		t.Errorf("RTI left I set")
	}
}

func TestMaskedPendingNotDispatched(t *testing.T) {
	m := NewMem()
	load(m, 0xFF0020, []uint8{OP_SEI, OP_NOP})
	v := uint32(VECTOR_BASE + INT_TIMER0*VECTOR_BYTES)
	m.data[v+1] = 0x20

	c := New(m)
	c.Reset()
	c.RequestInterrupt(INT_TIMER0) // I clear: enqueued
	c.pending = []uint8{INT_TIMER0}
	c.flagsOn(STATUS_FLAG_INTERRUPT_DISABLE)

	// With I set, the pending maskable entry must not dispatch.
	c.Step()
	if len(c.pending) != 1 {
		t.Errorf("Masked pending interrupt was dispatched")
	}
}

func TestWFI(t *testing.T) {
	m := NewMem()
	load(m, 0xFF0020, []uint8{OP_WFI, OP_NOP})
	v := uint32(VECTOR_BASE + INT_NMI*VECTOR_BYTES)
	m.data[v] = 0x00
	m.data[v+1] = 0x20
	m.data[v+2] = 0x00

	c := New(m)
	c.Reset()

	c.Step() // WFI
	pc := c.pc
	c.Step()
	c.Step()
	if c.pc != pc {
		t.Errorf("CPU advanced while waiting: PC = 0x%06x", c.pc)
	}

	c.TriggerNMI()
	c.Step()
	if c.waiting {
		t.Errorf("Interrupt did not clear the wait state")
	}
	if c.pc != 0x002000 {
		t.Errorf("PC = 0x%06x, wanted handler 0x002000", c.pc)
	}
}

func TestHalt(t *testing.T) {
	m := NewMem()
	load(m, 0xFF0020, []uint8{OP_HLT})

	c := New(m)
	c.Reset()
	c.Step()
	if !c.halted {
		t.Fatalf("HLT did not halt")
	}

	before := c.cycles
	c.Step()
	if c.cycles != before+1 {
		t.Errorf("Halted step consumed %d cycles, wanted 1", c.cycles-before)
	}
}

func TestUnknownOpcodeIsNOP(t *testing.T) {
	m := NewMem()
	load(m, 0xFF0020, []uint8{0x99})

	c := New(m)
	c.Reset()
	cyc := c.Step()
	if cyc != 1 || c.pc != 0xFF0021 {
		t.Errorf("Unknown opcode: cycles = %d, PC = 0x%06x; wanted 1, 0xFF0021", cyc, c.pc)
	}
}

type copRecorder struct {
	ops []uint8
}

func (r *copRecorder) Dispatch(op uint8) {
	r.ops = append(r.ops, op)
}

func TestCOPDispatch(t *testing.T) {
	m := NewMem()
	load(m, 0xFF0020, []uint8{OP_COP, 0x12})

	c := New(m)
	rec := &copRecorder{}
	c.AttachCoprocessor(rec)
	c.Reset()

	cyc := c.Step()
	if cyc != 4 {
		t.Errorf("COP consumed %d cycles, wanted 4", cyc)
	}
	if len(rec.ops) != 1 || rec.ops[0] != 0x12 {
		t.Errorf("Dispatched ops = %v, wanted [0x12]", rec.ops)
	}
}

func TestReservedAbsoluteLoads(t *testing.T) {
	// 0x07/0x08/0x09 are reserved: they skip their operand and leave
	// registers alone.
	for i, op := range []uint8{OP_LDA_ABS, OP_LDX_ABS, OP_LDY_ABS} {
		m := NewMem()
		load(m, 0xFF0020, []uint8{op, 0x00, 0x10, 0x00})
		c := New(m)
		c.Reset()
		c.Step()
		if c.pc != 0xFF0024 {
			t.Errorf("%d: PC = 0x%06x, wanted 0xFF0024", i, c.pc)
		}
		if c.acc != 0 || c.x != 0 || c.y != 0 {
			t.Errorf("%d: reserved load touched a register", i)
		}
	}
}
