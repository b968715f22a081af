package console

import (
	"context"
	"time"

	"github.com/nexelhq/hx1/apu"
	"github.com/nexelhq/hx1/baseplate"
	"github.com/nexelhq/hx1/bios"
	"github.com/nexelhq/hx1/hxc24"
	"github.com/nexelhq/hx1/vdp"
	"github.com/nexelhq/hx1/vlu"
)

// CPU clock and frame timing.
const (
	CPU_CLOCK_HZ = 18_432_000
	TARGET_FPS   = 60

	// 307,200 cycles per frame at 60 FPS
	CYCLES_PER_FRAME = CPU_CLOCK_HZ / TARGET_FPS
)

// COP dispatch bytes: the high nibble selects the coprocessor, the low
// nibble the job. Job arguments ride in R0-R3.
const (
	COP_UNIT_VLU = 0x10

	COP_VLU_TRANSFORM = 0x00
	COP_VLU_DOT       = 0x01
	COP_VLU_CROSS     = 0x02
	COP_VLU_NORMALIZE = 0x03
)

// Console owns the whole machine and is the only mutator of its parts:
// everything below runs on whichever single goroutine calls Step.
type Console struct {
	cpu *hxc24.CPU
	bus *Bus
	vdp *vdp.VDP
	vlu *vlu.VLU
	apu *apu.APU

	module *baseplate.Module

	frameCount uint64

	targetCyclesPerFrame uint64
}

func New() *Console {
	c := &Console{targetCyclesPerFrame: CYCLES_PER_FRAME}

	c.vdp = vdp.New(c)
	c.apu = apu.New()
	c.vlu = vlu.New(c)
	c.bus = NewBus(c.vdp, c.apu)
	c.cpu = hxc24.New(c.bus)
	c.cpu.AttachCoprocessor(c)

	c.bus.LoadBIOS(bios.Default())

	return c
}

// Component accessors for hosts, demos and tests.

func (c *Console) CPU() *hxc24.CPU { return c.cpu }
func (c *Console) Bus() *Bus       { return c.bus }
func (c *Console) VDP() *vdp.VDP   { return c.vdp }
func (c *Console) VLU() *vlu.VLU   { return c.vlu }
func (c *Console) APU() *apu.APU   { return c.apu }

// RequestInterrupt and TriggerNMI make the console the interrupt
// concentrator: coprocessors assert their lines here and the console
// forwards them into the CPU's priority queue.
func (c *Console) RequestInterrupt(id uint8) {
	c.cpu.RequestInterrupt(id)
}

func (c *Console) TriggerNMI() {
	c.cpu.TriggerNMI()
}

// Dispatch services the CPU's COP instruction. Bad job encodings are
// ignored: guest programs never fault the emulator.
func (c *Console) Dispatch(op uint8) {
	if op&0xF0 != COP_UNIT_VLU {
		return
	}

	r := func(n int) int { return int(c.cpu.R(n)) }

	var job vlu.Job
	switch op & 0x0F {
	case COP_VLU_TRANSFORM:
		job = vlu.Transform{Dest: r(0), Vec: r(1), Matrix: r(2)}
	case COP_VLU_DOT:
		job = vlu.Dot{A: r(0), B: r(1)}
	case COP_VLU_CROSS:
		job = vlu.Cross{Dest: r(0), A: r(1), B: r(2)}
	case COP_VLU_NORMALIZE:
		job = vlu.Normalize{Dest: r(0), Src: r(1)}
	default:
		return
	}

	c.vlu.Execute(job)
}

// LoadBIOS replaces the BIOS image.
func (c *Console) LoadBIOS(data []uint8) {
	c.bus.LoadBIOS(data)
}

// LoadCart loads a cartridge ROM image.
func (c *Console) LoadCart(data []uint8) {
	c.bus.LoadCart(data)
}

// AttachModule hands the console a parsed Baseplate module.
func (c *Console) AttachModule(m *baseplate.Module) {
	c.module = m
}

// RunModule executes the attached Baseplate module to completion.
func (c *Console) RunModule() error {
	if c.module == nil {
		return nil
	}
	return baseplate.NewVM(c.module).Run()
}

// Reset re-vectors the CPU and clears the frame counter. Loaded
// memory is left alone.
func (c *Console) Reset() {
	c.cpu.Reset()
	c.frameCount = 0
}

// Step executes one CPU instruction (or interrupt service) and then
// advances the coprocessors by the exact cycle count the CPU consumed.
// This coupling is what makes v-blank timing deterministic relative to
// the program.
func (c *Console) Step() {
	cycles := c.cpu.Step()

	c.vdp.Step(cycles)
	c.apu.Step(cycles)
	if c.apu.TakeBufferEmpty() {
		c.cpu.RequestInterrupt(hxc24.INT_APU_BUF_EMPTY)
	}
}

// StepFrame runs Step until the CPU has consumed one frame's worth of
// cycles or halts.
func (c *Console) StepFrame() {
	target := c.cpu.Cycles() + c.targetCyclesPerFrame

	for c.cpu.Cycles() < target && !c.cpu.Halted() {
		c.Step()
	}

	c.frameCount += 1
}

// RunFrames steps whole frames, stopping early on halt.
func (c *Console) RunFrames(n uint64) {
	for i := uint64(0); i < n; i++ {
		c.StepFrame()

		if c.cpu.Halted() {
			break
		}
	}
}

// Run paces frame execution at the target rate until the context is
// cancelled or the CPU halts.
func (c *Console) Run(ctx context.Context) {
	t := time.NewTicker(time.Second / TARGET_FPS)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			c.StepFrame()
			if c.cpu.Halted() {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// FrameCount reports frames completed since reset.
func (c *Console) FrameCount() uint64 {
	return c.frameCount
}

// Stats is a point-in-time execution snapshot.
type Stats struct {
	TotalCycles uint64
	FrameCount  uint64
	PC          uint32
	Halted      bool
}

func (c *Console) Stats() Stats {
	return Stats{
		TotalCycles: c.cpu.Cycles(),
		FrameCount:  c.frameCount,
		PC:          c.cpu.PC(),
		Halted:      c.cpu.Halted(),
	}
}
