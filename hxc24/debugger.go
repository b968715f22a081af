package hxc24

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"
)

// Stepper advances the whole machine by one instruction. The console
// passes itself in so a debug step also ticks the coprocessors.
type Stepper interface {
	Step()
}

type model struct {
	cpu     *CPU
	machine Stepper

	prevPC uint32
}

// Init is the first function that will be called. It returns an optional
// initial command. To not perform an initial command return nil.
func (m model) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case " ", "j":
			m.prevPC = m.cpu.pc
			m.machine.Step()

		case "r":
			m.cpu.Reset()
		}
	}
	return m, nil
}

// renderPage renders 16 bytes of memory as a line. The current PC is
// highlighted.
func (m model) renderPage(start uint32) string {
	s := fmt.Sprintf("%06x | ", start)
	for i := uint32(0); i < 16; i++ {
		b := m.cpu.memRead(start + i)
		if start+i == m.cpu.pc {
			s += fmt.Sprintf("[%02x] ", b)
		} else {
			s += fmt.Sprintf(" %02x  ", b)
		}
	}
	return s
}

func (m model) status() string {
	var flags string
	for _, f := range []uint8{
		STATUS_FLAG_NEGATIVE,
		STATUS_FLAG_OVERFLOW,
		STATUS_FLAG_DECIMAL,
		STATUS_FLAG_INTERRUPT_DISABLE,
		STATUS_FLAG_ZERO,
		STATUS_FLAG_CARRY,
	} {
		if m.cpu.status&f > 0 {
			flags += "/ "
		} else {
			flags += "  "
		}
	}

	return fmt.Sprintf(`
PC: %06x (%06x)
 A: %04x
 X: %04x
 Y: %04x
SP: %04x
 R: %04x %04x %04x %04x
    %04x %04x %04x %04x
cyc: %d
N V D I Z C
`,
		m.cpu.pc,
		m.prevPC,
		m.cpu.acc,
		m.cpu.x,
		m.cpu.y,
		m.cpu.sp,
		m.cpu.r[0], m.cpu.r[1], m.cpu.r[2], m.cpu.r[3],
		m.cpu.r[4], m.cpu.r[5], m.cpu.r[6], m.cpu.r[7],
		m.cpu.cycles,
	) + flags
}

func (m model) pageTable() string {
	header := "addr   | "
	for b := 0; b < 16; b++ {
		header += fmt.Sprintf("  %01x  ", b)
	}

	pages := []string{header}

	// A window of the stack top plus the code around PC.
	base := (m.cpu.pc &^ 0xF) & ADDR_MASK
	offsets := []uint32{
		uint32(m.cpu.sp) &^ 0xF,
		base,
		(base + 16) & ADDR_MASK,
		(base + 32) & ADDR_MASK,
		(base + 48) & ADDR_MASK,
	}
	for _, off := range offsets {
		pages = append(pages, m.renderPage(off))
	}
	return strings.Join(pages, "\n")
}

// View renders the program's UI, which is just a string. The view is
// rendered after every Update.
func (m model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			m.pageTable(),
			m.status(),
		),
		"",
		spew.Sdump(opcodes[m.cpu.memRead(m.cpu.pc)]),
		"space/j: step  r: reset  q: quit",
	)
}

// Debug starts an interactive TUI stepping the machine one instruction
// at a time.
func Debug(c *CPU, machine Stepper) error {
	_, err := tea.NewProgram(model{cpu: c, machine: machine}).Run()
	return err
}
