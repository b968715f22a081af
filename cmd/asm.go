package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/nexelhq/hx1/bios"
	"github.com/nexelhq/hx1/hxasm"
	"github.com/spf13/cobra"
)

var (
	outPath    string
	asBIOS     bool
	entryLabel string
)

// asmCmd assembles an HXC-24 source file into raw bytes or a full
// BIOS image.
var asmCmd = &cobra.Command{
	Use:   "asm path/to/source.hxs",
	Short: "assemble an HXC-24 program",
	Args:  cobra.ExactArgs(1),
	Run:   runAsm,
}

func init() {
	asmCmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default: source with .bin)")
	asmCmd.Flags().BoolVar(&asBIOS, "bios", false, "emit a full 64KB BIOS image with vectors")
	asmCmd.Flags().StringVar(&entryLabel, "entry", "start", "entry label for BIOS vectors")
}

func runAsm(cmd *cobra.Command, args []string) {
	source, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("Reading source: %v", err)
	}

	var out []uint8
	if asBIOS {
		out, err = bios.Build(string(source), entryLabel)
	} else {
		var program *hxasm.Program
		program, err = hxasm.Assemble(string(source))
		if err == nil {
			out = program.Bytes
		}
	}
	if err != nil {
		log.Fatalf("Assembly failed: %v", err)
	}

	dest := outPath
	if dest == "" {
		dest = strings.TrimSuffix(args[0], ".hxs") + ".bin"
	}
	if err := os.WriteFile(dest, out, 0644); err != nil {
		log.Fatalf("Writing %s: %v", dest, err)
	}

	fmt.Printf("Wrote %d bytes to %s\n", len(out), dest)
}
