package cmd

import (
	"log"
	"os"

	"github.com/nexelhq/hx1/console"
	"github.com/nexelhq/hx1/hxc24"
	"github.com/spf13/cobra"
)

// debugCmd boots the console under the interactive TUI debugger
// instead of the display front-end.
var debugCmd = &cobra.Command{
	Use:   "debug [path/to/cart]",
	Short: "step the emulator in an interactive debugger",
	Args:  cobra.MaximumNArgs(1),
	Run:   runDebug,
}

func init() {
	debugCmd.Flags().StringVar(&biosPath, "bios", "", "path to a BIOS image (stock BIOS when empty)")
}

func runDebug(cmd *cobra.Command, args []string) {
	hx1 := console.New()

	if biosPath != "" {
		image, err := os.ReadFile(biosPath)
		if err != nil {
			log.Fatalf("Invalid BIOS: %v", err)
		}
		hx1.LoadBIOS(image)
	}
	if len(args) == 1 {
		cart, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Invalid cart: %v", err)
		}
		hx1.LoadCart(cart)
	}

	hx1.Reset()

	if err := hxc24.Debug(hx1.CPU(), hx1); err != nil {
		log.Fatal(err)
	}
}
