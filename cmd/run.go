package cmd

import (
	"context"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/nexelhq/hx1/console"
	"github.com/spf13/cobra"
)

var (
	biosPath string
	scale    int
)

// runCmd boots the console and opens the host window.
var runCmd = &cobra.Command{
	Use:   "run [path/to/cart]",
	Short: "run the hx1 emulator",
	Args:  cobra.MaximumNArgs(1),
	Run:   runConsole,
}

func init() {
	runCmd.Flags().StringVar(&biosPath, "bios", "", "path to a BIOS image (stock BIOS when empty)")
	runCmd.Flags().IntVar(&scale, "scale", 2, "window scale factor")
}

func runConsole(cmd *cobra.Command, args []string) {
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
	hx1.InitDisplay(scale)

	ctx, cancel := context.WithCancel(context.Background())
	go func(ctx context.Context) {
		hx1.Run(ctx)
	}(ctx)

	if err := ebiten.RunGame(hx1); err != nil {
		log.Fatal(err)
	}

	cancel()
}
