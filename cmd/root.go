package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// currentReleaseVersion is used to print the version the user currently has downloaded
const currentReleaseVersion = "v0.1.0"

// rootCmd is the base for all commands.
var rootCmd = &cobra.Command{
	Use:   "hx1 [command]",
	Short: "hx1 is a Nexel-24 (HX-1) console emulator",
	Long:  "hx1 emulates the Nexel-24 fantasy console: HXC-24 CPU, VDP-T video, VLU-24 vector unit and APU-6 audio, with a native assembler for BIOS images",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Unknown command. Try `hx1 help` for more information")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(asmCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs hx1 according to the user's command/subcommand/flags
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
