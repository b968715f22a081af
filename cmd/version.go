package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd returns the caller's installed hx1 version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Retrieve the currently installed hx1 version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(currentReleaseVersion)
	},
}
