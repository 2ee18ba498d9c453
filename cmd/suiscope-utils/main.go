package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "suiscope-utils",
	Short: "Suiscope explorer utilities",
	Long:  "Terminal utilities for the Suiscope explorer including checkpoint and epoch listings and an interactive table browser",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
