package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "transfusionctl",
		Short:        "Plan transfusions on the Jalali calendar",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newNextCommand())
	rootCmd.AddCommand(newHolidaysCommand())
	return rootCmd
}
