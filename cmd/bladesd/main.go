package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/bladesteam/blades/bladesd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bladesd",
		Short: "Blades Daemon",
		Long:  `Blades Daemon manages the lifecycle of blades components.`,
	}

	coordinatorCmd := bladesd.NewCoordinatorCmd()

	rootCmd.AddCommand(coordinatorCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
