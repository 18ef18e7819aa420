package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/bladesteam/blades/cli"
	"github.com/bladesteam/blades/pkg/sdk"
)

var (
	defCoordinatorURL = "http://localhost:8080"
	defTLSVerify      = false
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "blades-cli",
		Short: "Blades CLI",
		Long:  `Blades CLI is a command line interface for interacting with the blades coordinator.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				CoordinatorURL:  defCoordinatorURL,
				TLSVerification: defTLSVerify,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetBladesSDK(s)
		},
	}

	roundsCmd := cli.NewRoundsCmd()

	rootCmd.AddCommand(roundsCmd)

	rootCmd.PersistentFlags().StringVarP(
		&defCoordinatorURL,
		"coordinator-url",
		"c",
		defCoordinatorURL,
		"Coordinator URL",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&defTLSVerify,
		"tls-verification",
		"v",
		defTLSVerify,
		"TLS Verification",
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
