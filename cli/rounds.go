package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bladesteam/blades/pkg/sdk"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10

	roundName    string
	roundTimeout time.Duration
	interactive  bool
	useCBOR      bool
	numSamples   int
)

var bsdk sdk.SDK

func SetBladesSDK(s sdk.SDK) {
	bsdk = s
}

func NewRoundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rounds [create|view|status|list|submit]",
		Short: "Rounds manager",
		Long:  `Create, view, list rounds and submit updates.`,
	}

	createCmd := &cobra.Command{
		Use:   "create <quorum>",
		Short: "Create round",
		Long: `Create an aggregation round.

Examples:
  # Create a round that closes after five updates
  blades-cli rounds create 5

  # Create a round with a collection timeout
  blades-cli rounds create 5 --timeout 30s

  # Fill in the round interactively
  blades-cli rounds create -i`,
		Run: func(cmd *cobra.Command, args []string) {
			var quorum int
			switch {
			case interactive:
				q, timeout, err := promptRound()
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				quorum = q
				roundTimeout = timeout
			case len(args) == 1:
				q, err := strconv.Atoi(args[0])
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				quorum = q
			default:
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			r, err := bsdk.CreateRound(sdk.Round{
				Name:    roundName,
				Quorum:  quorum,
				Timeout: roundTimeout,
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	createCmd.Flags().StringVarP(
		&roundName,
		"name",
		"n",
		"",
		"Round name, generated when empty",
	)
	createCmd.Flags().DurationVarP(
		&roundTimeout,
		"timeout",
		"t",
		0,
		"Collection timeout, zero waits forever",
	)
	createCmd.Flags().BoolVarP(
		&interactive,
		"interactive",
		"i",
		false,
		"Prompt for the round fields",
	)

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View round",
		Long:  `View round.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			r, err := bsdk.GetRound(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Round status",
		Long:  `Poll the barrier state of a round.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			status, err := bsdk.GetRoundStatus(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, status)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List rounds",
		Long:  `List rounds.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := bsdk.ListRounds(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	submitCmd := &cobra.Command{
		Use:   "submit <round_id> <client_id> <v1,v2,...>",
		Short: "Submit update",
		Long: `Submit one participant's update vector to a round.

Examples:
  # Submit a two entry update
  blades-cli rounds submit round-1 client-1 0.5,-1.25

  # Submit the same update encoded as CBOR
  blades-cli rounds submit round-1 client-1 0.5,-1.25 --cbor`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 3 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			vector, err := parseVector(args[2])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			update := sdk.Update{
				RoundID:    args[0],
				ClientID:   args[1],
				Vector:     vector,
				NumSamples: numSamples,
			}

			var r sdk.Round
			if useCBOR {
				r, err = bsdk.SubmitUpdateCBOR(update)
			} else {
				r, err = bsdk.SubmitUpdate(update)
			}
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	submitCmd.Flags().BoolVar(
		&useCBOR,
		"cbor",
		false,
		"Encode the update as CBOR",
	)
	submitCmd.Flags().IntVar(
		&numSamples,
		"num-samples",
		0,
		"Number of local samples behind the update",
	)

	cmd.AddCommand(createCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(statusCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(submitCmd)

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}

func promptRound() (int, time.Duration, error) {
	var quorumStr, timeoutStr string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Quorum").
				Description("Number of updates that closes the round").
				Value(&quorumStr).
				Validate(func(s string) error {
					_, err := strconv.Atoi(s)

					return err
				}),
			huh.NewInput().
				Title("Timeout").
				Description("Collection timeout such as 30s, empty waits forever").
				Value(&timeoutStr),
			huh.NewInput().
				Title("Name").
				Description("Optional round name").
				Value(&roundName),
		),
	)
	if err := form.Run(); err != nil {
		return 0, 0, err
	}

	quorum, err := strconv.Atoi(quorumStr)
	if err != nil {
		return 0, 0, err
	}

	var timeout time.Duration
	if timeoutStr != "" {
		timeout, err = time.ParseDuration(timeoutStr)
		if err != nil {
			return 0, 0, err
		}
	}

	return quorum, timeout, nil
}

func parseVector(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	vector := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		vector = append(vector, v)
	}

	return vector, nil
}
