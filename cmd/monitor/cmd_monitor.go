package monitor

import (
	"fmt"
	"os"
	"time"

	"github.com/fleetrun/fleetrun/internal/client"
	"github.com/fleetrun/fleetrun/internal/types"
	"github.com/fleetrun/fleetrun/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// ListCommandInvocations throttles aggressively on large fleets.
	pollRequestsPerSecond = 2.0
	pollBurstSize         = 4
)

var (
	commandID string
	interval  int
	region    string
	profile   string
)

func NewMonitorCmd() *cobra.Command {
	monitorCmd := &cobra.Command{
		Use:           "monitor",
		Short:         "Monitor the status of an SSM Run Command execution",
		Long:          "Polls the per-instance invocation statuses of a dispatched command until every invocation settles. The command id is taken from --command-id, or extracted from a submission acknowledgment piped to stdin (`fleetrun dispatch ... | fleetrun monitor`).",
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PreRunE:       preRunMonitor,
		RunE:          runMonitor,
	}

	groups := map[*pflag.FlagSet]string{}

	optionalFlags := pflag.NewFlagSet("optional", pflag.ExitOnError)
	optionalFlags.SortFlags = false
	optionalFlags.StringVar(&commandID, "command-id", "", "The command id to monitor (default: extracted from stdin JSON)")
	optionalFlags.IntVar(&interval, "interval", 15, "Polling interval in seconds")
	optionalFlags.StringVarP(&region, "region", "r", "", "The AWS region where the command was dispatched (default: region from AWS config)")
	optionalFlags.StringVarP(&profile, "profile", "p", "", "The AWS credential profile to use (default: default)")
	monitorCmd.Flags().AddFlagSet(optionalFlags)
	groups[optionalFlags] = "Optional Flags"

	monitorCmd.SetUsageFunc(func(c *cobra.Command) error {
		fmt.Printf("%s\n\n", c.Short)

		flagOrder := []*pflag.FlagSet{optionalFlags}
		groupNames := []string{"Optional Flags"}

		for i, fs := range flagOrder {
			usage := fs.FlagUsages()
			if usage != "" {
				fmt.Printf("%s:\n%s\n", groupNames[i], usage)
			}
		}

		fmt.Println("All flags can be provided via environment variables (uppercase, with underscores).")

		return nil
	})

	return monitorCmd
}

func preRunMonitor(cmd *cobra.Command, args []string) error {
	if err := utils.BindEnvToFlags(cmd); err != nil {
		return err
	}

	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	opts, err := parseMonitorOpts()
	if err != nil {
		return fmt.Errorf("❌ failed to parse monitor opts: %v", err)
	}

	ssmClient, err := client.NewRateLimitedSSMClient(region, profile, pollRequestsPerSecond, pollBurstSize)
	if err != nil {
		return fmt.Errorf("❌ failed to create SSM client: %v", err)
	}

	statusMonitor := NewStatusMonitor(ssmClient, *opts)
	if err := statusMonitor.Run(cmd.Context()); err != nil {
		return fmt.Errorf("❌ %v", err)
	}

	return nil
}

func parseMonitorOpts() (*StatusMonitorOpts, error) {
	resolvedCommandID := commandID
	if resolvedCommandID == "" {
		extracted, err := types.ExtractCommandID(os.Stdin)
		if err != nil {
			return nil, err
		}
		resolvedCommandID = extracted
	}

	opts := StatusMonitorOpts{
		CommandID: resolvedCommandID,
		Interval:  time.Duration(interval) * time.Second,
	}

	return &opts, nil
}
