package targets

import (
	"fmt"

	"github.com/fleetrun/fleetrun/internal/client"
	"github.com/fleetrun/fleetrun/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	tagKey   string
	tagValue string
	region   string
	profile  string
)

func NewTargetsCmd() *cobra.Command {
	targetsCmd := &cobra.Command{
		Use:           "targets",
		Short:         "Preview which running instances a tag selector matches",
		Long:          "Lists the running EC2 instances a tag selector would dispatch to, so a selector can be checked before `fleetrun dispatch` fans a command out to it.",
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PreRunE:       preRunTargets,
		RunE:          runTargets,
	}

	groups := map[*pflag.FlagSet]string{}

	requiredFlags := pflag.NewFlagSet("required", pflag.ExitOnError)
	requiredFlags.SortFlags = false
	requiredFlags.StringVarP(&tagKey, "tag-key", "k", "", "The tag key selecting target instances")
	requiredFlags.StringVarP(&tagValue, "tag-value", "v", "", "The tag value selecting target instances")
	requiredFlags.StringVarP(&region, "region", "r", "", "The AWS region to query")
	targetsCmd.Flags().AddFlagSet(requiredFlags)
	groups[requiredFlags] = "Required Flags"

	optionalFlags := pflag.NewFlagSet("optional", pflag.ExitOnError)
	optionalFlags.SortFlags = false
	optionalFlags.StringVarP(&profile, "profile", "p", "", "The AWS credential profile to use (default: default)")
	targetsCmd.Flags().AddFlagSet(optionalFlags)
	groups[optionalFlags] = "Optional Flags"

	targetsCmd.SetUsageFunc(func(c *cobra.Command) error {
		fmt.Printf("%s\n\n", c.Short)

		flagOrder := []*pflag.FlagSet{requiredFlags, optionalFlags}
		groupNames := []string{"Required Flags", "Optional Flags"}

		for i, fs := range flagOrder {
			usage := fs.FlagUsages()
			if usage != "" {
				fmt.Printf("%s:\n%s\n", groupNames[i], usage)
			}
		}

		fmt.Println("All flags can be provided via environment variables (uppercase, with underscores).")

		return nil
	})

	targetsCmd.MarkFlagRequired("tag-key")
	targetsCmd.MarkFlagRequired("tag-value")
	targetsCmd.MarkFlagRequired("region")

	return targetsCmd
}

func preRunTargets(cmd *cobra.Command, args []string) error {
	if err := utils.BindEnvToFlags(cmd); err != nil {
		return err
	}

	return nil
}

func runTargets(cmd *cobra.Command, args []string) error {
	opts, err := parseTargetsOpts()
	if err != nil {
		return fmt.Errorf("❌ failed to parse targets opts: %v", err)
	}

	ec2Client, err := client.NewEC2Client(region, profile)
	if err != nil {
		return fmt.Errorf("❌ failed to create EC2 client: %v", err)
	}

	targetLister := NewTargetLister(ec2Client, *opts)
	if err := targetLister.Run(cmd.Context()); err != nil {
		return fmt.Errorf("❌ failed to list targets: %v", err)
	}

	return nil
}

func parseTargetsOpts() (*TargetListerOpts, error) {
	opts := TargetListerOpts{
		TagKey:   tagKey,
		TagValue: tagValue,
	}

	return &opts, nil
}
