package scaffold

import (
	"fmt"

	"github.com/fleetrun/fleetrun/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	region       string
	dir          string
	documentName string
	topicName    string
)

func NewScaffoldCmd() *cobra.Command {
	scaffoldCmd := &cobra.Command{
		Use:           "scaffold",
		Short:         "Generate the deployment scaffold for command notifications",
		Long:          "Generates the Terraform configuration, SSM document definition and placeholder files for the notification pipeline: EventBridge rule on Run Command status changes, the notification Lambda, and an SNS topic for fan-out.",
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PreRunE:       preRunScaffold,
		RunE:          runScaffold,
	}

	groups := map[*pflag.FlagSet]string{}

	requiredFlags := pflag.NewFlagSet("required", pflag.ExitOnError)
	requiredFlags.SortFlags = false
	requiredFlags.StringVarP(&region, "region", "r", "", "The AWS region the scaffold deploys into")
	scaffoldCmd.Flags().AddFlagSet(requiredFlags)
	groups[requiredFlags] = "Required Flags"

	optionalFlags := pflag.NewFlagSet("optional", pflag.ExitOnError)
	optionalFlags.SortFlags = false
	optionalFlags.StringVar(&dir, "dir", ".", "Directory to generate the scaffold into")
	optionalFlags.StringVar(&documentName, "document-name", "fleetrun-command", "Name of the SSM command document")
	optionalFlags.StringVar(&topicName, "topic-name", "fleetrun-notifications", "Name of the SNS notification topic")
	scaffoldCmd.Flags().AddFlagSet(optionalFlags)
	groups[optionalFlags] = "Optional Flags"

	scaffoldCmd.SetUsageFunc(func(c *cobra.Command) error {
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

	scaffoldCmd.MarkFlagRequired("region")

	return scaffoldCmd
}

func preRunScaffold(cmd *cobra.Command, args []string) error {
	if err := utils.BindEnvToFlags(cmd); err != nil {
		return err
	}

	return nil
}

func runScaffold(cmd *cobra.Command, args []string) error {
	opts, err := parseScaffoldOpts()
	if err != nil {
		return fmt.Errorf("❌ failed to parse scaffold opts: %v", err)
	}

	scaffoldGenerator := NewScaffoldGenerator(*opts)
	if err := scaffoldGenerator.Run(); err != nil {
		return fmt.Errorf("❌ failed to generate scaffold: %v", err)
	}

	return nil
}

func parseScaffoldOpts() (*ScaffoldGeneratorOpts, error) {
	opts := ScaffoldGeneratorOpts{
		Region:       region,
		Dir:          dir,
		DocumentName: documentName,
		TopicName:    topicName,
	}

	return &opts, nil
}
