package dispatch

import (
	"fmt"

	"github.com/fleetrun/fleetrun/internal/client"
	"github.com/fleetrun/fleetrun/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	document          string
	tagKey            string
	tagValue          string
	region            string
	profile           string
	parameters        string
	comment           string
	outputS3Bucket    string
	outputS3KeyPrefix string
)

func NewDispatchCmd() *cobra.Command {
	dispatchCmd := &cobra.Command{
		Use:           "dispatch",
		Short:         "Dispatch an SSM document to all instances matching a tag",
		Long:          "Sends a single SSM Run Command invocation against every instance matching the tag selector, running on all matched targets simultaneously with zero tolerated errors. The submission acknowledgment is printed as JSON so it can be piped into `fleetrun monitor`.",
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PreRunE:       preRunDispatch,
		RunE:          runDispatch,
	}

	groups := map[*pflag.FlagSet]string{}

	requiredFlags := pflag.NewFlagSet("required", pflag.ExitOnError)
	requiredFlags.SortFlags = false
	requiredFlags.StringVarP(&document, "document", "d", "", "The SSM document name or ARN to run")
	requiredFlags.StringVarP(&tagKey, "tag-key", "k", "", "The tag key selecting target instances")
	requiredFlags.StringVarP(&tagValue, "tag-value", "v", "", "The tag value selecting target instances")
	requiredFlags.StringVarP(&region, "region", "r", "", "The AWS region to dispatch in")
	requiredFlags.StringVarP(&profile, "profile", "p", "", "The AWS credential profile to use")
	dispatchCmd.Flags().AddFlagSet(requiredFlags)
	groups[requiredFlags] = "Required Flags"

	optionalFlags := pflag.NewFlagSet("optional", pflag.ExitOnError)
	optionalFlags.SortFlags = false
	optionalFlags.StringVar(&parameters, "parameters", "{}", "JSON object of named parameter lists passed to the document, e.g. '{\"commands\":[\"uptime\"]}'")
	optionalFlags.StringVar(&comment, "comment", "", "A free-text comment attached to the invocation")
	optionalFlags.StringVar(&outputS3Bucket, "output-s3-bucket", "", "S3 bucket to receive full command output")
	optionalFlags.StringVar(&outputS3KeyPrefix, "output-s3-key-prefix", "", "S3 key prefix for command output objects")
	dispatchCmd.Flags().AddFlagSet(optionalFlags)
	groups[optionalFlags] = "Optional Flags"

	dispatchCmd.SetUsageFunc(func(c *cobra.Command) error {
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

	dispatchCmd.MarkFlagRequired("document")
	dispatchCmd.MarkFlagRequired("tag-key")
	dispatchCmd.MarkFlagRequired("tag-value")
	dispatchCmd.MarkFlagRequired("region")
	dispatchCmd.MarkFlagRequired("profile")

	return dispatchCmd
}

func preRunDispatch(cmd *cobra.Command, args []string) error {
	if err := utils.BindEnvToFlags(cmd); err != nil {
		return err
	}

	return nil
}

func runDispatch(cmd *cobra.Command, args []string) error {
	opts, err := parseDispatchOpts()
	if err != nil {
		return fmt.Errorf("❌ failed to parse dispatch opts: %v", err)
	}

	ssmClient, err := client.NewSSMClient(region, profile)
	if err != nil {
		return fmt.Errorf("❌ failed to create SSM client: %v", err)
	}

	dispatcher := NewDispatcher(ssmClient, *opts)
	if err := dispatcher.Run(cmd.Context()); err != nil {
		return fmt.Errorf("❌ failed to dispatch command: %v", err)
	}

	return nil
}

func parseDispatchOpts() (*DispatcherOpts, error) {
	decodedParameters, err := utils.DecodeParameters(parameters)
	if err != nil {
		return nil, fmt.Errorf("--parameters: %v", err)
	}

	opts := DispatcherOpts{
		Document:          document,
		TagKey:            tagKey,
		TagValue:          tagValue,
		Parameters:        decodedParameters,
		Comment:           comment,
		OutputS3Bucket:    outputS3Bucket,
		OutputS3KeyPrefix: outputS3KeyPrefix,
	}

	return &opts, nil
}
