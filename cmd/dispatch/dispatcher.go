package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/fleetrun/fleetrun/internal/types"
)

// Every matched target runs simultaneously, and a single failed target marks the whole
// invocation failed.
const (
	maxConcurrency = "100%"
	maxErrors      = "0"
)

// DispatcherSSMClient defines the SSM client methods used by Dispatcher
type DispatcherSSMClient interface {
	SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
}

type Dispatcher struct {
	ssmClient DispatcherSSMClient
	opts      DispatcherOpts
	stdout    io.Writer
}

type DispatcherOpts struct {
	Document          string
	TagKey            string
	TagValue          string
	Parameters        map[string][]string
	Comment           string
	OutputS3Bucket    string
	OutputS3KeyPrefix string
}

func NewDispatcher(ssmClient DispatcherSSMClient, opts DispatcherOpts) *Dispatcher {
	return &Dispatcher{
		ssmClient: ssmClient,
		opts:      opts,
		stdout:    os.Stdout,
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("🚀 dispatching command", "document", d.opts.Document, "target", fmt.Sprintf("tag:%s=%s", d.opts.TagKey, d.opts.TagValue))

	output, err := d.ssmClient.SendCommand(ctx, d.buildSendCommandInput())
	if err != nil {
		return fmt.Errorf("send command failed: %v", err)
	}

	ack, err := formatAck(output)
	if err != nil {
		return fmt.Errorf("failed to format submission acknowledgment: %v", err)
	}

	fmt.Fprintln(d.stdout, string(ack))

	if output.Command != nil {
		slog.Info("✅ command accepted", "command_id", aws.ToString(output.Command.CommandId))
	}

	return nil
}

func (d *Dispatcher) buildSendCommandInput() *ssm.SendCommandInput {
	input := &ssm.SendCommandInput{
		DocumentName: aws.String(d.opts.Document),
		Targets: []ssmtypes.Target{
			{
				Key:    aws.String("tag:" + d.opts.TagKey),
				Values: []string{d.opts.TagValue},
			},
		},
		Parameters:     d.opts.Parameters,
		MaxConcurrency: aws.String(maxConcurrency),
		MaxErrors:      aws.String(maxErrors),
	}

	if d.opts.Comment != "" {
		input.Comment = aws.String(d.opts.Comment)
	}
	if d.opts.OutputS3Bucket != "" {
		input.OutputS3BucketName = aws.String(d.opts.OutputS3Bucket)
	}
	if d.opts.OutputS3KeyPrefix != "" {
		input.OutputS3KeyPrefix = aws.String(d.opts.OutputS3KeyPrefix)
	}

	return input
}

// formatAck renders the acknowledgment in the shape the AWS CLI prints for
// send-command, which is what monitor expects on stdin.
func formatAck(output *ssm.SendCommandOutput) ([]byte, error) {
	ack := types.SubmissionAck{}

	if output.Command != nil {
		ack.Command = types.CommandInfo{
			CommandId:    aws.ToString(output.Command.CommandId),
			DocumentName: aws.ToString(output.Command.DocumentName),
			Status:       string(output.Command.Status),
		}
		if output.Command.RequestedDateTime != nil {
			ack.Command.RequestedDateTime = output.Command.RequestedDateTime.UTC().Format("2006-01-02T15:04:05.000Z07:00")
		}
	}

	return json.MarshalIndent(ack, "", "    ")
}
