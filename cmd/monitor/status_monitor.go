package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/fleetrun/fleetrun/internal/services/markdown"
	"github.com/fleetrun/fleetrun/internal/types"
)

// StatusMonitorSSMClient defines the SSM client methods used by StatusMonitor
type StatusMonitorSSMClient interface {
	ListCommandInvocations(ctx context.Context, params *ssm.ListCommandInvocationsInput, optFns ...func(*ssm.Options)) (*ssm.ListCommandInvocationsOutput, error)
}

type StatusMonitor struct {
	ssmClient StatusMonitorSSMClient
	opts      StatusMonitorOpts
}

type StatusMonitorOpts struct {
	CommandID string
	Interval  time.Duration
}

func NewStatusMonitor(ssmClient StatusMonitorSSMClient, opts StatusMonitorOpts) *StatusMonitor {
	return &StatusMonitor{
		ssmClient: ssmClient,
		opts:      opts,
	}
}

func (sm *StatusMonitor) Run(ctx context.Context) error {
	slog.Info("👀 monitoring command", "command_id", sm.opts.CommandID, "interval", sm.opts.Interval)

	run := types.NewCommandRun(sm.opts.CommandID)

	for {
		summary, err := sm.collectSummary(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch command invocations: %v", err)
		}

		// SSM registers invocations asynchronously after SendCommand, so an empty
		// listing means the fleet has not materialized yet, not a settled run.
		if summary.Total() == 0 {
			slog.Info("⏳ no invocations registered yet", "command_id", sm.opts.CommandID)
		} else {
			if err := sm.printSummary(summary); err != nil {
				slog.Warn("failed to render status summary", "error", err)
			}

			if err := run.Observe(summary); err != nil {
				return fmt.Errorf("failed to advance command run state: %v", err)
			}

			if run.Settled() {
				if run.Failed() {
					return fmt.Errorf("%d of %d invocations did not succeed", summary.Failed+summary.TimedOut+summary.Cancelled, summary.Total())
				}

				slog.Info("✅ all invocations succeeded", "command_id", sm.opts.CommandID, "instances", summary.Total())
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sm.opts.Interval):
		}
	}
}

func (sm *StatusMonitor) collectSummary(ctx context.Context) (types.StatusSummary, error) {
	summary := types.StatusSummary{}

	input := &ssm.ListCommandInvocationsInput{
		CommandId: aws.String(sm.opts.CommandID),
		Details:   true,
	}

	for {
		output, err := sm.ssmClient.ListCommandInvocations(ctx, input)
		if err != nil {
			return types.StatusSummary{}, err
		}

		for _, invocation := range output.CommandInvocations {
			summary.Record(string(invocation.Status))
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return summary, nil
}

func (sm *StatusMonitor) printSummary(summary types.StatusSummary) error {
	md := markdown.New().
		AddHeading("Status Summary", 2).
		AddTable(
			[]string{"Status", "Count"},
			[][]string{
				{"Total Instances", strconv.Itoa(summary.Total())},
				{"Success", strconv.Itoa(summary.Success)},
				{"Failed", strconv.Itoa(summary.Failed)},
				{"In Progress", strconv.Itoa(summary.InProgress)},
				{"Pending", strconv.Itoa(summary.Pending)},
				{"Delayed", strconv.Itoa(summary.Delayed)},
				{"Cancelled", strconv.Itoa(summary.Cancelled)},
				{"Timed Out", strconv.Itoa(summary.TimedOut)},
				{"Cancelling", strconv.Itoa(summary.Cancelling)},
				{"Received", strconv.Itoa(summary.Received)},
				{"Other", strconv.Itoa(summary.Other)},
			},
		)

	return md.Print()
}
