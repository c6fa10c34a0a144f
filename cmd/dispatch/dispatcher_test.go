package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/fleetrun/fleetrun/internal/types"
	"github.com/fleetrun/fleetrun/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockDispatcherSSMClient struct {
	SendCommandFunc func(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
}

func (m *MockDispatcherSSMClient) SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
	return m.SendCommandFunc(ctx, params, optFns...)
}

func acceptedCommand() *ssm.SendCommandOutput {
	requested := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	return &ssm.SendCommandOutput{
		Command: &ssmtypes.Command{
			CommandId:         aws.String("11111111-2222-3333-4444-555555555555"),
			DocumentName:      aws.String("MyDoc"),
			Status:            ssmtypes.CommandStatusPending,
			RequestedDateTime: &requested,
		},
	}
}

func TestDispatcher_Run_BuildsExpectedInput(t *testing.T) {
	var captured *ssm.SendCommandInput
	mockClient := &MockDispatcherSSMClient{
		SendCommandFunc: func(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
			captured = params
			return acceptedCommand(), nil
		},
	}

	dispatcher := NewDispatcher(mockClient, DispatcherOpts{
		Document:   "MyDoc",
		TagKey:     "Env",
		TagValue:   "Test",
		Parameters: map[string][]string{},
	})
	dispatcher.stdout = &bytes.Buffer{}

	require.NoError(t, dispatcher.Run(context.Background()))
	require.NotNil(t, captured)

	assert.Equal(t, "MyDoc", aws.ToString(captured.DocumentName))
	require.Len(t, captured.Targets, 1)
	assert.Equal(t, "tag:Env", aws.ToString(captured.Targets[0].Key))
	assert.Equal(t, []string{"Test"}, captured.Targets[0].Values)
	assert.Equal(t, "100%", aws.ToString(captured.MaxConcurrency))
	assert.Equal(t, "0", aws.ToString(captured.MaxErrors))
	assert.Empty(t, captured.Parameters)
	assert.Nil(t, captured.Comment)
	assert.Nil(t, captured.OutputS3BucketName)
	assert.Nil(t, captured.OutputS3KeyPrefix)
}

func TestDispatcher_Run_PassesParametersThrough(t *testing.T) {
	decoded, err := utils.DecodeParameters(`{"a":["1"]}`)
	require.NoError(t, err)

	var captured *ssm.SendCommandInput
	mockClient := &MockDispatcherSSMClient{
		SendCommandFunc: func(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
			captured = params
			return acceptedCommand(), nil
		},
	}

	dispatcher := NewDispatcher(mockClient, DispatcherOpts{
		Document:   "MyDoc",
		TagKey:     "Env",
		TagValue:   "Test",
		Parameters: decoded,
	})
	dispatcher.stdout = &bytes.Buffer{}

	require.NoError(t, dispatcher.Run(context.Background()))
	assert.Equal(t, map[string][]string{"a": {"1"}}, captured.Parameters)
}

func TestDispatcher_Run_OptionalFields(t *testing.T) {
	var captured *ssm.SendCommandInput
	mockClient := &MockDispatcherSSMClient{
		SendCommandFunc: func(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
			captured = params
			return acceptedCommand(), nil
		},
	}

	dispatcher := NewDispatcher(mockClient, DispatcherOpts{
		Document:          "MyDoc",
		TagKey:            "Env",
		TagValue:          "Test",
		Parameters:        map[string][]string{},
		Comment:           "weekly patch run",
		OutputS3Bucket:    "fleet-output",
		OutputS3KeyPrefix: "runs/",
	})
	dispatcher.stdout = &bytes.Buffer{}

	require.NoError(t, dispatcher.Run(context.Background()))
	assert.Equal(t, "weekly patch run", aws.ToString(captured.Comment))
	assert.Equal(t, "fleet-output", aws.ToString(captured.OutputS3BucketName))
	assert.Equal(t, "runs/", aws.ToString(captured.OutputS3KeyPrefix))
}

func TestDispatcher_Run_PrintsPipeableAck(t *testing.T) {
	mockClient := &MockDispatcherSSMClient{
		SendCommandFunc: func(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
			return acceptedCommand(), nil
		},
	}

	stdout := &bytes.Buffer{}
	dispatcher := NewDispatcher(mockClient, DispatcherOpts{
		Document:   "MyDoc",
		TagKey:     "Env",
		TagValue:   "Test",
		Parameters: map[string][]string{},
	})
	dispatcher.stdout = stdout

	require.NoError(t, dispatcher.Run(context.Background()))

	// The printed acknowledgment must round-trip through monitor's stdin parsing.
	commandID, err := types.ExtractCommandID(bytes.NewReader(stdout.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", commandID)

	var ack types.SubmissionAck
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &ack))
	assert.Equal(t, "MyDoc", ack.Command.DocumentName)
	assert.Equal(t, "Pending", ack.Command.Status)
}

func TestDispatcher_Run_ToleratesAcknowledgmentWithoutCommand(t *testing.T) {
	mockClient := &MockDispatcherSSMClient{
		SendCommandFunc: func(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
			return &ssm.SendCommandOutput{}, nil
		},
	}

	stdout := &bytes.Buffer{}
	dispatcher := NewDispatcher(mockClient, DispatcherOpts{
		Document:   "MyDoc",
		TagKey:     "Env",
		TagValue:   "Test",
		Parameters: map[string][]string{},
	})
	dispatcher.stdout = stdout

	require.NoError(t, dispatcher.Run(context.Background()))

	var ack types.SubmissionAck
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &ack))
	assert.Empty(t, ack.Command.CommandId)
}

func TestDispatcher_Run_PropagatesSendCommandError(t *testing.T) {
	mockClient := &MockDispatcherSSMClient{
		SendCommandFunc: func(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
			return nil, errors.New("InvalidDocument: document MyDoc does not exist")
		},
	}

	dispatcher := NewDispatcher(mockClient, DispatcherOpts{
		Document:   "MyDoc",
		TagKey:     "Env",
		TagValue:   "Test",
		Parameters: map[string][]string{},
	})
	dispatcher.stdout = &bytes.Buffer{}

	err := dispatcher.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidDocument")
}

func TestNewDispatchCmd_RequiredFlags(t *testing.T) {
	required := []string{"--document", "d", "--tag-key", "Env", "--tag-value", "Test", "--region", "us-east-1", "--profile", "default"}

	for i := 0; i < len(required); i += 2 {
		t.Run("missing "+required[i], func(t *testing.T) {
			args := []string{}
			for j := 0; j < len(required); j += 2 {
				if j == i {
					continue
				}
				args = append(args, required[j], required[j+1])
			}

			cmd := NewDispatchCmd()
			cmd.SetArgs(args)
			cmd.SilenceUsage = true

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "required flag")
		})
	}
}

func TestNewDispatchCmd_UnknownFlag(t *testing.T) {
	cmd := NewDispatchCmd()
	cmd.SetArgs([]string{"--document", "d", "--tag-key", "Env", "--tag-value", "Test", "--region", "us-east-1", "--profile", "default", "--bogus"})
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}
