package targets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockTargetListerEC2Client struct {
	DescribeInstancesFunc func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

func (m *MockTargetListerEC2Client) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return m.DescribeInstancesFunc(ctx, params, optFns...)
}

func runningInstance(id string, name string) ec2types.Instance {
	return ec2types.Instance{
		InstanceId:       aws.String(id),
		PrivateIpAddress: aws.String("10.0.0.12"),
		State:            &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
		Tags: []ec2types.Tag{
			{Key: aws.String("Env"), Value: aws.String("Test")},
			{Key: aws.String("Name"), Value: aws.String(name)},
		},
	}
}

func TestTargetLister_Run_FiltersByTagAndState(t *testing.T) {
	var captured *ec2.DescribeInstancesInput
	mockClient := &MockTargetListerEC2Client{
		DescribeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			captured = params
			return &ec2.DescribeInstancesOutput{
				Reservations: []ec2types.Reservation{
					{Instances: []ec2types.Instance{runningInstance("i-0123456789abcdef0", "web-1")}},
				},
			}, nil
		},
	}

	targetLister := NewTargetLister(mockClient, TargetListerOpts{TagKey: "Env", TagValue: "Test"})

	require.NoError(t, targetLister.Run(context.Background()))
	require.NotNil(t, captured)
	require.Len(t, captured.Filters, 2)
	assert.Equal(t, "tag:Env", aws.ToString(captured.Filters[0].Name))
	assert.Equal(t, []string{"Test"}, captured.Filters[0].Values)
	assert.Equal(t, "instance-state-name", aws.ToString(captured.Filters[1].Name))
	assert.Equal(t, []string{"running"}, captured.Filters[1].Values)
}

func TestTargetLister_Run_NoMatchesIsNotAnError(t *testing.T) {
	mockClient := &MockTargetListerEC2Client{
		DescribeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			return &ec2.DescribeInstancesOutput{}, nil
		},
	}

	targetLister := NewTargetLister(mockClient, TargetListerOpts{TagKey: "Env", TagValue: "Test"})

	require.NoError(t, targetLister.Run(context.Background()))
}

func TestTargetLister_Run_FollowsPagination(t *testing.T) {
	calls := 0
	mockClient := &MockTargetListerEC2Client{
		DescribeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			calls++
			if params.NextToken == nil {
				return &ec2.DescribeInstancesOutput{
					Reservations: []ec2types.Reservation{
						{Instances: []ec2types.Instance{runningInstance("i-0123456789abcdef0", "web-1")}},
					},
					NextToken: aws.String("page-2"),
				}, nil
			}
			return &ec2.DescribeInstancesOutput{
				Reservations: []ec2types.Reservation{
					{Instances: []ec2types.Instance{runningInstance("i-0123456789abcdef1", "web-2")}},
				},
			}, nil
		},
	}

	targetLister := NewTargetLister(mockClient, TargetListerOpts{TagKey: "Env", TagValue: "Test"})

	require.NoError(t, targetLister.Run(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestTargetLister_Run_PropagatesDescribeError(t *testing.T) {
	mockClient := &MockTargetListerEC2Client{
		DescribeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			return nil, errors.New("UnauthorizedOperation")
		},
	}

	targetLister := NewTargetLister(mockClient, TargetListerOpts{TagKey: "Env", TagValue: "Test"})

	err := targetLister.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to describe instances")
}

func TestToMatchedInstance(t *testing.T) {
	instance := runningInstance("i-0123456789abcdef0", "web-1")

	matched := toMatchedInstance(instance)

	assert.Equal(t, "i-0123456789abcdef0", matched.InstanceID)
	assert.Equal(t, "web-1", matched.Name)
	assert.Equal(t, "running", matched.State)
	assert.Equal(t, "linux", matched.Platform)
	assert.Equal(t, "10.0.0.12", matched.PrivateIP)
}
