package targets

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/fleetrun/fleetrun/internal/services/markdown"
)

// TargetListerEC2Client defines the EC2 client methods used by TargetLister
type TargetListerEC2Client interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

type TargetLister struct {
	ec2Client TargetListerEC2Client
	opts      TargetListerOpts
}

type TargetListerOpts struct {
	TagKey   string
	TagValue string
}

type matchedInstance struct {
	InstanceID string
	Name       string
	State      string
	Platform   string
	PrivateIP  string
}

func NewTargetLister(ec2Client TargetListerEC2Client, opts TargetListerOpts) *TargetLister {
	return &TargetLister{
		ec2Client: ec2Client,
		opts:      opts,
	}
}

func (tl *TargetLister) Run(ctx context.Context) error {
	instances, err := tl.matchInstances(ctx)
	if err != nil {
		return fmt.Errorf("failed to describe instances: %v", err)
	}

	if len(instances) == 0 {
		slog.Info("🔍 no running instances match the selector", "selector", fmt.Sprintf("tag:%s=%s", tl.opts.TagKey, tl.opts.TagValue))
		return nil
	}

	return tl.printInstances(instances)
}

func (tl *TargetLister) matchInstances(ctx context.Context) ([]matchedInstance, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("tag:" + tl.opts.TagKey),
				Values: []string{tl.opts.TagValue},
			},
			{
				Name:   aws.String("instance-state-name"),
				Values: []string{"running"},
			},
		},
	}

	instances := []matchedInstance{}

	for {
		output, err := tl.ec2Client.DescribeInstances(ctx, input)
		if err != nil {
			return nil, err
		}

		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				instances = append(instances, toMatchedInstance(instance))
			}
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return instances, nil
}

func toMatchedInstance(instance ec2types.Instance) matchedInstance {
	name := ""
	for _, tag := range instance.Tags {
		if aws.ToString(tag.Key) == "Name" {
			name = aws.ToString(tag.Value)
			break
		}
	}

	platform := string(instance.Platform)
	if platform == "" {
		platform = "linux"
	}

	state := ""
	if instance.State != nil {
		state = string(instance.State.Name)
	}

	return matchedInstance{
		InstanceID: aws.ToString(instance.InstanceId),
		Name:       name,
		State:      state,
		Platform:   platform,
		PrivateIP:  aws.ToString(instance.PrivateIpAddress),
	}
}

func (tl *TargetLister) printInstances(instances []matchedInstance) error {
	rows := make([][]string, len(instances))
	for i, instance := range instances {
		rows[i] = []string{instance.InstanceID, instance.Name, instance.State, instance.Platform, instance.PrivateIP}
	}

	md := markdown.New().
		AddHeading("Matched Targets", 2).
		AddParagraph(fmt.Sprintf("Selector `tag:%s=%s` matches %d running instance(s).", tl.opts.TagKey, tl.opts.TagValue, len(instances))).
		AddTable([]string{"Instance ID", "Name", "State", "Platform", "Private IP"}, rows)

	return md.Print()
}
