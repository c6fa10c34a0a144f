package client

import (
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

func NewEC2Client(region string, profile string) (*ec2.Client, error) {
	cfg, err := loadConfig(region, profile)
	if err != nil {
		return nil, err
	}

	ec2Client := ec2.NewFromConfig(cfg)

	return ec2Client, nil
}
