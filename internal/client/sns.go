package client

import (
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

func NewSNSClient(region string, profile string) (*sns.Client, error) {
	cfg, err := loadConfig(region, profile)
	if err != nil {
		return nil, err
	}

	return sns.NewFromConfig(cfg), nil
}
