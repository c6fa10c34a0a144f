package client

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func NewS3Client(region string, profile string) (*s3.Client, error) {
	cfg, err := loadConfig(region, profile)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg), nil
}
