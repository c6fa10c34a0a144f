package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/time/rate"
)

func NewSSMClient(region string, profile string) (*ssm.Client, error) {
	cfg, err := loadConfig(region, profile)
	if err != nil {
		return nil, err
	}

	return ssm.NewFromConfig(cfg), nil
}

type RateLimitedSSMClient struct {
	*ssm.Client
	limiter *rate.Limiter
}

func NewRateLimitedSSMClient(region string, profile string, requestsPerSecond float64, burstSize int) (*RateLimitedSSMClient, error) {
	cfg, err := loadConfig(region, profile)
	if err != nil {
		return nil, err
	}

	ssmClient := ssm.NewFromConfig(cfg)
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize)

	return &RateLimitedSSMClient{
		Client:  ssmClient,
		limiter: limiter,
	}, nil
}

func (c *RateLimitedSSMClient) Wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// Fleets with high instance counts make repeated polling likely to hit 429 rate limit
// errors. Therefore, we implement an additional layer of retries outside the AWS SDK's
// standard retryer. If we hit a 429 or quota error, we wait for a new token from our
// rate limiter and try again.
func (c *RateLimitedSSMClient) ListCommandInvocations(ctx context.Context, params *ssm.ListCommandInvocationsInput, optFns ...func(*ssm.Options)) (*ssm.ListCommandInvocationsOutput, error) {
	const maxExtraRetries = 5
	var lastErr error

	for i := 0; i <= maxExtraRetries; i++ {
		if err := c.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter cancelled: %w", err)
		}

		output, err := c.Client.ListCommandInvocations(ctx, params, optFns...)
		if err == nil {
			return output, nil
		}

		lastErr = err
		// Check for 429 (ThrottlingException) or retry quota exceeded
		errMsg := err.Error()
		if strings.Contains(errMsg, "ThrottlingException") ||
			strings.Contains(errMsg, "TooManyRequestsException") ||
			strings.Contains(errMsg, "retry quota exceeded") {

			// If we have retries left, loop again (which will wait on c.Wait(ctx))
			if i < maxExtraRetries {
				continue
			}
		} else {
			// Not a rate limit error, return immediately
			return nil, err
		}
	}

	return nil, lastErr
}

func loadConfig(region string, profile string) (aws.Config, error) {
	loadOpts := []func(*config.LoadOptions) error{
		// https://docs.aws.amazon.com/sdk-for-go/v2/developer-guide/configure-retries-timeouts.html
		config.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(opts *retry.StandardOptions) {
				opts.MaxAttempts = 3
				opts.MaxBackoff = 20 * time.Second
			})
		}),
	}

	if profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("❌ Failed to load AWS config: %v", err)
	}

	if region != "" {
		cfg.Region = region
	}

	return cfg, nil
}
