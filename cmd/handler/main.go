package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/fleetrun/fleetrun/internal/client"
	"github.com/fleetrun/fleetrun/internal/handler"
)

func main() {
	region := os.Getenv("AWS_REGION")

	ssmClient, err := client.NewSSMClient(region, "")
	if err != nil {
		slog.Error("failed to create ssm client", "error", err)
		os.Exit(1)
	}

	s3Client, err := client.NewS3Client(region, "")
	if err != nil {
		slog.Error("failed to create s3 client", "error", err)
		os.Exit(1)
	}

	snsClient, err := client.NewSNSClient(region, "")
	if err != nil {
		slog.Error("failed to create sns client", "error", err)
		os.Exit(1)
	}

	h := handler.NewHandler(ssmClient, s3Client, snsClient, os.Getenv("TOPIC_ARN"))

	lambda.Start(h.HandleEvent)
}
