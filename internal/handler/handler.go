package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/fleetrun/fleetrun/internal/types"
)

// SSM truncates invocation output at this length and stores the full
// content in S3 when an output location was configured on the command.
const maxInlineOutputLength = 24000

const truncatedMarker = "--output truncated--"

type HandlerSSMClient interface {
	GetCommandInvocation(ctx context.Context, params *ssm.GetCommandInvocationInput, optFns ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error)
}

type HandlerS3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type HandlerSNSClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	ssmClient HandlerSSMClient
	s3Client  HandlerS3Client
	snsClient HandlerSNSClient
	topicArn  string
}

func NewHandler(ssmClient HandlerSSMClient, s3Client HandlerS3Client, snsClient HandlerSNSClient, topicArn string) *Handler {
	return &Handler{
		ssmClient: ssmClient,
		s3Client:  s3Client,
		snsClient: snsClient,
		topicArn:  topicArn,
	}
}

type notificationMessage struct {
	CommandID      string `json:"commandId"`
	InstanceID     string `json:"instanceId"`
	DocumentName   string `json:"documentName"`
	Status         string `json:"status"`
	ResponseCode   int32  `json:"responseCode"`
	StandardOutput string `json:"standardOutput"`
	StandardError  string `json:"standardError"`
}

func (h *Handler) HandleEvent(ctx context.Context, event events.CloudWatchEvent) error {
	var detail types.CommandStatusChangeDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		return fmt.Errorf("❌ failed to parse event detail: %v", err)
	}

	slog.Info("📥 received status change", "command_id", detail.CommandID, "instance_id", detail.InstanceID, "status", detail.Status)

	if !detail.Terminal() {
		slog.Info("⏭️ ignoring non-terminal status", "status", detail.Status)
		return nil
	}

	if detail.InstanceID == "" {
		slog.Info("⏭️ ignoring command-level notification, awaiting per-invocation events", "command_id", detail.CommandID)
		return nil
	}

	invocation, err := h.ssmClient.GetCommandInvocation(ctx, &ssm.GetCommandInvocationInput{
		CommandId:  aws.String(detail.CommandID),
		InstanceId: aws.String(detail.InstanceID),
	})
	if err != nil {
		return fmt.Errorf("❌ failed to get command invocation: %v", err)
	}

	stdout, err := h.resolveOutput(ctx, aws.ToString(invocation.StandardOutputContent), aws.ToString(invocation.StandardOutputUrl))
	if err != nil {
		return fmt.Errorf("❌ failed to resolve stdout: %v", err)
	}

	stderr, err := h.resolveOutput(ctx, aws.ToString(invocation.StandardErrorContent), aws.ToString(invocation.StandardErrorUrl))
	if err != nil {
		return fmt.Errorf("❌ failed to resolve stderr: %v", err)
	}

	message := notificationMessage{
		CommandID:      detail.CommandID,
		InstanceID:     detail.InstanceID,
		DocumentName:   aws.ToString(invocation.DocumentName),
		Status:         string(invocation.Status),
		ResponseCode:   invocation.ResponseCode,
		StandardOutput: stdout,
		StandardError:  stderr,
	}

	if h.topicArn == "" {
		slog.Warn("⚠️ TOPIC_ARN not set, skipping notification", "command_id", detail.CommandID)
		return nil
	}

	return h.publish(ctx, message)
}

func (h *Handler) publish(ctx context.Context, message notificationMessage) error {
	body, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		return fmt.Errorf("❌ failed to marshal notification: %v", err)
	}

	subject := fmt.Sprintf("Command %s on %s", message.Status, message.InstanceID)

	_, err = h.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("❌ failed to publish notification: %v", err)
	}

	slog.Info("📤 published notification", "command_id", message.CommandID, "instance_id", message.InstanceID, "status", message.Status)

	return nil
}

// resolveOutput returns the inline invocation output, or the full object from S3
// when the inline content was truncated and an output location is available.
func (h *Handler) resolveOutput(ctx context.Context, content string, outputURL string) (string, error) {
	if !isTruncated(content) || outputURL == "" {
		return content, nil
	}

	bucket, key, err := parseS3URL(outputURL)
	if err != nil {
		return "", err
	}

	object, err := h.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get s3://%s/%s: %v", bucket, key, err)
	}
	defer object.Body.Close()

	body, err := io.ReadAll(object.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read s3://%s/%s: %v", bucket, key, err)
	}

	return string(body), nil
}

func isTruncated(content string) bool {
	return len(content) >= maxInlineOutputLength || strings.Contains(content, truncatedMarker)
}

// parseS3URL extracts bucket and key from the console-style URLs SSM returns,
// handling both path-style and virtual-hosted-style addressing.
func parseS3URL(rawURL string) (string, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse output url %q: %v", rawURL, err)
	}

	path := strings.TrimPrefix(parsed.Path, "/")

	if strings.HasPrefix(parsed.Host, "s3.") || strings.HasPrefix(parsed.Host, "s3-") {
		bucket, key, found := strings.Cut(path, "/")
		if !found {
			return "", "", fmt.Errorf("output url %q has no object key", rawURL)
		}
		return bucket, key, nil
	}

	bucket, _, found := strings.Cut(parsed.Host, ".")
	if !found || path == "" {
		return "", "", fmt.Errorf("output url %q is not an S3 object url", rawURL)
	}

	return bucket, path, nil
}
