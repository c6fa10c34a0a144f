package hcl

import (
	"fmt"

	"github.com/fleetrun/fleetrun/internal/types"
	"github.com/fleetrun/fleetrun/internal/utils"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

const handlerAssumeRolePolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {
        "Service": "lambda.amazonaws.com"
      },
      "Action": "sts:AssumeRole"
    }
  ]
}`

const handlerRolePolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Action": [
        "ssm:GetCommandInvocation",
        "sns:Publish",
        "s3:GetObject",
        "logs:CreateLogGroup",
        "logs:CreateLogStream",
        "logs:PutLogEvents"
      ],
      "Resource": "*"
    }
  ]
}`

const commandStatusEventPattern = `{
  "source": ["aws.ssm"],
  "detail-type": [
    "EC2 Command Status-change Notification",
    "EC2 Command Invocation Status-change Notification"
  ]
}`

// NotificationInfraHCLService generates the Terraform scaffold that wires SSM Run
// Command status-change events through EventBridge into the notification handler.
type NotificationInfraHCLService struct {
}

func NewNotificationInfraHCLService() *NotificationInfraHCLService {
	return &NotificationInfraHCLService{}
}

func (s *NotificationInfraHCLService) GenerateNotificationInfraFiles(request types.NotificationInfraRequest) (types.TerraformFiles, error) {
	return types.TerraformFiles{
		MainTf:      s.generateMainTf(),
		VariablesTf: s.generateVariablesTf(request),
		OutputsTf:   s.generateOutputsTf(),
	}, nil
}

func (s *NotificationInfraHCLService) generateMainTf() string {
	f := hclwrite.NewEmptyFile()
	rootBody := f.Body()

	// Terraform settings
	terraformBlock := rootBody.AppendNewBlock("terraform", nil)
	requiredProvidersBlock := terraformBlock.Body().AppendNewBlock("required_providers", nil)
	requiredProvidersBlock.Body().SetAttributeValue("aws", cty.ObjectVal(map[string]cty.Value{
		"source":  cty.StringVal("hashicorp/aws"),
		"version": cty.StringVal(">= 5.0"),
	}))
	rootBody.AppendNewline()

	// Provider
	providerBlock := rootBody.AppendNewBlock("provider", []string{"aws"})
	providerBlock.Body().SetAttributeRaw("region", utils.TokensForVarReference("aws_region"))
	rootBody.AppendNewline()

	// SSM command document, content kept alongside the scaffold as document.yaml
	documentBlock := rootBody.AppendNewBlock("resource", []string{"aws_ssm_document", "command"})
	documentBody := documentBlock.Body()
	documentBody.SetAttributeRaw("name", utils.TokensForVarReference("document_name"))
	documentBody.SetAttributeValue("document_type", cty.StringVal("Command"))
	documentBody.SetAttributeValue("document_format", cty.StringVal("YAML"))
	documentBody.SetAttributeRaw("content", utils.TokensForFunctionCall("file", utils.TokensForStringTemplate("${path.module}/document.yaml")))
	rootBody.AppendNewline()

	// SNS topic for fan-out
	topicBlock := rootBody.AppendNewBlock("resource", []string{"aws_sns_topic", "notifications"})
	topicBlock.Body().SetAttributeRaw("name", utils.TokensForVarReference("topic_name"))
	rootBody.AppendNewline()

	// Handler execution role
	roleBlock := rootBody.AppendNewBlock("resource", []string{"aws_iam_role", "handler"})
	roleBody := roleBlock.Body()
	roleBody.SetAttributeRaw("name", utils.TokensForStringTemplate("${var.document_name}-handler"))
	roleBody.SetAttributeRaw("assume_role_policy", utils.TokensForHeredoc(handlerAssumeRolePolicy))
	rootBody.AppendNewline()

	rolePolicyBlock := rootBody.AppendNewBlock("resource", []string{"aws_iam_role_policy", "handler"})
	rolePolicyBody := rolePolicyBlock.Body()
	rolePolicyBody.SetAttributeRaw("name", utils.TokensForStringTemplate("${var.document_name}-handler"))
	rolePolicyBody.SetAttributeRaw("role", utils.TokensForResourceReference("aws_iam_role.handler.id"))
	rolePolicyBody.SetAttributeRaw("policy", utils.TokensForHeredoc(handlerRolePolicy))
	rootBody.AppendNewline()

	// Notification handler, built from cmd/handler and zipped as handler.zip
	lambdaBlock := rootBody.AppendNewBlock("resource", []string{"aws_lambda_function", "notify"})
	lambdaBody := lambdaBlock.Body()
	lambdaBody.SetAttributeRaw("function_name", utils.TokensForStringTemplate("${var.document_name}-notify"))
	lambdaBody.SetAttributeRaw("role", utils.TokensForResourceReference("aws_iam_role.handler.arn"))
	lambdaBody.SetAttributeValue("handler", cty.StringVal("bootstrap"))
	lambdaBody.SetAttributeValue("runtime", cty.StringVal("provided.al2023"))
	lambdaBody.SetAttributeValue("filename", cty.StringVal("handler.zip"))
	environmentBlock := lambdaBody.AppendNewBlock("environment", nil)
	environmentBlock.Body().SetAttributeRaw("variables", utils.TokensForMap(map[string]hclwrite.Tokens{
		"TOPIC_ARN": utils.TokensForResourceReference("aws_sns_topic.notifications.arn"),
	}))
	rootBody.AppendNewline()

	// EventBridge rule on Run Command status changes
	ruleBlock := rootBody.AppendNewBlock("resource", []string{"aws_cloudwatch_event_rule", "command_status"})
	ruleBody := ruleBlock.Body()
	ruleBody.SetAttributeRaw("name", utils.TokensForStringTemplate("${var.document_name}-status"))
	ruleBody.SetAttributeRaw("event_pattern", utils.TokensForHeredoc(commandStatusEventPattern))
	rootBody.AppendNewline()

	targetBlock := rootBody.AppendNewBlock("resource", []string{"aws_cloudwatch_event_target", "notify"})
	targetBody := targetBlock.Body()
	targetBody.SetAttributeRaw("rule", utils.TokensForResourceReference("aws_cloudwatch_event_rule.command_status.name"))
	targetBody.SetAttributeRaw("arn", utils.TokensForResourceReference("aws_lambda_function.notify.arn"))
	rootBody.AppendNewline()

	permissionBlock := rootBody.AppendNewBlock("resource", []string{"aws_lambda_permission", "events"})
	permissionBody := permissionBlock.Body()
	permissionBody.SetAttributeValue("statement_id", cty.StringVal("AllowExecutionFromEventBridge"))
	permissionBody.SetAttributeValue("action", cty.StringVal("lambda:InvokeFunction"))
	permissionBody.SetAttributeRaw("function_name", utils.TokensForResourceReference("aws_lambda_function.notify.function_name"))
	permissionBody.SetAttributeValue("principal", cty.StringVal("events.amazonaws.com"))
	permissionBody.SetAttributeRaw("source_arn", utils.TokensForResourceReference("aws_cloudwatch_event_rule.command_status.arn"))

	return string(f.Bytes())
}

func (s *NotificationInfraHCLService) generateVariablesTf(request types.NotificationInfraRequest) string {
	f := hclwrite.NewEmptyFile()
	rootBody := f.Body()

	variables := []struct {
		name        string
		description string
		defaultVal  string
	}{
		{"aws_region", "The AWS region to deploy into", request.Region},
		{"document_name", "Name of the SSM command document", request.DocumentName},
		{"topic_name", "Name of the SNS notification topic", request.TopicName},
	}

	for i, variable := range variables {
		variableBlock := rootBody.AppendNewBlock("variable", []string{variable.name})
		variableBody := variableBlock.Body()
		variableBody.SetAttributeValue("description", cty.StringVal(variable.description))
		variableBody.SetAttributeRaw("type", utils.TokensForResourceReference("string"))
		variableBody.SetAttributeValue("default", cty.StringVal(variable.defaultVal))
		if i < len(variables)-1 {
			rootBody.AppendNewline()
		}
	}

	return string(f.Bytes())
}

func (s *NotificationInfraHCLService) generateOutputsTf() string {
	f := hclwrite.NewEmptyFile()
	rootBody := f.Body()

	outputs := []struct {
		name string
		ref  string
	}{
		{"document_name", "aws_ssm_document.command.name"},
		{"topic_arn", "aws_sns_topic.notifications.arn"},
		{"handler_function_name", "aws_lambda_function.notify.function_name"},
	}

	for i, output := range outputs {
		outputBlock := rootBody.AppendNewBlock("output", []string{utils.FormatHclResourceName(output.name)})
		outputBlock.Body().SetAttributeRaw("value", utils.TokensForResourceReference(output.ref))
		if i < len(outputs)-1 {
			rootBody.AppendNewline()
		}
	}

	return string(f.Bytes())
}

// DefaultDocumentContent returns the command document the scaffold registers, a
// single runShellScript step parameterized on the command list.
func DefaultDocumentContent(documentName string) types.DocumentContent {
	return types.DocumentContent{
		SchemaVersion: "2.2",
		Description:   fmt.Sprintf("Run a shell command on every instance targeted by %s", documentName),
		Parameters: map[string]types.DocumentParameter{
			"commands": {
				Type:        "String",
				Description: "The shell command to run",
				Default:     "uptime",
			},
		},
		MainSteps: []types.DocumentStep{
			{
				Action: "aws:runShellScript",
				Name:   "runShellCommand",
				Inputs: map[string]any{
					"runCommand": []string{"{{ commands }}"},
				},
			},
		},
	}
}
