package types

// TerraformFiles holds the generated Terraform file contents keyed by purpose.
type TerraformFiles struct {
	MainTf      string
	VariablesTf string
	OutputsTf   string
}

// NotificationInfraRequest carries the inputs for the notification infra scaffold.
type NotificationInfraRequest struct {
	Region       string
	DocumentName string
	TopicName    string
}
