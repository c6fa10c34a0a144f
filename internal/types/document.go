package types

// DocumentContent is an SSM command document definition (schemaVersion 2.2).
type DocumentContent struct {
	SchemaVersion string                       `yaml:"schemaVersion"`
	Description   string                       `yaml:"description"`
	Parameters    map[string]DocumentParameter `yaml:"parameters,omitempty"`
	MainSteps     []DocumentStep               `yaml:"mainSteps"`
}

type DocumentParameter struct {
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
	Default     string `yaml:"default,omitempty"`
}

type DocumentStep struct {
	Action string         `yaml:"action"`
	Name   string         `yaml:"name"`
	Inputs map[string]any `yaml:"inputs"`
}
