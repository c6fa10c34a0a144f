package scaffold

import (
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fleetrun/fleetrun/internal/services/hcl"
	"github.com/fleetrun/fleetrun/internal/types"
	"github.com/goccy/go-yaml"
)

//go:embed assets
var assetsFS embed.FS

type ScaffoldGenerator struct {
	opts ScaffoldGeneratorOpts
}

type ScaffoldGeneratorOpts struct {
	Region       string
	Dir          string
	DocumentName string
	TopicName    string
}

func NewScaffoldGenerator(opts ScaffoldGeneratorOpts) *ScaffoldGenerator {
	return &ScaffoldGenerator{
		opts: opts,
	}
}

func (sg *ScaffoldGenerator) Run() error {
	if err := os.MkdirAll(sg.opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create scaffold directory: %w", err)
	}

	if err := sg.writeTerraformFiles(); err != nil {
		return fmt.Errorf("failed to write Terraform files: %w", err)
	}

	if err := sg.writeDocumentDefinition(); err != nil {
		return fmt.Errorf("failed to write document definition: %w", err)
	}

	if err := sg.writeParametersPlaceholder(); err != nil {
		return fmt.Errorf("failed to write parameters placeholder: %w", err)
	}

	if err := sg.writeArchitecturePlaceholder(); err != nil {
		return fmt.Errorf("failed to write architecture placeholder: %w", err)
	}

	if err := sg.copyREADMEFile(); err != nil {
		return fmt.Errorf("failed to copy README file: %w", err)
	}

	slog.Info("📝 Please use the readme to help you fill in your specific configuration values")
	slog.Info("🔧 Build cmd/handler into handler.zip before running terraform apply")

	return nil
}

func (sg *ScaffoldGenerator) writeTerraformFiles() error {
	hclService := hcl.NewNotificationInfraHCLService()
	files, err := hclService.GenerateNotificationInfraFiles(types.NotificationInfraRequest{
		Region:       sg.opts.Region,
		DocumentName: sg.opts.DocumentName,
		TopicName:    sg.opts.TopicName,
	})
	if err != nil {
		return err
	}

	for fileName, content := range map[string]string{
		"main.tf":      files.MainTf,
		"variables.tf": files.VariablesTf,
		"outputs.tf":   files.OutputsTf,
	} {
		filePath := filepath.Join(sg.opts.Dir, fileName)
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", fileName, err)
		}
	}

	return nil
}

func (sg *ScaffoldGenerator) writeDocumentDefinition() error {
	content, err := yaml.Marshal(hcl.DefaultDocumentContent(sg.opts.DocumentName))
	if err != nil {
		return fmt.Errorf("failed to marshal document content: %w", err)
	}

	documentPath := filepath.Join(sg.opts.Dir, "document.yaml")
	if err := os.WriteFile(documentPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write document.yaml: %w", err)
	}

	return nil
}

func (sg *ScaffoldGenerator) writeParametersPlaceholder() error {
	parametersPath := filepath.Join(sg.opts.Dir, "parameters.json")
	return os.WriteFile(parametersPath, []byte("{}"), 0644)
}

// writeArchitecturePlaceholder drops a 1x1 PNG to be replaced with a real diagram.
func (sg *ScaffoldGenerator) writeArchitecturePlaceholder() error {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)

	pngPath := filepath.Join(sg.opts.Dir, "architecture.png")
	file, err := os.Create(pngPath)
	if err != nil {
		return fmt.Errorf("failed to create architecture.png: %w", err)
	}
	defer file.Close()

	return png.Encode(file, img)
}

func (sg *ScaffoldGenerator) copyREADMEFile() error {
	readmeContent, err := assetsFS.ReadFile("assets/README.md")
	if err != nil {
		return fmt.Errorf("failed to read README file: %w", err)
	}

	readmePath := filepath.Join(sg.opts.Dir, "README.md")
	if err := os.WriteFile(readmePath, readmeContent, 0644); err != nil {
		return fmt.Errorf("failed to write README file: %w", err)
	}

	return nil
}
