package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
)

//go:embed prompts.toml
var promptsTOML string

// Catalogue is the decoded prompt file.
type Catalogue struct {
	FixedImage        string            `toml:"fixed_image"`
	LabImage          string            `toml:"lab_image"`
	PrescriptionImage string            `toml:"prescription_image"`
	AdviceFallback    string            `toml:"advice_fallback"`
	System            SystemPrompts     `toml:"system"`
	Contexts          map[string]string `toml:"contexts"`
	Cardiology        map[string]string `toml:"cardiology"`
	Neurology         map[string]string `toml:"neurology"`
	Templates         map[string]string `toml:"templates"`

	parsed map[string]*template.Template
}

type SystemPrompts struct {
	Lab          string `toml:"lab"`
	Prescription string `toml:"prescription"`
	Imaging      string `toml:"imaging"`
	Advice       string `toml:"advice"`
	Generate     string `toml:"generate"`
}

// Template names every catalogue must define.
const (
	TmplLabText           = "lab_text"
	TmplPrescriptionText  = "prescription_text"
	TmplImagingText       = "imaging_text"
	TmplAdvice            = "advice"
	TmplGenerate          = "generate"
	TmplVoiceTranscript   = "voice_transcript"
	TmplVoicePrescription = "voice_prescription"
)

var requiredTemplates = []string{
	TmplLabText, TmplPrescriptionText, TmplImagingText, TmplAdvice,
	TmplGenerate, TmplVoiceTranscript, TmplVoicePrescription,
}

var templateFuncs = template.FuncMap{"join": strings.Join}

// LoadCatalogue parses the embedded prompt file.
func LoadCatalogue() (*Catalogue, error) {
	return ParseCatalogue(promptsTOML)
}

func ParseCatalogue(src string) (*Catalogue, error) {
	var c Catalogue
	if _, err := toml.Decode(src, &c); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	if strings.TrimSpace(c.FixedImage) == "" {
		return nil, fmt.Errorf("prompts: fixed_image is required")
	}

	c.parsed = make(map[string]*template.Template, len(c.Templates))
	for _, name := range requiredTemplates {
		src, ok := c.Templates[name]
		if !ok {
			return nil, fmt.Errorf("prompts: template %q is missing", name)
		}
		t, err := template.New(name).Funcs(templateFuncs).Option("missingkey=zero").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("prompts: template %q: %w", name, err)
		}
		c.parsed[name] = t
	}
	return &c, nil
}

// MustLoadCatalogue panics if the embedded prompt file is broken.
func MustLoadCatalogue() *Catalogue {
	c, err := LoadCatalogue()
	if err != nil {
		panic(err)
	}
	return c
}

// Render executes the named template with data.
func (c *Catalogue) Render(name string, data any) (string, error) {
	t, ok := c.parsed[name]
	if !ok {
		return "", fmt.Errorf("prompts: unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompts: render %q: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// DepartmentContext returns the common-conditions blurb for a department,
// or "" for unknown departments.
func (c *Catalogue) DepartmentContext(department string) string {
	return c.Contexts[department]
}

// Departments lists the departments that have a context entry.
func (c *Catalogue) Departments() []string {
	out := make([]string, 0, len(c.Contexts))
	for d := range c.Contexts {
		out = append(out, d)
	}
	return out
}

// ImagingPrompt picks the prompt for an uploaded scan. Cardiology and
// Neurology use the specialised prompt for the selected study type; an
// unknown or empty type, or any other department, gets the fixed prompt.
func (c *Catalogue) ImagingPrompt(department, cardiologyType, neurologyType string) string {
	switch department {
	case "Cardiology":
		if p, ok := c.Cardiology[cardiologyType]; ok && cardiologyType != "" {
			return p
		}
	case "Neurology":
		if p, ok := c.Neurology[neurologyType]; ok && neurologyType != "" {
			return p
		}
	}
	return c.FixedImage
}
