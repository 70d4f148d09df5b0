// Package workflows is the server-side catalog of runnable workflows: the
// named input slots each one declares, and which backend executes it. The
// form layer renders from this catalog; handlers use it to parse uploads.
package workflows

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Backend identifiers used to route a workflow to its adapter.
const (
	BackendComfyDeploy = "comfydeploy"
	BackendRunPod      = "runpod"
	BackendRunPodTalk  = "runpod-talk"
)

// Slot describes one named input the workflow expects.
type Slot struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"` // image | text | select | slider | voice-select
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
	Default  string   `json:"default,omitempty"`
	Min      float64  `json:"min,omitempty"`
	Max      float64  `json:"max,omitempty"`
	Step     float64  `json:"step,omitempty"`
}

// Workflow is one runnable configuration.
type Workflow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Backend     string `json:"backend"`
	Slots       []Slot `json:"inputs"`
}

var titleCaser = cases.Title(language.English)

// Label derives a human-readable label from a slot name.
func Label(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

var catalog = []Workflow{
	{
		ID:          "model-product-fusion",
		Name:        "AI Fashion Commerce",
		Description: "Image generation for high-volume fashion e-commerce production.",
		Backend:     BackendComfyDeploy,
		Slots: []Slot{
			{Name: "model_image", Label: Label("model_image"), Type: "image", Required: true},
			{Name: "product_image", Label: Label("product_image"), Type: "image", Required: true},
			{Name: "size_preset", Label: Label("size_preset"), Type: "select", Default: "2048x2048 (1:1)", Options: []string{
				"2048x2048 (1:1)", "2304x1728 (4:3)", "1728x2304 (3:4)", "2560x1440 (16:9)",
				"1440x2560 (9:16)", "2496x1664 (3:2)", "1664x2496 (2:3)", "3024x1296 (21:9)",
				"4096x4096 (1:1)", "Custom",
			}},
			// Pose and background presets are full prompt fragments fed to
			// the deployment verbatim.
			{Name: "pose_selection", Label: Label("pose_selection"), Type: "select",
				Default: "Plano medio, torso de frente, brazos cruzados, cuerpo ligeramente girado hacia la derecha, mirando a la cámara con expresión segura",
				Options: []string{
					"Plano medio, torso de frente, brazos cruzados, cuerpo ligeramente girado hacia la derecha, mirando a la cámara con expresión segura",
					"Plano entero, de pie, postura recta con una mano en la cadera, cabeza ligeramente inclinada, expresión relajada y confiada",
				}},
			{Name: "background_selection", Label: Label("background_selection"), Type: "select",
				Default: "Fondo blanco liso de estudio, suave sombra bajo la modelo, iluminación profesional de moda",
				Options: []string{
					"Fondo blanco liso de estudio, suave sombra bajo la modelo, iluminación profesional de moda",
					"Estudio interior cálido con tonos marrones suaves, muebles de estilo vintage ligeramente desenfocados en el fondo",
				}},
		},
	},
	{
		ID:          "vellum-upscale",
		Name:        "Vellum 2.0 Upscaler",
		Description: "LoRA-guided upscaling on GPU serverless.",
		Backend:     BackendRunPod,
		Slots: []Slot{
			{Name: "input_image", Label: Label("input_image"), Type: "image", Required: true},
			{Name: "strength_model", Label: Label("strength_model"), Type: "slider", Default: "0.5", Min: 0, Max: 1, Step: 0.05},
			{Name: "scale_by", Label: Label("scale_by"), Type: "select", Required: true, Options: []string{"2", "4", "8"}},
		},
	},
	{
		ID:          "ai-talk",
		Name:        "AI Talk",
		Description: "Turn a portrait and a script into a talking-head video.",
		Backend:     BackendRunPodTalk,
		Slots: []Slot{
			{Name: "input_image", Label: Label("input_image"), Type: "image", Required: true},
			{Name: "speech_text", Label: Label("speech_text"), Type: "text", Required: true},
			{Name: "voice_id", Label: Label("voice_id"), Type: "voice-select"},
		},
	},
}

// All returns the full catalog.
func All() []Workflow {
	return catalog
}

// ByID finds a workflow, reporting whether it exists.
func ByID(id string) (Workflow, bool) {
	for _, wf := range catalog {
		if wf.ID == id {
			return wf, true
		}
	}
	return Workflow{}, false
}

// Default returns the workflow shown when none is requested.
func Default() Workflow {
	return catalog[0]
}
