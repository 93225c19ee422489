package generation

import (
	"fmt"
	"strings"
)

// Style placeholder keys shared by all prompt templates. The project's
// visual style compiles into this flat map before any prompt is built.
const (
	StyleKeyVisualMedium = "VISUAL_MEDIUM"
	StyleKeyFilmFormat   = "FILM_FORMAT"
	StyleKeyFilmGrain    = "FILM_GRAIN"
	StyleKeyDepthOfField = "DEPTH_OF_FIELD"
	StyleKeyLighting     = "LIGHTING"
	StyleKeyColorPalette = "COLOR_PALETTE"
	StyleKeyAesthetic    = "AESTHETIC"
	StyleKeyAtmosphere   = "ATMOSPHERE"
	StyleKeyMood         = "MOOD"
	StyleKeyMotion       = "MOTION"
	StyleKeyTexture      = "TEXTURE"
	StyleKeyDetailLevel  = "DETAIL_LEVEL"
	StyleKeyCustomPrompt = "CUSTOM_PROMPT"
)

// StyleParam is one tweakable style dimension. Simple dimensions carry only
// Value; dimensions with generated alternatives carry ActiveValue.
type StyleParam struct {
	Value       string `json:"value,omitempty"`
	Active      string `json:"active,omitempty"`
	ActiveValue string `json:"activeValue,omitempty"`
}

// ActiveText returns the param's effective text, preferring the explicitly
// activated alternative over the base value.
func (p StyleParam) ActiveText() string {
	if p.ActiveValue != "" {
		return p.ActiveValue
	}
	if p.Active != "" {
		return p.Active
	}
	return p.Value
}

// VisualStyle is the project's visual DNA as stored in project data.
type VisualStyle struct {
	VisualMedium string     `json:"visualMedium"`
	FilmFormat   string     `json:"filmFormat"`
	FilmGrain    string     `json:"filmGrain"`
	DepthOfField string     `json:"depthOfField"`
	Lighting     StyleParam `json:"lighting"`
	ColorPalette StyleParam `json:"colorPalette"`
	Aesthetic    StyleParam `json:"aesthetic"`
	Atmosphere   StyleParam `json:"atmosphere"`
	Mood         StyleParam `json:"mood"`
	Motion       string     `json:"motion"`
	Texture      StyleParam `json:"texture"`
	DetailLevel  StyleParam `json:"detailLevel"`
	CustomPrompt string     `json:"customPrompt"`
}

// CompileStyleValues flattens a visual style into the placeholder map the
// prompt templates consume. Every key is always present, empty when the
// style leaves the dimension unset.
func CompileStyleValues(style VisualStyle) map[string]string {
	return map[string]string{
		StyleKeyVisualMedium: style.VisualMedium,
		StyleKeyFilmFormat:   style.FilmFormat,
		StyleKeyFilmGrain:    style.FilmGrain,
		StyleKeyDepthOfField: style.DepthOfField,
		StyleKeyLighting:     style.Lighting.ActiveText(),
		StyleKeyColorPalette: style.ColorPalette.ActiveText(),
		StyleKeyAesthetic:    style.Aesthetic.ActiveText(),
		StyleKeyAtmosphere:   style.Atmosphere.ActiveText(),
		StyleKeyMood:         style.Mood.ActiveText(),
		StyleKeyMotion:       style.Motion,
		StyleKeyTexture:      style.Texture.ActiveText(),
		StyleKeyDetailLevel:  style.DetailLevel.ActiveText(),
		StyleKeyCustomPrompt: style.CustomPrompt,
	}
}

// Style preview subjects. Previews render the same neutral subject per
// category so different styles stay comparable.
var stylePreviewSubjects = map[string]string{
	"character":   "a weathered detective in a long coat",
	"object":      "an ornate vintage pocket watch",
	"environment": "a moody alleyway at night",
}

var stylePreviewRequirements = map[string]string{
	"character":   "Single full-body character concept on a clean neutral background. Clear silhouette, readable costume details, gentle studio falloff, subtle rim light. Centered framing, no props unless essential.",
	"object":      "Single hero object on a clean neutral background. Three-quarter angle with soft shadow, studio lighting, precise material definition, no text labels.",
	"environment": "Wide establishing shot of the environment. Cinematic composition, layered depth, clear foreground/midground/background, atmospheric perspective.",
}

// styleDescription renders the set placeholders as one flowing sentence
// block, skipping unset dimensions.
func styleDescription(styleValues map[string]string) string {
	ordered := []struct {
		key   string
		label string
	}{
		{StyleKeyVisualMedium, "Visual medium"},
		{StyleKeyAesthetic, "Aesthetic"},
		{StyleKeyAtmosphere, "Atmosphere"},
		{StyleKeyMood, "Mood"},
		{StyleKeyColorPalette, "Color palette"},
		{StyleKeyLighting, "Lighting"},
		{StyleKeyTexture, "Texture"},
		{StyleKeyDepthOfField, "Depth of field"},
		{StyleKeyFilmGrain, "Film grain"},
		{StyleKeyMotion, "Motion style"},
		{StyleKeyFilmFormat, "Film format"},
	}

	var parts []string
	for _, dim := range ordered {
		if v := styleValues[dim.key]; v != "" {
			parts = append(parts, dim.label+": "+v)
		}
	}
	return strings.Join(parts, ". ") + "."
}

// BuildStylePreviewPrompt builds the prompt for one style preview image.
// subjectType is character, object or environment.
func BuildStylePreviewPrompt(styleValues map[string]string, subjectType string) string {
	subject, ok := stylePreviewSubjects[subjectType]
	if !ok {
		subject = stylePreviewSubjects["character"]
	}
	requirements := stylePreviewRequirements[subjectType]
	if requirements == "" {
		requirements = stylePreviewRequirements["character"]
	}

	lines := []string{
		fmt.Sprintf("Generate an image of %s.", subject),
		"",
		requirements,
		"",
		"Apply this visual style throughout: " + styleDescription(styleValues),
	}
	if custom := strings.TrimSpace(styleValues[StyleKeyCustomPrompt]); custom != "" {
		lines = append(lines, "", "Additional style direction: "+custom)
	}
	return strings.Join(lines, "\n")
}

const assetSystemPrompt = `{
  "role": "Senior Production Concept Artist & Sheet Designer",
  "instruction": "You generate production-ready concept images and turnaround sheets that are consistent with a provided Visual DNA. Follow composition/layout instructions precisely and keep backgrounds clean unless instructed.",
  "output_format": "Return ONLY the final image prompt text. No JSON. No markdown. No commentary.",
  "constraints": [
    "Be explicit about layout and white background requirements for sheets.",
    "Avoid brand names and copyrighted characters."
  ]
}`

// styleAnchorBlock lists all style placeholders, set or not, so the model
// always sees the full visual DNA.
func styleAnchorBlock(styleValues map[string]string) string {
	notes := styleValues[StyleKeyCustomPrompt]
	if notes == "" {
		notes = "(none)"
	}
	return "Style anchors:\n" +
		"- Visual Medium: " + styleValues[StyleKeyVisualMedium] + "\n" +
		"- Film Format: " + styleValues[StyleKeyFilmFormat] + "\n" +
		"- Film Grain: " + styleValues[StyleKeyFilmGrain] + "\n" +
		"- Depth of Field: " + styleValues[StyleKeyDepthOfField] + "\n" +
		"- Lighting: " + styleValues[StyleKeyLighting] + "\n" +
		"- Color Palette: " + styleValues[StyleKeyColorPalette] + "\n" +
		"- Aesthetic: " + styleValues[StyleKeyAesthetic] + "\n" +
		"- Atmosphere: " + styleValues[StyleKeyAtmosphere] + "\n" +
		"- Mood: " + styleValues[StyleKeyMood] + "\n" +
		"- Motion: " + styleValues[StyleKeyMotion] + "\n" +
		"- Texture: " + styleValues[StyleKeyTexture] + "\n" +
		"- Detail Level: " + styleValues[StyleKeyDetailLevel] + "\n" +
		"Additional notes: " + notes
}

// AssetPromptParams describes the subject of one asset generation.
type AssetPromptParams struct {
	Type        string // character, object or set
	Name        string
	Description string
	StyleValues map[string]string
}

// BuildAssetPrompt builds the full prompt for a new asset. Characters get a
// 4x1 turnaround sheet, objects a 2x2 quadrant grid, sets a single cinematic
// environment frame.
func BuildAssetPrompt(params AssetPromptParams) string {
	desc := ""
	if strings.TrimSpace(params.Description) != "" {
		desc = "\nDescription: " + params.Description
	}

	var user string
	switch params.Type {
	case "character":
		user = "Create a 4x1 horizontal turnaround sheet of a CHARACTER on a pure white background.\n\n" +
			"Panels (left to right): Front view, Side view, Back view, 3/4 view.\n" +
			"Keep the character centered in each panel, consistent proportions, consistent lighting.\n" +
			"No text labels. No borders.\nAspect ratio: 4:3.\n\n" +
			"Character name: " + params.Name + desc + "\n\n" +
			styleAnchorBlock(params.StyleValues)
	case "object":
		user = "Create a 2x2 quadrant grid turnaround sheet of an OBJECT on a pure white background.\n\n" +
			"Quadrants: Front view, Back view, Side view, 3/4 view.\n" +
			"Keep scale consistent across quadrants. No text labels. No borders.\nAspect ratio: 4:3.\n\n" +
			"Object name: " + params.Name + desc + "\n\n" +
			styleAnchorBlock(params.StyleValues)
	default: // set
		user = "Create a single cinematic environment concept image of a SET / LOCATION.\n\n" +
			"No grid. No white background requirement unless it makes sense; prioritize cinematic composition.\n" +
			"Aspect ratio: 16:9 unless otherwise implied.\n\n" +
			"Set name: " + params.Name + desc + "\n\n" +
			styleAnchorBlock(params.StyleValues)
	}

	return assetSystemPrompt + "\n\n" + user
}

// RefinementPromptParams describes an iteration on an existing asset.
type RefinementPromptParams struct {
	Type           string
	OriginalPrompt string
	Instructions   string
	StyleValues    map[string]string
}

// BuildRefinementPrompt builds the prompt for refining a previously
// generated asset while keeping its style consistent.
func BuildRefinementPrompt(params RefinementPromptParams) string {
	user := "Refine the following prompt for a " + params.Type + " while preserving the existing style consistency.\n\n" +
		"ORIGINAL PROMPT:\n" + params.OriginalPrompt + "\n\n" +
		"REFINEMENT INSTRUCTIONS:\n" + params.Instructions + "\n\n" +
		styleAnchorBlock(params.StyleValues) + "\n\n" +
		"Return ONLY the refined prompt text."
	return assetSystemPrompt + "\n\n" + user
}

// ConversationTurn is one prior exchange in an asset refinement thread.
type ConversationTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// FormatConversationHistory renders prior refinement turns into a prompt
// suffix. Empty history renders nothing.
func FormatConversationHistory(turns []ConversationTurn) string {
	if len(turns) == 0 {
		return ""
	}
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, strings.ToUpper(turn.Role)+": "+turn.Text)
	}
	return "\n\nConversation history:\n" + strings.Join(lines, "\n")
}

// FormatAttributes renders asset attribute key/value pairs into a prompt
// suffix, in the given key order. Empty attributes render nothing.
func FormatAttributes(keys []string, attributes map[string]string) string {
	if len(keys) == 0 {
		return ""
	}
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		if value := attributes[key]; value != "" {
			lines = append(lines, "- "+key+": "+value)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "\n\nAsset attributes:\n" + strings.Join(lines, "\n")
}
