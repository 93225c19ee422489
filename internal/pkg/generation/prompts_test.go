package generation

import (
	"strings"
	"testing"
)

func testStyle() VisualStyle {
	return VisualStyle{
		VisualMedium: "35mm film photography",
		FilmFormat:   "anamorphic widescreen",
		FilmGrain:    "fine grain",
		DepthOfField: "shallow",
		Lighting:     StyleParam{Value: "low-key noir lighting"},
		ColorPalette: StyleParam{Value: "desaturated teal and amber", ActiveValue: "monochrome with red accents"},
		Aesthetic:    StyleParam{Value: "neo-noir"},
		Atmosphere:   StyleParam{Value: "rain-soaked streets"},
		Mood:         StyleParam{Value: "melancholic"},
		Motion:       "static composition",
		Texture:      StyleParam{Value: "weathered surfaces"},
		DetailLevel:  StyleParam{Value: "high"},
		CustomPrompt: "always keep a neon sign somewhere in frame",
	}
}

func TestCompileStyleValues(t *testing.T) {
	values := CompileStyleValues(testStyle())

	if values[StyleKeyVisualMedium] != "35mm film photography" {
		t.Errorf("unexpected visual medium %q", values[StyleKeyVisualMedium])
	}
	// ActiveValue wins over the base value.
	if values[StyleKeyColorPalette] != "monochrome with red accents" {
		t.Errorf("expected active palette value, got %q", values[StyleKeyColorPalette])
	}
	if values[StyleKeyLighting] != "low-key noir lighting" {
		t.Errorf("unexpected lighting %q", values[StyleKeyLighting])
	}

	// Every placeholder key is always present.
	keys := []string{
		StyleKeyVisualMedium, StyleKeyFilmFormat, StyleKeyFilmGrain,
		StyleKeyDepthOfField, StyleKeyLighting, StyleKeyColorPalette,
		StyleKeyAesthetic, StyleKeyAtmosphere, StyleKeyMood, StyleKeyMotion,
		StyleKeyTexture, StyleKeyDetailLevel, StyleKeyCustomPrompt,
	}
	for _, key := range keys {
		if _, ok := values[key]; !ok {
			t.Errorf("missing placeholder key %s", key)
		}
	}

	empty := CompileStyleValues(VisualStyle{})
	for _, key := range keys {
		if v, ok := empty[key]; !ok || v != "" {
			t.Errorf("empty style must map %s to empty string, got %q (present=%v)", key, v, ok)
		}
	}
}

func TestBuildStylePreviewPrompt(t *testing.T) {
	values := CompileStyleValues(testStyle())

	prompt := BuildStylePreviewPrompt(values, "environment")
	if !strings.Contains(prompt, "a moody alleyway at night") {
		t.Errorf("expected environment subject in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Color palette: monochrome with red accents") {
		t.Errorf("expected active palette in style description:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Additional style direction: always keep a neon sign somewhere in frame") {
		t.Errorf("expected custom direction in prompt:\n%s", prompt)
	}

	// Unknown subject falls back to the character preview.
	fallback := BuildStylePreviewPrompt(values, "vehicle")
	if !strings.Contains(fallback, "a weathered detective in a long coat") {
		t.Errorf("expected character fallback subject:\n%s", fallback)
	}

	// Unset dimensions are omitted from the description.
	sparse := BuildStylePreviewPrompt(CompileStyleValues(VisualStyle{Mood: StyleParam{Value: "serene"}}), "object")
	if strings.Contains(sparse, "Film grain:") {
		t.Errorf("unset dimensions must be omitted:\n%s", sparse)
	}
	if !strings.Contains(sparse, "Mood: serene") {
		t.Errorf("set dimensions must appear:\n%s", sparse)
	}
}

func TestBuildAssetPrompt(t *testing.T) {
	values := CompileStyleValues(testStyle())

	character := BuildAssetPrompt(AssetPromptParams{
		Type: "character", Name: "Mira", Description: "a courier with a cybernetic arm", StyleValues: values,
	})
	if !strings.Contains(character, "4x1 horizontal turnaround sheet") {
		t.Errorf("character prompt must ask for a 4x1 sheet:\n%s", character)
	}
	if !strings.Contains(character, "Character name: Mira\nDescription: a courier with a cybernetic arm") {
		t.Errorf("character prompt must carry name and description:\n%s", character)
	}
	if !strings.Contains(character, "Senior Production Concept Artist") {
		t.Errorf("prompt must carry the system block:\n%s", character)
	}

	object := BuildAssetPrompt(AssetPromptParams{Type: "object", Name: "Signal Lantern", StyleValues: values})
	if !strings.Contains(object, "2x2 quadrant grid") {
		t.Errorf("object prompt must ask for a 2x2 grid:\n%s", object)
	}
	if strings.Contains(object, "Description:") {
		t.Errorf("empty description must be omitted:\n%s", object)
	}

	set := BuildAssetPrompt(AssetPromptParams{Type: "set", Name: "Harbor Market", StyleValues: values})
	if !strings.Contains(set, "SET / LOCATION") || !strings.Contains(set, "16:9") {
		t.Errorf("set prompt must ask for a cinematic 16:9 frame:\n%s", set)
	}

	if !strings.Contains(set, "Style anchors:") || !strings.Contains(set, "- Detail Level: high") {
		t.Errorf("prompt must carry the full style anchor block:\n%s", set)
	}
}

func TestBuildRefinementPrompt(t *testing.T) {
	values := CompileStyleValues(testStyle())

	prompt := BuildRefinementPrompt(RefinementPromptParams{
		Type:           "character",
		OriginalPrompt: "a courier in a rain jacket",
		Instructions:   "make the jacket bright yellow",
		StyleValues:    values,
	})
	if !strings.Contains(prompt, "ORIGINAL PROMPT:\na courier in a rain jacket") {
		t.Errorf("refinement must embed the original prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "REFINEMENT INSTRUCTIONS:\nmake the jacket bright yellow") {
		t.Errorf("refinement must embed the instructions:\n%s", prompt)
	}
}

func TestFormatConversationHistory(t *testing.T) {
	if got := FormatConversationHistory(nil); got != "" {
		t.Errorf("empty history must render nothing, got %q", got)
	}

	got := FormatConversationHistory([]ConversationTurn{
		{Role: "user", Text: "make it taller"},
		{Role: "model", Text: "done"},
	})
	want := "\n\nConversation history:\nUSER: make it taller\nMODEL: done"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatAttributes(t *testing.T) {
	if got := FormatAttributes(nil, nil); got != "" {
		t.Errorf("no attributes must render nothing, got %q", got)
	}

	attrs := map[string]string{"height": "tall", "age": "", "build": "wiry"}
	got := FormatAttributes([]string{"height", "age", "build"}, attrs)
	want := "\n\nAsset attributes:\n- height: tall\n- build: wiry"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if got := FormatAttributes([]string{"age"}, attrs); got != "" {
		t.Errorf("all-empty values must render nothing, got %q", got)
	}
}
