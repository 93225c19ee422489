package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shotmakerhq/shotmaker/internal/pkg/env"
)

const defaultGeminiAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ImageModel describes one supported image model and which API method it is
// called through. Gemini-family models use generateContent, Imagen models
// use predict.
type ImageModel struct {
	ID     string
	Label  string
	Method string // "generateContent" or "predict"
}

var imageModels = []ImageModel{
	{ID: "gemini-2.0-flash-exp-image-generation", Label: "Gemini 2.0 Flash Image", Method: "generateContent"},
	{ID: "gemini-2.5-flash-image", Label: "Nano Banana 2.5 Flash", Method: "generateContent"},
	{ID: "nano-banana-pro-preview", Label: "Nano Banana 3 Pro", Method: "generateContent"},
	{ID: "imagen-4.0-fast-generate-001", Label: "Imagen 4 Fast", Method: "predict"},
	{ID: "imagen-4.0-generate-001", Label: "Imagen 4", Method: "predict"},
	{ID: "imagen-4.0-ultra-generate-001", Label: "Imagen 4 Ultra", Method: "predict"},
}

// DefaultImageModel is used when a request names no model.
const DefaultImageModel = "gemini-2.5-flash-image"

// AvailableImageModels returns the supported image models.
func AvailableImageModels() []ImageModel {
	out := make([]ImageModel, len(imageModels))
	copy(out, imageModels)
	return out
}

// IsValidImageModel reports whether modelID names a supported image model.
func IsValidImageModel(modelID string) bool {
	for _, m := range imageModels {
		if m.ID == modelID {
			return true
		}
	}
	return false
}

func modelMethod(modelID string) string {
	for _, m := range imageModels {
		if m.ID == modelID {
			return m.Method
		}
	}
	return "generateContent"
}

// ImageRequest is one image generation call.
type ImageRequest struct {
	Prompt          string
	Model           string
	ReferenceImages [][]byte
	AspectRatio     string
	NumberOfImages  int
}

// ImageGenerator produces images from prompts. Satisfied by GeminiClient in
// production and by fakes in tests.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, apiKey string, req ImageRequest) ([][]byte, error)
}

// GeminiClient calls the Google generative language API directly over HTTP.
type GeminiClient struct {
	APIBaseURL string
	HTTPClient *http.Client
}

// NewGeminiClientFromEnv builds a client, honoring GEMINI_API_BASE_URL for
// tests pointing at a local stub.
func NewGeminiClientFromEnv() *GeminiClient {
	return &GeminiClient{
		APIBaseURL: strings.TrimSpace(env.GetEnv("GEMINI_API_BASE_URL", defaultGeminiAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// ResolveAPIKey picks the key for a generation call: the user's own stored
// key when present, otherwise the first configured server-side fallback.
// Returns empty when no key is available at all.
func ResolveAPIKey(userKey string) string {
	if key := strings.TrimSpace(userKey); key != "" {
		return key
	}
	for _, name := range []string{"GOOGLE_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if key := strings.TrimSpace(env.GetEnv(name, "")); key != "" {
			return key
		}
	}
	return ""
}

// GenerateImages dispatches to the model's API method and returns the
// decoded image bytes.
func (c *GeminiClient) GenerateImages(ctx context.Context, apiKey string, req ImageRequest) ([][]byte, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("no generation api key configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	if req.Model == "" {
		req.Model = DefaultImageModel
	}
	if modelMethod(req.Model) == "predict" {
		return c.generateViaPredict(ctx, apiKey, req)
	}
	return c.generateViaGenerateContent(ctx, apiKey, req)
}

func (c *GeminiClient) generateViaGenerateContent(ctx context.Context, apiKey string, req ImageRequest) ([][]byte, error) {
	prompt := req.Prompt
	if req.AspectRatio != "" {
		prompt = prompt + "\n\nAspect ratio: " + req.AspectRatio
	}

	parts := []map[string]interface{}{
		{"text": prompt},
	}
	for _, img := range req.ReferenceImages {
		parts = append(parts, map[string]interface{}{
			"inlineData": map[string]string{
				"mimeType": "image/png",
				"data":     base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"role": "user", "parts": parts},
		},
		"generationConfig": map[string]interface{}{
			"responseModalities": []string{"TEXT", "IMAGE"},
		},
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	path := "/models/" + url.PathEscape(req.Model) + ":generateContent?key=" + url.QueryEscape(apiKey)
	if err := c.post(ctx, path, body, &out); err != nil {
		return nil, err
	}

	var images [][]byte
	var textHint string
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && isImageMime(part.InlineData.MimeType) {
				raw, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					continue
				}
				images = append(images, raw)
			} else if part.Text != "" && textHint == "" {
				textHint = part.Text
				if len(textHint) > 200 {
					textHint = textHint[:200]
				}
			}
		}
	}
	if len(images) == 0 {
		if textHint != "" {
			return nil, fmt.Errorf("model returned text instead of an image: %q", textHint)
		}
		return nil, errors.New("model returned no image data")
	}
	return images, nil
}

func (c *GeminiClient) generateViaPredict(ctx context.Context, apiKey string, req ImageRequest) ([][]byte, error) {
	instance := map[string]interface{}{
		"prompt": req.Prompt,
	}
	if len(req.ReferenceImages) > 0 {
		refs := make([]map[string]interface{}, 0, len(req.ReferenceImages))
		for _, img := range req.ReferenceImages {
			refs = append(refs, map[string]interface{}{
				"referenceType": "asset",
				"image": map[string]string{
					"bytesBase64Encoded": base64.StdEncoding.EncodeToString(img),
					"mimeType":           "image/png",
				},
			})
		}
		instance["referenceImages"] = refs
	}

	sampleCount := req.NumberOfImages
	if sampleCount <= 0 {
		sampleCount = 1
	}
	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}

	body := map[string]interface{}{
		"instances": []map[string]interface{}{instance},
		"parameters": map[string]interface{}{
			"sampleCount": sampleCount,
			"aspectRatio": aspectRatio,
		},
	}

	var out struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
		} `json:"predictions"`
	}
	path := "/models/" + url.PathEscape(req.Model) + ":predict?key=" + url.QueryEscape(apiKey)
	if err := c.post(ctx, path, body, &out); err != nil {
		return nil, err
	}

	var images [][]byte
	for _, pred := range out.Predictions {
		if pred.BytesBase64Encoded == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(pred.BytesBase64Encoded)
		if err != nil {
			continue
		}
		images = append(images, raw)
	}
	if len(images) == 0 {
		return nil, errors.New("model returned no image data")
	}
	return images, nil
}

// TestAPIKey verifies a key by listing models.
func (c *GeminiClient) TestAPIKey(ctx context.Context, apiKey string) error {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return errors.New("api key is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(c.APIBaseURL, "/")+"/models?key="+url.QueryEscape(key), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("key validation failed: status=%d body=%s", resp.StatusCode, string(raw))
	}
	return nil
}

func (c *GeminiClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.APIBaseURL, "/")+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := raw
		if len(detail) > 2048 {
			detail = detail[:2048]
		}
		return fmt.Errorf("generation request failed: status=%d body=%s", resp.StatusCode, string(detail))
	}
	return json.Unmarshal(raw, out)
}

func isImageMime(mimeType string) bool {
	switch mimeType {
	case "image/png", "image/jpeg", "image/webp", "image/gif":
		return true
	}
	return false
}
