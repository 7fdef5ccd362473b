// Package oracle talks to the external image-analysis model. The model is an
// untrusted scorer: its answers gate automatic decisions only through the
// confidence threshold applied by the caller, and anything that does not parse
// strictly is an error, never an optimistic default.
package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrMalformed is returned when the model's response cannot be parsed into
// the expected shape, or required fields are missing or out of range.
var ErrMalformed = errors.New("oracle: malformed response")

// Image is a raw image payload for a model request.
type Image struct {
	Data     []byte
	MimeType string
}

// Classification is the model's judgment of a single waste photo.
type Classification struct {
	WasteType  string  `json:"wasteType"`
	Quantity   string  `json:"quantity"`
	Confidence float64 `json:"confidence"`
}

// Comparison is the model's judgment of an original/collected photo pair.
type Comparison struct {
	SameWaste     bool    `json:"sameWaste"`
	QuantityMatch bool    `json:"quantityMatch"`
	Confidence    float64 `json:"confidence"`
}

// Classifier analyzes a single photo to pre-fill a report form.
type Classifier interface {
	Classify(ctx context.Context, img Image) (*Classification, error)
}

// Judge compares a report photo against a collection photo.
type Judge interface {
	Compare(ctx context.Context, original, collected Image, reportedAmount string) (*Comparison, error)
}

// Config holds oracle client configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client calls the Gemini generateContent API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates an oracle client. If the API key is empty, calls fail
// fast with a configuration error.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

const classifyPrompt = `You are an expert in waste management and recycling. Analyze this image and provide:
1. The type of waste (e.g., plastic, paper, glass, metal, organic)
2. An estimate of the quantity or amount (in kg or liters)
3. Your confidence level in this assessment

Respond strictly in JSON with no extra text:
{
  "wasteType": "type of waste",
  "quantity": "estimated quantity with unit",
  "confidence": number between 0 and 1
}`

// Classify asks the model to identify the waste in a single photo.
func (c *Client) Classify(ctx context.Context, img Image) (*Classification, error) {
	text, err := c.generate(ctx, classifyPrompt, img)
	if err != nil {
		return nil, err
	}
	return parseClassification(text)
}

const comparePromptFormat = `You have TWO images in this order:
1) ORIGINAL report photo of waste.
2) NEWLY uploaded collected waste photo.

Compare them and answer in JSON with no extra text:
{
  "sameWaste": true/false,
  "quantityMatch": true/false,
  "confidence": number between 0 and 1
}

"sameWaste" is whether both photos depict the same waste pile.
"quantityMatch" is whether the collected amount meets or exceeds the reported amount.
The originally reported quantity was: %s`

// Compare asks the model whether the collected photo matches the original
// report, given the originally reported quantity as context.
func (c *Client) Compare(ctx context.Context, original, collected Image, reportedAmount string) (*Comparison, error) {
	prompt := fmt.Sprintf(comparePromptFormat, reportedAmount)
	text, err := c.generate(ctx, prompt, original, collected)
	if err != nil {
		return nil, err
	}
	return parseComparison(text)
}

// --- Wire types for the generateContent API ---

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate sends the prompt plus images and returns the model's raw text.
func (c *Client) generate(ctx context.Context, prompt string, images ...Image) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("oracle: API key not configured")
	}

	parts := []part{{Text: prompt}}
	for _, img := range images {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: img.MimeType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("oracle status %d: %s", resp.StatusCode, data)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrMalformed)
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}
