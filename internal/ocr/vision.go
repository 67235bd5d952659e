// Package ocr extracts text from book photos with Google Cloud Vision and
// turns it into ISBN candidates.
package ocr

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

	"github.com/tidwall/gjson"
)

const defaultVisionURL = "https://vision.googleapis.com/v1"

// ErrNotConfigured is returned when no Vision API key is set.
var ErrNotConfigured = errors.New("ocr: vision API key not configured")

// VisionClient calls the images:annotate endpoint with TEXT_DETECTION.
type VisionClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewVisionClient(baseURL, apiKey string, timeout time.Duration) *VisionClient {
	if baseURL == "" {
		baseURL = defaultVisionURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &VisionClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

// DetectText returns the full text Vision found in the image, or "" when none.
func (c *VisionClient) DetectText(ctx context.Context, image []byte) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(annotateRequest{Requests: []imageRequest{{
		Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
		Features: []feature{{Type: "TEXT_DETECTION"}},
	}}})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/images:annotate?key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read vision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision: status %d: %s", resp.StatusCode, gjson.GetBytes(body, "error.message").String())
	}

	first := gjson.GetBytes(body, "responses.0")
	if msg := first.Get("error.message").String(); msg != "" {
		return "", fmt.Errorf("vision: %s", msg)
	}
	if text := first.Get("fullTextAnnotation.text").String(); text != "" {
		return text, nil
	}
	return first.Get("textAnnotations.0.description").String(), nil
}
