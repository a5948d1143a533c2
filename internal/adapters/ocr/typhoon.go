package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const DefaultTyphoonURL = "https://api.opentyphoon.ai/v1/ocr"

// TyphoonOCR sends the preprocessed image to a remote Typhoon OCR endpoint.
type TyphoonOCR struct {
	url        string
	apiKey     string
	params     OcrParams
	httpClient *http.Client
	log        zerolog.Logger
}

func NewTyphoonOCR(url, apiKey string, log zerolog.Logger) *TyphoonOCR {
	if url == "" {
		url = DefaultTyphoonURL
	}
	return &TyphoonOCR{
		url:    url,
		apiKey: apiKey,
		params: OcrParams{
			Model:             "typhoon-ocr",
			TaskType:          "default",
			MaxTokens:         16000,
			Temperature:       0.1,
			TopP:              0.6,
			RepetitionPenalty: 1.2,
		},
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		log:        log,
	}
}

func (n *TyphoonOCR) ExtractText(ctx context.Context, img []byte) (string, error) {
	body, contentType, err := n.multipart(img)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("typhoon request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("typhoon API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out OcrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("typhoon response: %w", err)
	}

	var pages []string
	for _, r := range out.Results {
		if !r.Success || r.Message == nil {
			n.log.Warn().Str("file", r.Filename).Interface("error", r.Error).Msg("typhoon page failed")
			continue
		}
		for _, c := range r.Message.Choices {
			pages = append(pages, pageText(c.Message.Content))
		}
	}
	if len(pages) == 0 {
		return "", errors.New("typhoon returned no text")
	}
	return strings.Join(pages, "\n"), nil
}

func (n *TyphoonOCR) multipart(img []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("file", "receipt.png")
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(img); err != nil {
		return nil, "", err
	}
	params, err := json.Marshal(n.params)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("params", string(params)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// pageText unwraps {"natural_text": "..."} payloads and returns anything else as is.
func pageText(content string) string {
	var p ocrPage
	if err := json.Unmarshal([]byte(content), &p); err == nil && p.NaturalText != "" {
		return p.NaturalText
	}
	return content
}
