package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cp25sy5-modjot/expense-extractor/internal/ports"
)

const DefaultModel = "llama3.1"

type OllamaAdapter struct {
	baseURL    string
	model      string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewOllamaAdapter targets host, either a bare host/IP (port 11434 is
// assumed) or a full base URL.
func NewOllamaAdapter(host, model string, log zerolog.Logger) *OllamaAdapter {
	baseURL := strings.TrimRight(host, "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = fmt.Sprintf("http://%s:11434", baseURL)
	}
	if model == "" {
		model = DefaultModel
	}
	return &OllamaAdapter{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{},
		log:        log,
	}
}

func (o *OllamaAdapter) Model() string { return o.model }

func (o *OllamaAdapter) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	payload := AIRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		Stream: false,
		Format: "json",
		Options: &AIOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	}

	// tie the model timeout to the incoming ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	raw, err := o.sendRequest(ctx, payload)
	if err != nil {
		return "", err
	}
	defer raw.Body.Close()

	return o.parseNonStreamResponse(raw)
}

func (o *OllamaAdapter) sendRequest(ctx context.Context, payload AIRequest) (*http.Response, error) {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	url := o.baseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := o.httpClient.Do(req)
	if err != nil {
		o.log.Error().Err(err).Msg("Error connecting to Ollama API")
		return nil, fmt.Errorf("ollama API connection error: %w", err)
	}

	if raw.StatusCode != http.StatusOK {
		defer raw.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(raw.Body, 4096))
		return nil, fmt.Errorf("ollama API error: %d - %s", raw.StatusCode, strings.TrimSpace(string(body)))
	}

	return raw, nil
}

func (o *OllamaAdapter) parseNonStreamResponse(resp *http.Response) (string, error) {
	var out AIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	o.log.Debug().
		Str("model", out.Model).
		Int("response_len", len(out.Response)).
		Msg("ollama response")

	if strings.TrimSpace(out.Response) == "" {
		return "", errors.New("ollama returned empty response")
	}
	return out.Response, nil
}
