package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultOllamaModel is the embedding model requested from Ollama when
// none is configured.
const DefaultOllamaModel = "nomic-embed-text"

// OllamaProvider generates embeddings through Ollama's embed API.
type OllamaProvider struct {
	url    string
	model  string
	dims   int
	client *http.Client
}

// NewOllamaProvider creates a model-backed provider. The reported
// dimension is updated from the first successful response.
func NewOllamaProvider(url, model string, dims int) *OllamaProvider {
	if model == "" {
		model = DefaultOllamaModel
	}
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &OllamaProvider{
		url:    url,
		model:  model,
		dims:   dims,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (o *OllamaProvider) Model() string   { return "ollama:" + o.model }
func (o *OllamaProvider) Dimensions() int { return o.dims }

// Embed sends text to Ollama's embed endpoint and returns the vector.
func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(map[string]any{
		"model": o.model,
		"input": text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed api: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama returned no embeddings")
	}

	o.dims = len(result.Embeddings[0])
	return result.Embeddings[0], nil
}

// ProbeOllama checks whether Ollama is reachable and the embedding
// model responds. Used for construction-time provider selection; a
// failed probe simply means the hash fallback is used.
func ProbeOllama(url, model string) bool {
	if url == "" {
		return false
	}
	client := &http.Client{Timeout: 3 * time.Second}
	body, _ := json.Marshal(map[string]any{
		"model": model,
		"input": "probe",
	})
	resp, err := client.Post(url+"/api/embed", "application/json", bytes.NewReader(body))
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
