package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// maxEmbedInputChars bounds embedding input. Inputs over the budget are
// truncated rather than rejected: reference formulas are rendered text and a
// truncated prefix still embeds close to the full body.
const maxEmbedInputChars = 8000

// Embedder maps text to a fixed-dimension dense vector. Batch and
// single-item embedding of the same text must be vector-equal; batching is
// only an efficiency measure.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// prepareEmbedInput applies the shared input policy: empty input is an
// error, over-length input is truncated to the character budget.
func prepareEmbedInput(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &EmbeddingError{Err: fmt.Errorf("cannot embed empty text")}
	}
	if len(text) > maxEmbedInputChars {
		runes := []rune(text)
		if len(runes) > maxEmbedInputChars {
			text = string(runes[:maxEmbedInputChars])
		}
	}
	return text, nil
}

const simpleDimensions = 128

// SimpleEmbedder is a lightweight local embedder using hashed word
// frequencies. No external service, fully deterministic; the default in
// development and the embedder the tests run against.
type SimpleEmbedder struct{}

func NewSimpleEmbedder() *SimpleEmbedder {
	return &SimpleEmbedder{}
}

func (e *SimpleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text, err := prepareEmbedInput(text)
	if err != nil {
		return nil, err
	}

	text = strings.ToLower(text)
	words := strings.Fields(text)

	embedding := make([]float32, simpleDimensions)

	wordCounts := make(map[string]int)
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'()[]{}%-")
		if len(word) > 0 {
			wordCounts[word]++
		}
	}

	for word, count := range wordCounts {
		hash := 0
		for _, char := range word {
			hash = hash*31 + int(char)
		}
		pos := (hash & 0x7FFFFFFF) % simpleDimensions
		embedding[pos] += float32(count) / float32(len(words))
	}

	var norm float32
	for _, val := range embedding {
		norm += val * val
	}
	if norm > 0 {
		inv := float32(1.0 / math.Sqrt(float64(norm)))
		for i := range embedding {
			embedding[i] *= inv
		}
	}

	return embedding, nil
}

func (e *SimpleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

func (e *SimpleEmbedder) Dimensions() int {
	return simpleDimensions
}

func (e *SimpleEmbedder) ModelName() string {
	return "simple-hash-v1"
}

// OllamaEmbedder generates embeddings via the Ollama embeddings API.
type OllamaEmbedder struct {
	BaseURL string
	Model   string
	Client  *http.Client

	dims int
}

func NewOllamaEmbedder(baseURL, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		BaseURL: baseURL,
		Model:   model,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text, err := prepareEmbedInput(text)
	if err != nil {
		return nil, err
	}

	reqBody := ollamaEmbedRequest{
		Model:  e.Model,
		Prompt: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &EmbeddingError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/api/embeddings", e.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &EmbeddingError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, &EmbeddingError{Err: fmt.Errorf("failed to call Ollama API: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &EmbeddingError{Err: fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))}
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, &EmbeddingError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(embedResp.Embedding) == 0 {
		return nil, &EmbeddingError{Err: fmt.Errorf("received empty embedding from ollama")}
	}

	if e.dims == 0 {
		e.dims = len(embedResp.Embedding)
	}

	return embedResp.Embedding, nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))

	for i, text := range texts {
		embedding, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = embedding

		// small delay to avoid overwhelming the api
		if i < len(texts)-1 {
			time.Sleep(10 * time.Millisecond)
		}
	}

	return embeddings, nil
}

// Dimensions is only known after the first successful call; 0 before that.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dims
}

func (e *OllamaEmbedder) ModelName() string {
	return "ollama-" + e.Model
}

// TestConnection checks that the Ollama API is reachable.
func (e *OllamaEmbedder) TestConnection(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/tags", e.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama API returned status %d", resp.StatusCode)
	}

	return nil
}
