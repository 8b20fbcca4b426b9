package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/formulai/formulai/models"
)

// Generator drives formula generation via the Ollama generate API. The
// external service has unbounded latency, so every call carries a bounded
// timeout; a timeout surfaces as a GenerationError like any other failure.
type Generator struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewGenerator(baseURL, model string, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Generator{
		BaseURL: baseURL,
		Model:   model,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// GenerateFormula composes the grounding prompt from the query and retrieved
// chunks, sends it to the generation model, and returns the raw output text
// unmodified together with the exact prompt that was sent. modelName
// overrides the default model when non-empty.
func (g *Generator) GenerateFormula(ctx context.Context, query string, chunks []models.FormulaChunk, modelName string) (string, string, error) {
	prompt := BuildPrompt(query, chunks)

	output, err := g.Generate(ctx, prompt, modelName)
	if err != nil {
		return "", prompt, err
	}

	return output, prompt, nil
}

// Generate sends a raw prompt to the generation model.
func (g *Generator) Generate(ctx context.Context, prompt string, modelName string) (string, error) {
	if modelName == "" {
		modelName = g.Model
	}

	reqBody := ollamaGenerateRequest{
		Model:  modelName,
		Prompt: prompt,
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/api/generate", g.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("failed to call Ollama API: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &GenerationError{Err: fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))}
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", &GenerationError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if genResp.Response == "" {
		return "", &GenerationError{Err: fmt.Errorf("received empty response from Ollama")}
	}

	return strings.TrimSpace(genResp.Response), nil
}

// TestConnection checks that the Ollama API is reachable.
func (g *Generator) TestConnection(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/tags", g.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama API returned status %d", resp.StatusCode)
	}

	return nil
}
