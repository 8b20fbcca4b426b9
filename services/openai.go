package services

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder generates embeddings via the OpenAI API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

func NewOpenAIEmbedder(model string) (*OpenAIEmbedder, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	dims := 1536 // text-embedding-3-small
	if model == "text-embedding-3-large" {
		dims = 3072
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(key),
		model:  model,
		dims:   dims,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text, err := prepareEmbedInput(text)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, &EmbeddingError{Err: fmt.Errorf("OpenAI API error: %w", err)}
	}

	if len(resp.Data) == 0 {
		return nil, &EmbeddingError{Err: fmt.Errorf("no embedding data returned from API")}
	}

	return resp.Data[0].Embedding, nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	prepared := make([]string, len(texts))
	for i, text := range texts {
		p, err := prepareEmbedInput(text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		prepared[i] = p
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: prepared,
	})
	if err != nil {
		return nil, &EmbeddingError{Err: fmt.Errorf("OpenAI API error: %w", err)}
	}

	if len(resp.Data) != len(prepared) {
		return nil, &EmbeddingError{Err: fmt.Errorf("expected %d embeddings, got %d", len(prepared), len(resp.Data))}
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

func (e *OpenAIEmbedder) ModelName() string {
	return "openai-" + e.model
}
