package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/formulai/formulai/config"
	"github.com/formulai/formulai/models"
	"github.com/formulai/formulai/services"
	"github.com/formulai/formulai/storage"

	"github.com/gin-gonic/gin"
)

type RAGController struct {
	config    *config.Config
	store     *storage.ChunkStore
	retriever *services.Retriever
	generator *services.Generator
}

// NewEmbedder builds the configured embedding provider.
func NewEmbedder(cfg *config.Config) (services.Embedder, error) {
	switch cfg.EmbedProvider {
	case "simple":
		return services.NewSimpleEmbedder(), nil
	case "ollama":
		return services.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbedModel), nil
	case "openai":
		return services.NewOpenAIEmbedder(cfg.OpenAIEmbedModel)
	default:
		return nil, fmt.Errorf("unknown embed provider %q", cfg.EmbedProvider)
	}
}

// NewRAGController wires the retrieval pipeline. The corpus (and the vector
// cache, when enabled) is fully loaded here, before any route is served.
func NewRAGController(cfg *config.Config, store *storage.ChunkStore) (*RAGController, error) {
	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	generator := services.NewGenerator(cfg.OllamaURL, cfg.LLMModel, time.Duration(cfg.GenerateTimeoutS)*time.Second)
	retriever := services.NewRetriever(store, embedder)

	if ollamaEmbedder, ok := embedder.(*services.OllamaEmbedder); ok {
		if err := ollamaEmbedder.TestConnection(context.Background()); err != nil {
			log.Printf("Warning: Ollama embedder connection test failed: %v", err)
		} else {
			log.Println("Connected to Ollama embeddings")
		}
	}

	if cfg.OllamaURL != "" {
		if err := generator.TestConnection(context.Background()); err != nil {
			log.Printf("Warning: Ollama generator connection test failed: %v", err)
		} else {
			log.Println("Connected to Ollama LLM")
		}
	}

	if cfg.CacheEmbeddings {
		if err := retriever.PrecomputeEmbeddings(context.Background()); err != nil {
			return nil, err
		}
	}

	return &RAGController{
		config:    cfg,
		store:     store,
		retriever: retriever,
		generator: generator,
	}, nil
}

func (rc *RAGController) Retrieve(c *gin.Context) {
	startTime := time.Now()

	var req models.RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	topK, ok := rc.resolveTopK(c, req.TopK)
	if !ok {
		return
	}

	results, ok := rc.retrieve(c, req.Query, topK, models.FilterConstraints{
		ProductType: req.ProductType,
		SkinType:    req.SkinType,
	})
	if !ok {
		return
	}

	// an empty result is a "no matches" state for the caller, not an error
	c.JSON(http.StatusOK, models.RetrieveResponse{
		Results:          toRetrievedChunks(results),
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	})
}

func (rc *RAGController) Generate(c *gin.Context) {
	startTime := time.Now()

	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	topK, ok := rc.resolveTopK(c, req.TopK)
	if !ok {
		return
	}

	results, ok := rc.retrieve(c, req.Query, topK, models.FilterConstraints{
		ProductType: req.ProductType,
		SkinType:    req.SkinType,
	})
	if !ok {
		return
	}
	log.Printf("Retrieved %d relevant chunks for brief: %s", len(results), req.Query)

	chunks := make([]models.FormulaChunk, len(results))
	for i, result := range results {
		chunks[i] = result.Chunk
	}

	// generation proceeds even with zero retrieved chunks: the prompt is
	// still well-formed, just without grounding context
	formula, prompt, err := rc.generator.GenerateFormula(c.Request.Context(), req.Query, chunks, req.Model)
	if err != nil {
		log.Printf("Generation failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.GenerateResponse{
		Formula:          formula,
		Prompt:           prompt,
		Sources:          toRetrievedChunks(results),
		Rows:             services.ParseFormula(formula),
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	})
}

func (rc *RAGController) Export(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	rows := services.ParseFormula(req.Formula)
	if len(rows) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No ingredient lines could be parsed from the formula"})
		return
	}

	var buf bytes.Buffer
	if err := services.WriteFormulaCSV(&buf, rows); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render CSV"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="generated_formula.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (rc *RAGController) resolveTopK(c *gin.Context, topK int) (int, bool) {
	if topK < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "top_k must be a positive integer"})
		return 0, false
	}
	if topK == 0 {
		topK = rc.config.TopK
	}
	return topK, true
}

func (rc *RAGController) retrieve(c *gin.Context, query string, topK int, constraints models.FilterConstraints) ([]models.SearchResult, bool) {
	results, err := rc.retriever.Retrieve(c.Request.Context(), query, topK, constraints)
	if err != nil {
		var dimErr *services.DimensionMismatchError
		if errors.As(err, &dimErr) {
			log.Printf("ERROR: embedder misconfiguration: %v", dimErr)
		} else {
			log.Printf("Retrieval failed: %v", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve chunks"})
		return nil, false
	}
	return results, true
}

func toRetrievedChunks(results []models.SearchResult) []models.RetrievedChunk {
	chunks := make([]models.RetrievedChunk, len(results))
	for i, result := range results {
		chunks[i] = models.RetrievedChunk{
			Text:     result.Chunk.Text,
			Metadata: result.Chunk.Metadata,
			Distance: result.Distance,
		}
	}
	return chunks
}
