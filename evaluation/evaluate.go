package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/formulai/formulai/config"
	"github.com/formulai/formulai/models"
	"github.com/formulai/formulai/services"
)

// Brief is one evaluation case: a product brief with filter constraints and
// the INCI names a good retrieval should surface.
type Brief struct {
	ID                  int      `json:"id"`
	Brief               string   `json:"brief"`
	ProductType         string   `json:"product_type,omitempty"`
	SkinType            string   `json:"skin_type,omitempty"`
	ExpectedIngredients []string `json:"expected_ingredients"`
	Notes               string   `json:"notes,omitempty"`
}

type EvaluationResult struct {
	BriefID           int      `json:"brief_id"`
	Brief             string   `json:"brief"`
	RetrievedChunks   int      `json:"retrieved_chunks"`
	RelevantRetrieved int      `json:"relevant_retrieved"`
	IngredientsFound  []string `json:"ingredients_found"`
	ResponseTimeMs    int64    `json:"response_time_ms"`
	Success           bool     `json:"success"`
}

type Metrics struct {
	TotalBriefs        int     `json:"total_briefs"`
	SuccessfulQueries  int     `json:"successful_queries"`
	HitRate            float64 `json:"hit_rate"`
	AvgResponseTime    float64 `json:"avg_response_time_ms"`
	AvgChunksRetrieved float64 `json:"avg_chunks_retrieved"`
	AvgRelevantChunks  float64 `json:"avg_relevant_chunks"`
	Timestamp          string  `json:"timestamp"`
	EmbedModel         string  `json:"embed_model"`
	TopK               int     `json:"top_k"`
}

type EvaluationReport struct {
	Metrics Metrics            `json:"metrics"`
	Results []EvaluationResult `json:"results"`
}

// Evaluator scores retrieval quality over a dataset of briefs. Generation is
// not involved: the signal is whether retrieval surfaces formulas containing
// the expected key ingredients.
type Evaluator struct {
	config    *config.Config
	retriever *services.Retriever
	embedder  services.Embedder
}

func NewEvaluator(cfg *config.Config, retriever *services.Retriever, embedder services.Embedder) *Evaluator {
	return &Evaluator{
		config:    cfg,
		retriever: retriever,
		embedder:  embedder,
	}
}

func LoadDataset(path string) ([]Brief, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var briefs []Brief
	if err := json.Unmarshal(data, &briefs); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	return briefs, nil
}

func (e *Evaluator) Evaluate(ctx context.Context, briefs []Brief) (*EvaluationReport, error) {
	results := make([]EvaluationResult, 0, len(briefs))

	totalResponseTime := int64(0)
	totalRetrievedChunks := 0
	totalRelevantChunks := 0
	successfulQueries := 0

	fmt.Println("Starting evaluation...")
	fmt.Printf("Total briefs: %d\n", len(briefs))
	fmt.Println("---")

	for i, b := range briefs {
		fmt.Printf("[%d/%d] Evaluating: %s\n", i+1, len(briefs), b.Brief)

		startTime := time.Now()

		searchResults, err := e.retriever.Retrieve(ctx, b.Brief, e.config.TopK, models.FilterConstraints{
			ProductType: b.ProductType,
			SkinType:    b.SkinType,
		})
		if err != nil {
			fmt.Printf("Failed: %v\n", err)
			continue
		}

		responseTime := time.Since(startTime).Milliseconds()

		ingredientsFound := checkIngredients(b.ExpectedIngredients, searchResults)
		relevantChunks := countRelevantChunks(b.ExpectedIngredients, searchResults)

		// successful if at least one expected ingredient was surfaced
		success := len(ingredientsFound) > 0

		results = append(results, EvaluationResult{
			BriefID:           b.ID,
			Brief:             b.Brief,
			RetrievedChunks:   len(searchResults),
			RelevantRetrieved: relevantChunks,
			IngredientsFound:  ingredientsFound,
			ResponseTimeMs:    responseTime,
			Success:           success,
		})

		totalResponseTime += responseTime
		totalRetrievedChunks += len(searchResults)
		totalRelevantChunks += relevantChunks
		if success {
			successfulQueries++
		}

		fmt.Printf("Completed in %dms (relevant: %d/%d)\n", responseTime, relevantChunks, len(searchResults))
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("no briefs could be evaluated")
	}

	n := float64(len(results))
	report := &EvaluationReport{
		Metrics: Metrics{
			TotalBriefs:        len(briefs),
			SuccessfulQueries:  successfulQueries,
			HitRate:            float64(successfulQueries) / n,
			AvgResponseTime:    float64(totalResponseTime) / n,
			AvgChunksRetrieved: float64(totalRetrievedChunks) / n,
			AvgRelevantChunks:  float64(totalRelevantChunks) / n,
			Timestamp:          time.Now().Format(time.RFC3339),
			EmbedModel:         e.embedder.ModelName(),
			TopK:               e.config.TopK,
		},
		Results: results,
	}

	return report, nil
}

// checkIngredients returns the expected INCI names that appear in any
// retrieved chunk's key ingredient list.
func checkIngredients(expected []string, results []models.SearchResult) []string {
	found := []string{}
	for _, inci := range expected {
		for _, result := range results {
			if containsIngredient(result.Chunk.Metadata.KeyIngredients, inci) {
				found = append(found, inci)
				break
			}
		}
	}
	return found
}

// countRelevantChunks counts retrieved chunks containing at least one
// expected ingredient.
func countRelevantChunks(expected []string, results []models.SearchResult) int {
	count := 0
	for _, result := range results {
		for _, inci := range expected {
			if containsIngredient(result.Chunk.Metadata.KeyIngredients, inci) {
				count++
				break
			}
		}
	}
	return count
}

func containsIngredient(ingredients []string, inci string) bool {
	for _, ing := range ingredients {
		if ing == inci {
			return true
		}
	}
	return false
}

func PrintSummary(report *EvaluationReport) {
	fmt.Println("---")
	fmt.Println("Evaluation Summary")
	fmt.Printf("Total briefs:         %d\n", report.Metrics.TotalBriefs)
	fmt.Printf("Successful queries:   %d\n", report.Metrics.SuccessfulQueries)
	fmt.Printf("Hit rate:             %.2f\n", report.Metrics.HitRate)
	fmt.Printf("Avg response time:    %.1fms\n", report.Metrics.AvgResponseTime)
	fmt.Printf("Avg chunks retrieved: %.1f\n", report.Metrics.AvgChunksRetrieved)
	fmt.Printf("Avg relevant chunks:  %.1f\n", report.Metrics.AvgRelevantChunks)
}

func SaveReport(report *EvaluationReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
