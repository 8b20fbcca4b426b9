package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/formulai/formulai/config"
	"github.com/formulai/formulai/controllers"
	"github.com/formulai/formulai/evaluation"
	"github.com/formulai/formulai/services"
	"github.com/formulai/formulai/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "evaluate":
			// usage: go run main.go evaluate [dataset.json]
			runEvaluation()
			return
		case "buildcorpus":
			// usage: go run main.go buildcorpus <formulations.csv> <corpus.json>
			runBuildCorpus()
			return
		case "import":
			// usage: go run main.go import [corpus.json]
			runImport()
			return
		}
	}

	runServer()
}

func runServer() {
	cfg := config.Load()

	store, err := loadChunkStore(cfg)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	ragController, err := controllers.NewRAGController(cfg, store)
	if err != nil {
		log.Fatalf("Failed to initialize retrieval pipeline: %v", err)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "formulai",
			"chunks":  store.Len(),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/retrieve", ragController.Retrieve)
		api.POST("/generate", ragController.Generate)
		api.POST("/export", ragController.Export)
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("FormulAI server starting on %s", addr)
	log.Printf("Corpus: %s (%d chunks)", cfg.CorpusSource, store.Len())
	log.Printf("Embedder: %s", cfg.EmbedProvider)
	log.Printf("Ollama: %s", cfg.OllamaURL)
	log.Printf("Environment: %s", cfg.Environment)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// loadChunkStore loads the corpus from the configured source. The load
// completes before any request is served; the store is read-only afterwards.
func loadChunkStore(cfg *config.Config) (*storage.ChunkStore, error) {
	if cfg.CorpusSource == "mongo" {
		mongoStore, err := storage.NewMongoStore(cfg)
		if err != nil {
			return nil, err
		}
		defer mongoStore.Close()
		return mongoStore.LoadChunks(context.Background())
	}
	return storage.LoadCorpus(cfg.CorpusPath)
}

func runEvaluation() {
	log.Println("Starting evaluation mode...")

	cfg := config.Load()

	store, err := loadChunkStore(cfg)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}

	embedder, err := controllers.NewEmbedder(cfg)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	retriever := services.NewRetriever(store, embedder)
	if cfg.CacheEmbeddings {
		if err := retriever.PrecomputeEmbeddings(context.Background()); err != nil {
			log.Fatalf("Failed to precompute embeddings: %v", err)
		}
	}

	datasetPath := "evaluation/dataset.json"
	if len(os.Args) > 2 {
		datasetPath = os.Args[2]
	}

	briefs, err := evaluation.LoadDataset(datasetPath)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	log.Printf("Loaded %d briefs from %s", len(briefs), datasetPath)

	evaluator := evaluation.NewEvaluator(cfg, retriever, embedder)

	report, err := evaluator.Evaluate(context.Background(), briefs)
	if err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}

	evaluation.PrintSummary(report)

	outputFile := "evaluation/results/baseline.json"
	if err := evaluation.SaveReport(report, outputFile); err != nil {
		log.Fatalf("Failed to save report: %v", err)
	}

	log.Printf("Evaluation complete! Results saved to %s", outputFile)
}

func runBuildCorpus() {
	if len(os.Args) < 4 {
		log.Fatalf("usage: formulai buildcorpus <formulations.csv> <corpus.json>")
	}
	csvPath, outPath := os.Args[2], os.Args[3]

	f, err := os.Open(csvPath)
	if err != nil {
		log.Fatalf("Failed to open formulations CSV: %v", err)
	}
	defer f.Close()

	chunks, err := services.BuildCorpus(f)
	if err != nil {
		log.Fatalf("Failed to build corpus: %v", err)
	}

	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal corpus: %v", err)
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		log.Fatalf("Failed to write corpus file: %v", err)
	}

	log.Printf("Built corpus: %d chunks written to %s", len(chunks), outPath)
}

func runImport() {
	cfg := config.Load()

	corpusPath := cfg.CorpusPath
	if len(os.Args) > 2 {
		corpusPath = os.Args[2]
	}

	store, err := storage.LoadCorpus(corpusPath)
	if err != nil {
		log.Fatalf("Failed to load corpus file: %v", err)
	}

	mongoStore, err := storage.NewMongoStore(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoStore.Close()

	ctx := context.Background()
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	if err := mongoStore.InsertChunks(ctx, store.All()); err != nil {
		log.Fatalf("Failed to import chunks: %v", err)
	}

	log.Printf("Imported %d chunks into MongoDB", store.Len())
}
