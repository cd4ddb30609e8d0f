package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ai-studymate-be/internal/config"
	"ai-studymate-be/internal/repository/implementation"
	"ai-studymate-be/internal/search"
	"ai-studymate-be/pkg/database"
	"ai-studymate-be/pkg/embedding"
	"ai-studymate-be/pkg/rag/retrieval"

	"github.com/fatih/color"
)

// Retrieval diagnostic: runs a query through the full hybrid pipeline against
// a live database and prints the fused scores, so scope and weighting issues
// can be inspected without going through the HTTP layer.
func main() {
	collection := flag.String("collection", "GENERAL", "collection to search (class id or domain type)")
	query := flag.String("query", "", "query text to retrieve for")
	topK := flag.Int("k", 5, "number of chunks to retrieve")
	flag.Parse()

	if *query == "" {
		color.Red("Usage: diagnose -collection <name> -query <text> [-k N]")
		os.Exit(1)
	}

	cfg := config.Load()

	color.Cyan("🔎 Retrieval Diagnostic")
	color.Cyan("─────────────────────────────────────────────")

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("Failed to connect to DB: %v", err)
		os.Exit(1)
	}

	chunkRepo := implementation.NewDocumentChunkRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Collection inventory
	color.Yellow("\n[1] Collection %q", *collection)
	count, err := chunkRepo.CountByCollection(ctx, *collection)
	if err != nil {
		color.Red("Failed to count chunks: %v", err)
		os.Exit(1)
	}
	color.Green("Indexed chunks: %d", count)
	if count == 0 {
		color.Red("Nothing indexed in this collection, retrieval will return no hits.")
	}

	// 2. Hybrid retrieval
	color.Yellow("\n[2] Hybrid retrieval for %q (k=%d)", *query, *topK)

	embedder := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaEmbeddingModel)
	retriever := retrieval.NewHybridRetriever(
		search.NewVectorProvider(embedder, chunkRepo),
		search.NewKeywordProvider(chunkRepo),
		retrieval.Config{
			VectorWeight:    cfg.Rag.VectorWeight,
			KeywordWeight:   cfg.Rag.KeywordWeight,
			ProviderTimeout: time.Duration(cfg.Rag.ProviderTimeoutMs) * time.Millisecond,
			RetryBackoff:    time.Duration(cfg.Rag.RetryBackoffMs) * time.Millisecond,
			PreviewLength:   cfg.Rag.PreviewLength,
			DefaultK:        cfg.Rag.DefaultTopK,
		},
		log.New(os.Stdout, "[RETRIEVAL] ", log.LstdFlags),
	)

	result, err := retriever.Retrieve(ctx, retrieval.Query{
		Text:       *query,
		Collection: *collection,
		K:          *topK,
	})
	if err != nil {
		color.Red("Retrieval failed: %v", err)
		os.Exit(1)
	}

	color.Green("Fused chunks: %d", len(result.Chunks))
	for i, chunk := range result.Chunks {
		fmt.Println()
		color.White("#%d  %s (page %d)", i+1, chunk.Source, chunk.Page)
		fmt.Printf("    fused=%.4f vector=%.4f keyword=%.4f\n", chunk.FusedScore, chunk.VectorScore, chunk.KeywordScore)
		preview := chunk.Text
		if len(preview) > 120 {
			preview = preview[:120] + "..."
		}
		fmt.Printf("    %s\n", preview)
	}

	// 3. Citations as the API would return them
	color.Yellow("\n[3] Citations")
	for _, c := range result.Citations(cfg.Rag.PreviewLength) {
		color.Green("• %s (page %d, score %.4f)", c.Source, c.Page, c.RelevanceScore)
	}

	color.Cyan("\n✅ Done")
}
