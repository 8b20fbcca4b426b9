package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/formulai/formulai/models"
)

// BuildCorpus turns raw tabular formulation data into the chunk records the
// retrieval pipeline consumes. Input is a CSV with columns product_name,
// Part, INCI, Ingredient and %w/w; one chunk is produced per product, its
// text rendered phase by phase and its metadata derived from the product
// name. This is the offline ETL step; it never runs inside a request.
func BuildCorpus(r io.Reader) ([]models.FormulaChunk, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	col := func(name string) (int, error) {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i, nil
			}
		}
		return 0, fmt.Errorf("missing CSV column %q", name)
	}

	productCol, err := col("product_name")
	if err != nil {
		return nil, err
	}
	partCol, err := col("Part")
	if err != nil {
		return nil, err
	}
	inciCol, err := col("INCI")
	if err != nil {
		return nil, err
	}
	nameCol, err := col("Ingredient")
	if err != nil {
		return nil, err
	}
	percentCol, err := col("%w/w")
	if err != nil {
		return nil, err
	}

	type ingredient struct {
		inci    string
		name    string
		percent string
	}

	// phase-keyed ingredient lists per product, with first-seen product order
	products := []string{}
	phases := map[string]map[string][]ingredient{}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		product := strings.TrimSpace(record[productCol])
		part := strings.TrimSpace(record[partCol])
		if product == "" || part == "" {
			return nil, fmt.Errorf("CSV line %d: empty product name or phase", line)
		}

		if _, seen := phases[product]; !seen {
			products = append(products, product)
			phases[product] = map[string][]ingredient{}
		}
		phases[product][part] = append(phases[product][part], ingredient{
			inci:    strings.TrimSpace(record[inciCol]),
			name:    strings.TrimSpace(record[nameCol]),
			percent: strings.TrimSpace(record[percentCol]),
		})
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("no formulation rows in CSV")
	}

	chunks := make([]models.FormulaChunk, 0, len(products))
	for _, product := range products {
		parts := make([]string, 0, len(phases[product]))
		for part := range phases[product] {
			parts = append(parts, part)
		}
		sort.Strings(parts)

		lines := []string{fmt.Sprintf("Formula: %s", product)}
		inciList := []string{}

		for _, part := range parts {
			lines = append(lines, fmt.Sprintf("Phase %s:", part))
			for _, ing := range phases[product][part] {
				lines = append(lines, fmt.Sprintf("- %s (%s): %s%%", ing.inci, ing.name, ing.percent))
				inciList = append(inciList, ing.inci)
			}
		}

		chunks = append(chunks, models.FormulaChunk{
			Text:     strings.Join(lines, "\n"),
			Metadata: deriveMetadata(product, inciList),
		})
	}

	return chunks, nil
}

// deriveMetadata classifies a formula from its product name. The attribute
// vocabulary is a small open set; names matching nothing fall back to
// "unknown" / "all".
func deriveMetadata(productName string, inciList []string) models.ChunkMetadata {
	lower := strings.ToLower(productName)

	productType := "unknown"
	switch {
	case strings.Contains(lower, "serum"):
		productType = "serum"
	case strings.Contains(lower, "shampoo"):
		productType = "shampoo"
	case strings.Contains(lower, "lotion"):
		productType = "lotion"
	}

	skinType := "all"
	switch {
	case strings.Contains(lower, "oily"):
		skinType = "oily"
	case strings.Contains(lower, "dry"):
		skinType = "dry"
	}

	return models.ChunkMetadata{
		ProductName:    productName,
		ProductType:    productType,
		SkinType:       skinType,
		KeyIngredients: inciList,
	}
}
