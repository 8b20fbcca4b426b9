package models

// FormulaChunk is one formula's rendered text plus structured metadata.
// Chunks are immutable after corpus load; a chunk's identity is its position
// in the chunk store, which every component uses to correlate filtered
// subsets back to full records.
type FormulaChunk struct {
	Text     string        `bson:"text" json:"text"`
	Metadata ChunkMetadata `bson:"metadata" json:"metadata"`
}

type ChunkMetadata struct {
	ProductName    string   `bson:"product_name,omitempty" json:"product_name,omitempty"`
	ProductType    string   `bson:"product_type" json:"product_type"`
	SkinType       string   `bson:"skin_type" json:"skin_type"`
	KeyIngredients []string `bson:"key_ingredients" json:"key_ingredients"`
}

// FilterConstraints narrows retrieval to chunks whose metadata matches
// exactly. An empty field matches everything on that dimension.
type FilterConstraints struct {
	ProductType string `json:"product_type,omitempty"`
	SkinType    string `json:"skin_type,omitempty"`
}

// SearchResult pairs a retrieved chunk with its squared L2 distance to the
// query embedding. Index is the chunk's original position in the store.
type SearchResult struct {
	Index    int          `json:"index"`
	Chunk    FormulaChunk `json:"chunk"`
	Distance float64      `json:"distance"`
}

// FormulaRow is one parsed ingredient line of a generated formula.
type FormulaRow struct {
	Phase   string  `json:"phase"`
	INCI    string  `json:"inci"`
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
}

type RetrieveRequest struct {
	Query       string `json:"query" binding:"required"`
	TopK        int    `json:"top_k,omitempty"`
	ProductType string `json:"product_type,omitempty"`
	SkinType    string `json:"skin_type,omitempty"`
}

type RetrievedChunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	Distance float64       `json:"distance"`
}

type RetrieveResponse struct {
	Results          []RetrievedChunk `json:"results"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
}

type GenerateRequest struct {
	Query       string `json:"query" binding:"required"`
	TopK        int    `json:"top_k,omitempty"`
	ProductType string `json:"product_type,omitempty"`
	SkinType    string `json:"skin_type,omitempty"`
	Model       string `json:"model,omitempty"`
}

type GenerateResponse struct {
	Formula          string           `json:"formula"`
	Prompt           string           `json:"prompt"`
	Sources          []RetrievedChunk `json:"sources"`
	Rows             []FormulaRow     `json:"rows"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
}

type ExportRequest struct {
	Formula string `json:"formula" binding:"required"`
}
