package kbmodel

import "time"

type SourceKind string

const (
	KindFile              SourceKind = "FILE"
	KindRichText          SourceKind = "RICH_TEXT"
	KindStructuredRecords SourceKind = "STRUCTURED_RECORDS"
)

// SourceDocument is the bookkeeping record for one uploaded file or pasted
// rich-text blob. The relational row itself lives outside the engine; this is
// the shape the engine reads and writes through DocumentStore.
type SourceDocument struct {
	ID          string     `json:"id"`
	CategoryID  string     `json:"category_id"`
	FileName    string     `json:"file_name"`
	Kind        SourceKind `json:"kind"`
	StoragePath string     `json:"storage_path,omitempty"`
	Description string     `json:"description,omitempty"`
	Active      bool       `json:"is_active"`
	OwnerID     string     `json:"owner_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChunkMetadata carries the fixed queryable fields plus an open extension map.
// Extra values must already be scalar strings; structured attribute values are
// JSON-encoded before they get here.
type ChunkMetadata struct {
	KnowledgeID   string            `json:"knowledge_id"`
	CategoryID    string            `json:"category_id"`
	FileName      string            `json:"file_name"`
	ProcedureName string            `json:"procedure_name,omitempty"`
	ChunkIndex    int               `json:"chunk_index"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Chunk is the atomic unit of retrieval. Chunks are never mutated after
// creation; an update is delete-all-for-document followed by re-create.
type Chunk struct {
	ID       string        `json:"chunk_id"`
	Content  string        `json:"content"`
	Vector   []float32     `json:"-"`
	Metadata ChunkMetadata `json:"metadata"`
}

type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// StructuredRecord is the intermediate artifact for spreadsheet catalogs: one
// named entry per data row. One record yields exactly one chunk whose content
// is the record name.
type StructuredRecord struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

type KeyPurpose string

const (
	PurposeGeneration KeyPurpose = "generation"
	PurposeEmbedding  KeyPurpose = "embedding"
)

type APIKey struct {
	Name  string `json:"name"`
	Value string `json:"key"`
}

// Catalog is the classifier's view of the corpus: categories with the file
// names ingested under each.
type CatalogCategory struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Files []string `json:"files"`
}

type Catalog struct {
	Categories []CatalogCategory `json:"categories"`
}

// ClassifierResult narrows a vector search. A zero result means "no filter";
// the retrieval pipeline treats that as unfiltered search, never as empty.
type ClassifierResult struct {
	CategoryID string   `json:"category_id"`
	FileNames  []string `json:"file_names"`
}

func (r ClassifierResult) IsZero() bool {
	return r.CategoryID == "" && len(r.FileNames) == 0
}
