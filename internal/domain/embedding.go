package domain

import "time"

// FileEmbedding is an indexed source file: its AI summary, raw content, and
// summary embedding vector stored in pgvector. A (project, file) pair is
// indexed at most once; rows are never updated in place.
type FileEmbedding struct {
	ID         string    `json:"id"          db:"id"`
	ProjectID  string    `json:"project_id"  db:"project_id"`
	FileName   string    `json:"file_name"   db:"file_name"`
	Summary    string    `json:"summary"     db:"summary"`
	SourceCode string    `json:"source_code" db:"source_code"`
	Vector     []float32 `json:"-"           db:"summary_embedding"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// FileReference is a retrieval hit returned to callers for citation,
// including its cosine similarity to the question.
type FileReference struct {
	FileName   string  `json:"file_name"`
	SourceCode string  `json:"source_code"`
	Summary    string  `json:"summary"`
	Similarity float64 `json:"similarity"`
}
