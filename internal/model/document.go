package model

const (
	DocumentStatusProcessing = "processing"
	DocumentStatusActive     = "active"
	DocumentStatusInactive   = "inactive"
	DocumentStatusDeleted    = "deleted"
)

const (
	ProcessingStatusQueued     = "queued"
	ProcessingStatusProcessing = "processing"
	ProcessingStatusCompleted  = "completed"
	ProcessingStatusError      = "error"
)

type Document struct {
	ID               string `json:"id"`
	OwnerID          string `json:"owner_id"`
	Filename         string `json:"filename"`
	MimeType         string `json:"mime_type"`
	FilePath         string `json:"file_path"`
	Status           string `json:"status"`
	ProcessingStatus string `json:"processing_status"`
	ProcessingError  string `json:"processing_error,omitempty"`
	ContentHash      string `json:"content_hash,omitempty"`
	ChunkCount       int    `json:"chunk_count"`
	Ctime            int64  `json:"ctime"`
	Mtime            int64  `json:"mtime"`
	ProcessedAt      int64  `json:"processed_at,omitempty"`
}
