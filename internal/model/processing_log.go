package model

// ProcessingLog records one step of a document's ingestion pipeline.
type ProcessingLog struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
	Ctime      int64  `json:"ctime"`
}
