package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/poiesic/gleaner/core"
)

// jobView is the wire form of a job. Failed jobs carry the failure kind only.
type jobView struct {
	SourceID        string                `json:"source_id"`
	CommunityID     string                `json:"community_id"`
	URL             string                `json:"url"`
	Status          string                `json:"status"`
	Failure         string                `json:"failure,omitempty"`
	ChunkCount      int                   `json:"chunk_count"`
	ChunksProcessed int                   `json:"chunks_processed"`
	Cleaned         bool                  `json:"cleaned"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	IngestedAt      *time.Time            `json:"ingested_at,omitempty"`
	Record          *core.ExtractedRecord `json:"record,omitempty"`
}

func newJobView(job *core.Job) jobView {
	v := jobView{
		SourceID:        job.SourceID,
		CommunityID:     job.CommunityID,
		URL:             job.URL,
		Status:          job.Status.String(),
		Failure:         job.Failure,
		ChunkCount:      job.ChunkCount,
		ChunksProcessed: job.ChunksProcessed,
		Cleaned:         job.Cleaned,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
	if !job.IngestedAt.IsZero() {
		t := job.IngestedAt
		v.IngestedAt = &t
	}
	return v
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
