package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier used for fingerprints.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceStatus is the lifecycle state of an ingestion job.
type SourceStatus int

const (
	// StatusPending is assigned when a URL is accepted for ingestion.
	StatusPending SourceStatus = iota + 1
	// StatusProcessing is assigned once normalization begins.
	StatusProcessing
	// StatusCompleted is assigned after the result has been stored.
	StatusCompleted
	// StatusFailed is assigned on any unrecoverable error.
	StatusFailed
)

// String returns the status name used in APIs and logs.
func (s SourceStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the status by name.
func (s SourceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are allowed.
func (s SourceStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks one end-to-end ingestion attempt for a single URL.
// It is keyed by (CommunityID, SourceID).
type Job struct {
	SourceID        string
	CommunityID     string
	URL             string
	Status          SourceStatus
	Failure         string // Error kind recorded when Status is Failed
	FailureDetail   string // Error message for operators; never served over HTTP
	ChunkCount      int    // Number of chunks the source was split into
	ChunksProcessed int    // Number of chunks that produced a record
	Cleaned         bool   // Whether the cleanup pass output was used
	CreatedAt       time.Time
	UpdatedAt       time.Time
	IngestedAt      time.Time // Set when the job completes
}

// Chunk is one bounded-length slice of normalized source text.
type Chunk struct {
	SourceID string
	Index    int
	Offset   int // Rune offset of Text within the normalized source text
	Text     string
}

// Keyword is a term defined in the context of the source.
type Keyword struct {
	Keyword         string `json:"keyword"`
	Definition      string `json:"definition"`
	RelationToTopic string `json:"relation_to_topic"`
}

// Insight is a major idea or novel concept found in the source.
type Insight struct {
	Insight string `json:"insight"`
	Concept string `json:"concept"`
}

// ExtractedRecord is the structured metadata extracted from a chunk,
// or from a whole source after merging and cleanup.
type ExtractedRecord struct {
	Author             string    `json:"author"`
	Site               string    `json:"site"`
	PublishDate        string    `json:"publish_date"`
	MainTopic          string    `json:"main_topic"`
	ParentTopic        string    `json:"parent_topic"`
	Field              string    `json:"field"`
	Keywords           []Keyword `json:"keywords"`
	MajorInsights      []Insight `json:"major_insights"`
	SupportingDetails  []string  `json:"supporting_details"`
	RelevantQuotations []string  `json:"relevant_quotations"`
	ExternalLinks      []string  `json:"external_links"`
}

// ChunkAudit is the persisted outcome of extracting a single chunk.
type ChunkAudit struct {
	SourceID string
	Index    int
	Text     string
	Record   *ExtractedRecord // nil when extraction failed
	Failure  string
}
