// Package ingestion turns a web source into one deduplicated, cleaned-up
// record of educational metadata.
//
// A Pipeline drives each job through its lifecycle:
//
//	Pending -> Processing -> Completed
//	                      -> Failed
//
// Processing fetches and normalizes the document, splits it into chunks,
// extracts a record from every chunk concurrently on a bounded worker pool,
// merges and deduplicates the chunk records, and finally asks the LLM to
// clean up the merged record. Chunk failures are tolerated as long as one
// chunk succeeds. A failed cleanup is never fatal: the merged record is
// stored instead.
//
// Jobs submitted with Submit run asynchronously on their own worker pool and
// are detached from the submitting context. Ingest runs a job on the caller's
// goroutine.
package ingestion
