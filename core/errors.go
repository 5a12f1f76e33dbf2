// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Pipeline errors
var (
	// ErrFetchFailed indicates the source document could not be fetched or normalized.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrExtractionFailed indicates the LLM request failed after retries or with a non-transient error.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrUnparsableReply indicates an LLM reply could not be repaired into a record.
	ErrUnparsableReply = errors.New("unparsable reply")

	// ErrNoChunksProcessed indicates every chunk of a source failed extraction.
	ErrNoChunksProcessed = errors.New("no chunks processed")

	// ErrCleanupFailed indicates the cleanup pass failed. It is never terminal.
	ErrCleanupFailed = errors.New("cleanup failed")
)

// Domain validation errors
var (
	// ErrInvalidJob indicates a Job failed validation.
	ErrInvalidJob = errors.New("invalid job")

	// ErrInvalidTransition indicates a disallowed job status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidURL indicates a source URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid source url")

	// ErrEmptyCommunity indicates the CommunityID field is empty.
	ErrEmptyCommunity = errors.New("community id cannot be empty")

	// ErrEmptySourceID indicates the SourceID field is empty.
	ErrEmptySourceID = errors.New("source id cannot be empty")

	// ErrInvalidID indicates an ID contains a zero byte, which storage keys
	// use as a separator.
	ErrInvalidID = errors.New("id contains a zero byte")

	// ErrCorruptRecord indicates serialized record data is malformed.
	ErrCorruptRecord = errors.New("corrupt record data")
)

// Failure kinds recorded on failed jobs.
const (
	FailureFetch      = "FetchFailed"
	FailureExtraction = "ExtractionFailed"
	FailureUnparsable = "UnparsableReply"
	FailureNoChunks   = "NoChunksProcessed"
	FailureCleanup    = "CleanupFailed"
	FailureUnexpected = "Unexpected"
)

// FailureKind maps an error to the stable kind name stored on a job.
// Causes and stack traces are never exposed through it.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFetchFailed):
		return FailureFetch
	case errors.Is(err, ErrNoChunksProcessed):
		return FailureNoChunks
	case errors.Is(err, ErrUnparsableReply):
		return FailureUnparsable
	case errors.Is(err, ErrExtractionFailed):
		return FailureExtraction
	case errors.Is(err, ErrCleanupFailed):
		return FailureCleanup
	default:
		return FailureUnexpected
	}
}
