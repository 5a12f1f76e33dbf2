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


package storage

import (
	"fmt"

	"github.com/poiesic/gleaner/core"
)

// MarshalJob serializes a Job to bytes.
func MarshalJob(job *core.Job) []byte {
	buf := make([]byte, core.JobMUS.Size(*job))
	core.JobMUS.Marshal(*job, buf)
	return buf
}

// UnmarshalJob deserializes a Job from bytes.
func UnmarshalJob(data []byte) (*core.Job, error) {
	job, _, err := core.JobMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: job: %w", ErrSerializationFailed, err)
	}
	return &job, nil
}

// MarshalRecord serializes an ExtractedRecord to bytes.
func MarshalRecord(record *core.ExtractedRecord) []byte {
	buf := make([]byte, core.ExtractedRecordMUS.Size(*record))
	core.ExtractedRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalRecord deserializes an ExtractedRecord from bytes.
func UnmarshalRecord(data []byte) (*core.ExtractedRecord, error) {
	record, _, err := core.ExtractedRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: record: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalChunkAudit serializes a ChunkAudit to bytes.
func MarshalChunkAudit(audit *core.ChunkAudit) []byte {
	buf := make([]byte, core.ChunkAuditMUS.Size(*audit))
	core.ChunkAuditMUS.Marshal(*audit, buf)
	return buf
}

// UnmarshalChunkAudit deserializes a ChunkAudit from bytes.
func UnmarshalChunkAudit(data []byte) (*core.ChunkAudit, error) {
	audit, _, err := core.ChunkAuditMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk audit: %w", ErrSerializationFailed, err)
	}
	return &audit, nil
}
