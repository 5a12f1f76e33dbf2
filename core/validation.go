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

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidateJob validates a Job according to domain rules.
//
// Validation rules:
//   - SourceID and CommunityID must not be empty or contain a zero byte
//   - URL must be an absolute http or https URL
//   - Status must be a known state
//
// NOT validated (populated by the pipeline):
//   - chunk counters, Failure, timestamps
func ValidateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if job.SourceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptySourceID)
	}

	if job.CommunityID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyCommunity)
	}

	if strings.IndexByte(job.SourceID, 0) >= 0 || strings.IndexByte(job.CommunityID, 0) >= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrInvalidID)
	}

	if err := ValidateURL(job.URL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	if job.Status < StatusPending || job.Status > StatusFailed {
		return fmt.Errorf("%w: unknown status %d", ErrInvalidJob, job.Status)
	}

	return nil
}

// ValidateURL checks that raw is an absolute http or https URL with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// CanTransition reports whether a job may move from one status to another.
// Statuses only move forward and terminal statuses never change.
func CanTransition(from, to SourceStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Transition moves the job to the given status, stamping UpdatedAt.
// Completing a job also stamps IngestedAt.
func (j *Job) Transition(to SourceStatus, now time.Time) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = now
	if to == StatusCompleted {
		j.IngestedAt = now
	}
	return nil
}

// Fail moves the job to Failed and records the kind and message of err.
func (j *Job) Fail(err error, now time.Time) error {
	if terr := j.Transition(StatusFailed, now); terr != nil {
		return terr
	}
	j.Failure = FailureKind(err)
	if err != nil {
		j.FailureDetail = err.Error()
	}
	return nil
}
