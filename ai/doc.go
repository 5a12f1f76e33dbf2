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


// Package ai provides abstractions for the LLM text service used by gleaner.
//
// The pipeline only needs one capability from a language model: given a
// prompt, return text. That contract is the Completer interface. Which model
// answers, and how large a reply it may produce, is selected per call with a
// Profile so that bulk chunk extraction and the final cleanup pass can use
// different budgets against the same service.
//
// # Retries
//
// RetryingCompleter wraps any Completer with bounded exponential backoff.
// Only errors classified as transient (ErrConnection, ErrRateLimited,
// ErrUpstream) are retried. Everything else, and the final transient error
// once attempts are exhausted, is returned wrapped in core.ErrExtractionFailed.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs via langchaingo
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	base, err := openai.NewCompleter(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	completer := ai.NewRetryingCompleter(base, ai.DefaultRetryPolicy())
//	reply, err := completer.Complete(ctx, ai.Prompt{System: sys, User: text}, cfg.ExtractionProfile())
package ai
