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


// Package openai provides an ai.Completer backed by OpenAI-compatible APIs.
//
// The implementation uses the langchaingo library and works against OpenAI
// itself or compatible services such as Ollama, LocalAI, or vLLM. Each call
// selects its model, reply budget and temperature from the ai.Profile it is
// given, so one client serves both extraction and cleanup.
//
// Failures are classified into ai.ErrConnection, ai.ErrRateLimited,
// ai.ErrUpstream or ai.ErrInvalidRequest so that ai.RetryingCompleter can
// decide whether to retry.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"), // /v1 added automatically
//	    ai.WithExtractionModel("qwen2.5:7b", 4096),
//	)
//
//	completer, err := openai.NewCompleter(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reply, err := completer.Complete(ctx, ai.Prompt{User: "hello"}, config.ExtractionProfile())
package openai
