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


package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/gleaner/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
// Model, reply budget and temperature come from the per-call profile.
type Completer struct {
	client llms.Model
	logger *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services accept any token.
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(config.ExtractionModel),
	}
	if config.Host != "" {
		opts = append(opts, openai.WithBaseURL(config.Host))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	return &Completer{
		client: client,
		logger: slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

// Complete sends the prompt as a system and a human message and returns
// the first choice. Errors are classified into the ai transport errors.
func (c *Completer) Complete(ctx context.Context, prompt ai.Prompt, profile ai.Profile) (string, error) {
	content := make([]llms.MessageContent, 0, 2)
	if prompt.System != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, prompt.System))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, prompt.User))

	callOpts := []llms.CallOption{llms.WithTemperature(profile.Temperature)}
	if profile.Model != "" {
		callOpts = append(callOpts, llms.WithModel(profile.Model))
	}
	if profile.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(profile.MaxTokens))
	}

	response, err := c.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		classified := classify(ctx, err)
		c.logger.Debug("llm call failed", "profile", profile.Name, "model", profile.Model, "err", classified)
		return "", classified
	}

	if len(response.Choices) < 1 {
		c.logger.Debug("no choices returned from model", "profile", profile.Name)
		return "", ErrNoChoices
	}

	return response.Choices[0].Content, nil
}
