// Copyright 2025 Ontolite Authors
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
	"errors"
	"log/slog"
	"strings"

	"github.com/ontolite/ontolite/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// labelMaxTokens caps the completion; labels are 2-4 words.
const labelMaxTokens = 16

// ClusterLabeler implements ai.ClusterLabeler using OpenAI-compatible chat APIs.
type ClusterLabeler struct {
	client llms.Model
	logger *slog.Logger
}

// newClusterLabeler is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newClusterLabeler(config *ai.Config) (*ClusterLabeler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.LabelerHost),
		openai.WithToken("none"),
		openai.WithModel(config.LabelerModel),
	)
	if err != nil {
		return nil, err
	}

	return &ClusterLabeler{
		client: client,
		logger: slog.Default().With("component", "openai-labeler"),
	}, nil
}

// NewClusterLabeler creates a new cluster labeler using the provided configuration.
//
// Returns ai.ClusterLabeler interface to enforce abstraction.
func NewClusterLabeler(config *ai.Config) (ai.ClusterLabeler, error) {
	return newClusterLabeler(config)
}

// LabelCluster asks the model for a short thematic label covering the member
// labels. Callers handle errors by falling back to a member label, so this
// method never retries.
func (l *ClusterLabeler) LabelCluster(ctx context.Context, memberLabels []string) (string, error) {
	if len(memberLabels) == 0 {
		return "", errors.New("no member labels to summarize")
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(labelSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(strings.Join(memberLabels, ", ")),
			},
		},
	}

	response, err := l.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(labelMaxTokens))
	if err != nil {
		l.logger.Warn("failed to generate cluster label", "members", len(memberLabels), "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		l.logger.Debug("no choices returned from model")
		return "", errors.New("model returned no choices")
	}

	label := scrubLabel(response.Choices[0].Content)
	if label == "" {
		return "", errors.New("model returned an empty label")
	}

	l.logger.Debug("labeled cluster", "members", len(memberLabels), "label", label)
	return label, nil
}
