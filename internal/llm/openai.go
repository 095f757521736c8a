// Package llm provides the optional model-based drug-name extraction
// collaborator. It is best-effort enrichment: failures are reported as a
// sentinel error and never fail the pipeline.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/farmabot/ocr-service/internal/normalizer"
	"github.com/farmabot/ocr-service/pkg/logging"
)

// Extractor extracts drug names from normalized text
type Extractor interface {
	ExtractDrugNames(ctx context.Context, normalizedText string) ([]string, error)
}

const systemInstruction = "Você é um assistente farmacêutico. Extraia apenas nomes de medicamentos de um texto."

const promptTemplate = `Você é um sistema de farmácia. Leia o seguinte texto e retorne apenas os nomes de medicamentos detectados, separados por vírgula.

Texto:
%s`

// OpenAIExtractor implements Extractor against the OpenAI chat API
type OpenAIExtractor struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIExtractor creates an extractor using the given API key
func NewOpenAIExtractor(apiKey string) *OpenAIExtractor {
	return &OpenAIExtractor{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
		log:    logging.GetLogger("llm-openai"),
	}
}

// ExtractDrugNames asks the model for a comma-separated list of drug names
// found in the text. On API failure it returns the sentinel error
// "Erro OpenAI: <detail>".
func (e *OpenAIExtractor) ExtractDrugNames(ctx context.Context, normalizedText string) ([]string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, normalizedText)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Erro OpenAI: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("Erro OpenAI: empty response")
	}

	output := resp.Choices[0].Message.Content
	names := parseNames(output)

	e.log.Debug().
		Str("output", output).
		Strs("names", names).
		Msg("Model extraction completed")

	return names, nil
}

// parseNames splits the model's comma-separated answer into normalized,
// deduplicated names, preserving first-seen order
func parseNames(output string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, part := range strings.Split(output, ",") {
		name := normalizer.Normalize(part)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
