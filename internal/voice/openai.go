package voice

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider transcribes with the OpenAI audio transcription endpoint.
// The audio travels inside the transcription request, so there is no remote
// copy to manage: Upload only records the local path and Delete is a no-op.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI client. baseURL may point at any
// OpenAI-compatible server.
func NewOpenAIProvider(apiKey, baseURL, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = openai.Whisper1
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Upload(_ context.Context, path, mimeType string) (*RemoteFile, error) {
	return &RemoteFile{
		MIMEType:  mimeType,
		LocalPath: path,
	}, nil
}

// Generate ignores prompt: the endpoint treats prompts as style hints, not
// instructions, and transcribes whatever language it hears.
func (p *OpenAIProvider) Generate(ctx context.Context, file *RemoteFile, _ string) (string, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		FilePath: file.LocalPath,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (p *OpenAIProvider) Delete(context.Context, *RemoteFile) error {
	return nil
}
