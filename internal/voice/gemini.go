package voice

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"
	geminiPollInterval = time.Second
)

// GeminiProvider transcribes through the Gemini API: the audio goes through
// the Files API and is referenced by URI in a GenerateContent request.
type GeminiProvider struct {
	client       *genai.Client
	model        string
	pollInterval time.Duration
}

// NewGeminiProvider creates a Gemini API client. baseURL overrides the API
// host and is normally empty.
func NewGeminiProvider(ctx context.Context, apiKey, baseURL, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:       client,
		model:        model,
		pollInterval: geminiPollInterval,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Upload sends the file to the Files API and waits until it leaves the
// PROCESSING state.
func (p *GeminiProvider) Upload(ctx context.Context, path, mimeType string) (*RemoteFile, error) {
	file, err := p.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType: mimeType,
	})
	if err != nil {
		return nil, err
	}

	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			p.deleteQuietly(file.Name)
			return nil, ctx.Err()
		case <-time.After(p.pollInterval):
		}
		next, err := p.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			p.deleteQuietly(file.Name)
			return nil, fmt.Errorf("polling upload state: %w", err)
		}
		file = next
	}
	if file.State == genai.FileStateFailed {
		p.deleteQuietly(file.Name)
		return nil, fmt.Errorf("file %s failed processing", file.Name)
	}

	return &RemoteFile{
		Name:      file.Name,
		URI:       file.URI,
		MIMEType:  file.MIMEType,
		LocalPath: path,
	}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, file *RemoteFile, prompt string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromURI(file.URI, file.MIMEType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (p *GeminiProvider) Delete(ctx context.Context, file *RemoteFile) error {
	if file == nil || file.Name == "" {
		return nil
	}
	_, err := p.client.Files.Delete(ctx, file.Name, nil)
	return err
}

// deleteQuietly drops an upload that never became usable.
func (p *GeminiProvider) deleteQuietly(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	_, _ = p.client.Files.Delete(ctx, name, nil)
}
