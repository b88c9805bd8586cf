package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
)

// Both Groq and OpenAI expose whisper behind the same OpenAI-compatible
// audio/transcriptions endpoint, so one client serves both providers.
type whisperProvider struct {
	name     string
	apiKey   string
	baseURL  string
	model    string
	fileName string
	mimeType string
	client   *http.Client
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewGroqWhisperProvider(apiKey, model string) Provider {
	if model == "" {
		model = "whisper-large-v3"
	}
	return &whisperProvider{
		name:     "groq",
		apiKey:   apiKey,
		baseURL:  "https://api.groq.com/openai/v1",
		model:    model,
		fileName: "audio.webm",
		mimeType: "audio/webm",
		client:   &http.Client{},
	}
}

func NewOpenAIWhisperProvider(apiKey, model string) Provider {
	if model == "" {
		model = "whisper-1"
	}
	return &whisperProvider{
		name:     "openai",
		apiKey:   apiKey,
		baseURL:  "https://api.openai.com/v1",
		model:    model,
		fileName: "audio.webm",
		mimeType: "audio/webm",
		client:   &http.Client{},
	}
}

func (p *whisperProvider) Name() string {
	return p.name
}

func (p *whisperProvider) Configured() bool {
	return p.apiKey != ""
}

func (p *whisperProvider) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if p.apiKey == "" {
		return "", &ProviderError{
			Provider: p.name,
			Kind:     KindAuth,
			Err:      errors.New("API key is not configured"),
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, p.fileName))
	header.Set("Content-Type", p.mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", p.wrap(KindOther, err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", p.wrap(KindOther, err)
	}
	if err := writer.WriteField("model", p.model); err != nil {
		return "", p.wrap(KindOther, err)
	}
	if err := writer.Close(); err != nil {
		return "", p.wrap(KindOther, err)
	}

	url := fmt.Sprintf("%s/audio/transcriptions", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return "", p.wrap(KindOther, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return "", p.classifyTransportError(err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", p.classifyStatus(resp.StatusCode, string(bodyBytes))
	}

	var result transcriptionResponse
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return "", p.wrap(KindOther, fmt.Errorf("failed to decode response: %w", err))
	}
	if result.Error != nil {
		return "", p.wrap(KindOther, errors.New(result.Error.Message))
	}

	return result.Text, nil
}

func (p *whisperProvider) wrap(kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: p.name, Kind: kind, Err: err}
}

func (p *whisperProvider) classifyTransportError(err error) *ProviderError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return p.wrap(KindTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return p.wrap(KindTimeout, err)
	}
	return p.wrap(KindNetwork, err)
}

func (p *whisperProvider) classifyStatus(status int, body string) *ProviderError {
	message := strings.TrimSpace(body)
	if len(message) > 200 {
		message = message[:200]
	}
	err := fmt.Errorf("api error (status %d): %s", status, message)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return p.wrap(KindAuth, err)
	case status == http.StatusTooManyRequests:
		return p.wrap(KindRateLimit, err)
	case status >= 500:
		return p.wrap(KindServer, err)
	default:
		return p.wrap(KindOther, err)
	}
}
