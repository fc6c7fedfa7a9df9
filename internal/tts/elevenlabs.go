package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// elevenLabsRates are the PCM output rates the API offers.
var elevenLabsRates = map[int]bool{16000: true, 22050: true, 24000: true, 44100: true}

type elevenLabsSynth struct {
	apiKey     string
	model      string
	sampleRate int
	httpClient *http.Client
}

// NewElevenLabsSynth builds the subscription speech provider. Output is
// requested as raw PCM at the configured sample rate.
func NewElevenLabsSynth(model string, sampleRate int) (Synthesizer, error) {
	apiKey := os.Getenv("ELEVENLABS_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ELEVENLABS_API_KEY must be set when tts provider=elevenlabs")
	}
	if !elevenLabsRates[sampleRate] {
		return nil, fmt.Errorf("elevenlabs does not offer pcm at %d Hz", sampleRate)
	}
	if model == "" {
		model = "eleven_multilingual_v2"
	}
	return &elevenLabsSynth{
		apiKey:     apiKey,
		model:      model,
		sampleRate: sampleRate,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

func (s *elevenLabsSynth) Synthesize(ctx context.Context, req SynthRequest) (Clip, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Clip{}, errors.New("empty text")
	}

	body, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: s.model})
	if err != nil {
		return Clip{}, err
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=pcm_%d", elevenLabsBaseURL, req.Voice, s.sampleRate)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Clip{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return Clip{}, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Clip{}, fmt.Errorf("elevenlabs returned status %s: %s", resp.Status, detail)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return Clip{}, fmt.Errorf("stream elevenlabs response: %w", err)
	}
	return Clip{PCM: buf.Bytes(), SampleRate: s.sampleRate, Channels: 1}, nil
}
