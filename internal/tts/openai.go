package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// openaiPCMRate is fixed by the speech API for pcm responses.
const openaiPCMRate = 24000

type openaiSynth struct {
	client openai.Client
	model  string
}

// NewOpenAISynth builds the cloud speech provider. Responses are
// requested as raw PCM and streamed, so audio bytes begin flowing
// before the full turn's speech is complete. The API only serves PCM at
// one rate, so any other configured rate is rejected up front; letting
// it through would mix sample rates with the renderer's silence
// fallback and desync every downstream timestamp.
func NewOpenAISynth(model string, sampleRate int) (Synthesizer, error) {
	if sampleRate != openaiPCMRate {
		return nil, fmt.Errorf("openai speech serves pcm at %d Hz only, configured %d", openaiPCMRate, sampleRate)
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY must be set when tts provider=openai")
	}
	return &openaiSynth{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (s *openaiSynth) Synthesize(ctx context.Context, req SynthRequest) (Clip, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Clip{}, errors.New("empty text")
	}

	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.model),
		Voice:          openai.AudioSpeechNewParamsVoice(req.Voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if req.Instructions != "" {
		params.Instructions = param.NewOpt(req.Instructions)
	}

	resp, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return Clip{}, fmt.Errorf("openai speech request: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return Clip{}, fmt.Errorf("stream openai speech response: %w", err)
	}
	return Clip{PCM: buf.Bytes(), SampleRate: openaiPCMRate, Channels: 1}, nil
}
