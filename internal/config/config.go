package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

// PodcastConfig carries the show identity and conversational shape fed
// into dialogue prompts.
type PodcastConfig struct {
	Name                 string   `yaml:"name"`
	Tagline              string   `yaml:"tagline"`
	ConversationStyle    []string `yaml:"conversation_style"`
	NarratorPersona      string   `yaml:"narrator_persona"`
	QuestionerPersona    string   `yaml:"questioner_persona"`
	EngagementTechniques []string `yaml:"engagement_techniques"`
	UserInstructions     string   `yaml:"user_instructions"`
	OpeningMessage       string   `yaml:"opening_message"`
	EndingMessage        string   `yaml:"ending_message"`
	WordsPerMinute       int      `yaml:"words_per_minute"`
}

type ChunkingConfig struct {
	WordsPerChunk int `yaml:"words_per_chunk"`
	MaxChunks     int `yaml:"max_chunks"`
	MinChunkChars int `yaml:"min_chunk_chars"`
}

type LLMConfig struct {
	Mode          string  `yaml:"mode"` // mock, ollama, openai, exec
	Endpoint      string  `yaml:"endpoint"`
	Command       string  `yaml:"command"`
	Model         string  `yaml:"model"`
	Creativity    float64 `yaml:"creativity"` // 0-2, mapped to sampling temperature
	MaxTokens     int     `yaml:"max_tokens"`
	TimeoutMS     int     `yaml:"timeout_ms"`
	MaxRetries    int     `yaml:"max_retries"`
	HistoryWindow int     `yaml:"history_window"`
}

// VoiceConfig maps one speaker role to a provider voice and an optional
// delivery instruction.
type VoiceConfig struct {
	Voice        string `yaml:"voice"`
	Instructions string `yaml:"instructions"`
}

type TTSConfig struct {
	Enabled    bool        `yaml:"enabled"`
	Provider   string      `yaml:"provider"` // mock, openai, elevenlabs, exec
	Command    string      `yaml:"command"`
	Model      string      `yaml:"model"`
	SampleRate int         `yaml:"sample_rate"`
	Channels   int         `yaml:"channels"`
	GapMS      int         `yaml:"gap_ms"`
	TimeoutMS  int         `yaml:"timeout_ms"`
	MaxRetries int         `yaml:"max_retries"`
	Narrator   VoiceConfig `yaml:"narrator"`
	Questioner VoiceConfig `yaml:"questioner"`
}

type OutputConfig struct {
	AudioDir      string `yaml:"audio_dir"`
	TranscriptDir string `yaml:"transcript_dir"`
	DialogueDir   string `yaml:"dialogue_dir"`
}

type BatchConfig struct {
	Extensions  []string `yaml:"extensions"`
	Concurrency int      `yaml:"max_concurrency"`
	DoneDir     string   `yaml:"done_dir"`
}

type LedgerConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type Config struct {
	AppName     string          `yaml:"app_name"`
	Environment string          `yaml:"environment"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Podcast     PodcastConfig   `yaml:"podcast"`
	Chunking    ChunkingConfig  `yaml:"chunking"`
	LLM         LLMConfig       `yaml:"llm"`
	TTS         TTSConfig       `yaml:"tts"`
	Output      OutputConfig    `yaml:"output"`
	Batch       BatchConfig     `yaml:"batch"`
	Ledger      LedgerConfig    `yaml:"ledger"`
}

func Default() Config {
	return Config{
		AppName:     "docucast",
		Environment: "development",
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Podcast: PodcastConfig{
			Name:                 "DOCUCAST",
			Tagline:              "Your Personal Generative AI Podcast",
			ConversationStyle:    []string{"engaging", "fast-paced", "enthusiastic"},
			NarratorPersona:      "main summarizer",
			QuestionerPersona:    "questioner/clarifier",
			EngagementTechniques: []string{"rhetorical questions", "anecdotes", "analogies"},
			OpeningMessage:       "Welcome to {name} - {tagline}! Today we are diving into a document you shared with us.",
			EndingMessage:        "That wraps up this episode of {name}. Thanks for listening, and see you next time!",
			WordsPerMinute:       150,
		},
		Chunking: ChunkingConfig{
			WordsPerChunk: 700,
			MaxChunks:     8,
			MinChunkChars: 600,
		},
		LLM: LLMConfig{
			Mode:          "mock",
			Endpoint:      "http://localhost:11434",
			Model:         "llama3.2:latest",
			Creativity:    1.0,
			MaxTokens:     4096,
			TimeoutMS:     60000,
			MaxRetries:    3,
			HistoryWindow: 10,
		},
		TTS: TTSConfig{
			Enabled:    false,
			Provider:   "mock",
			Model:      "gpt-4o-mini-tts",
			SampleRate: 24000,
			Channels:   1,
			GapMS:      500,
			TimeoutMS:  45000,
			MaxRetries: 2,
			Narrator:   VoiceConfig{Voice: "alloy", Instructions: "Speak in a warm, confident narrator tone."},
			Questioner: VoiceConfig{Voice: "echo", Instructions: "Speak in a curious, conversational tone."},
		},
		Output: OutputConfig{
			AudioDir:      "./data/audio",
			TranscriptDir: "./data/transcripts",
			DialogueDir:   "./data/dialogue",
		},
		Batch: BatchConfig{
			Extensions:  []string{".txt", ".md"},
			Concurrency: 1,
			DoneDir:     "done",
		},
		Ledger: LedgerConfig{
			Enabled:       false,
			Path:          "./data/docucast-runs.db",
			RetentionDays: 30,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.AppName, "DOCUCAST_APP_NAME")
	overrideString(&cfg.Environment, "DOCUCAST_ENVIRONMENT")
	overrideString(&cfg.Telemetry.LogLevel, "DOCUCAST_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "DOCUCAST_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "DOCUCAST_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Podcast.Name, "DOCUCAST_PODCAST_NAME")
	overrideString(&cfg.Podcast.Tagline, "DOCUCAST_PODCAST_TAGLINE")
	overrideStringSlice(&cfg.Podcast.ConversationStyle, "DOCUCAST_PODCAST_CONVERSATION_STYLE")
	overrideString(&cfg.Podcast.NarratorPersona, "DOCUCAST_PODCAST_NARRATOR_PERSONA")
	overrideString(&cfg.Podcast.QuestionerPersona, "DOCUCAST_PODCAST_QUESTIONER_PERSONA")
	overrideString(&cfg.Podcast.UserInstructions, "DOCUCAST_PODCAST_USER_INSTRUCTIONS")
	overrideInt(&cfg.Podcast.WordsPerMinute, "DOCUCAST_PODCAST_WORDS_PER_MINUTE")
	overrideInt(&cfg.Chunking.WordsPerChunk, "DOCUCAST_CHUNKING_WORDS_PER_CHUNK")
	overrideInt(&cfg.Chunking.MaxChunks, "DOCUCAST_CHUNKING_MAX_CHUNKS")
	overrideInt(&cfg.Chunking.MinChunkChars, "DOCUCAST_CHUNKING_MIN_CHUNK_CHARS")
	overrideString(&cfg.LLM.Mode, "DOCUCAST_LLM_MODE")
	overrideString(&cfg.LLM.Endpoint, "DOCUCAST_LLM_ENDPOINT")
	overrideString(&cfg.LLM.Command, "DOCUCAST_LLM_COMMAND")
	overrideString(&cfg.LLM.Model, "DOCUCAST_LLM_MODEL")
	overrideFloat(&cfg.LLM.Creativity, "DOCUCAST_LLM_CREATIVITY")
	overrideInt(&cfg.LLM.MaxTokens, "DOCUCAST_LLM_MAX_TOKENS")
	overrideInt(&cfg.LLM.TimeoutMS, "DOCUCAST_LLM_TIMEOUT_MS")
	overrideInt(&cfg.LLM.MaxRetries, "DOCUCAST_LLM_MAX_RETRIES")
	overrideInt(&cfg.LLM.HistoryWindow, "DOCUCAST_LLM_HISTORY_WINDOW")
	overrideBool(&cfg.TTS.Enabled, "DOCUCAST_TTS_ENABLED")
	overrideString(&cfg.TTS.Provider, "DOCUCAST_TTS_PROVIDER")
	overrideString(&cfg.TTS.Command, "DOCUCAST_TTS_COMMAND")
	overrideString(&cfg.TTS.Model, "DOCUCAST_TTS_MODEL")
	overrideInt(&cfg.TTS.SampleRate, "DOCUCAST_TTS_SAMPLE_RATE")
	overrideInt(&cfg.TTS.Channels, "DOCUCAST_TTS_CHANNELS")
	overrideInt(&cfg.TTS.GapMS, "DOCUCAST_TTS_GAP_MS")
	overrideInt(&cfg.TTS.TimeoutMS, "DOCUCAST_TTS_TIMEOUT_MS")
	overrideInt(&cfg.TTS.MaxRetries, "DOCUCAST_TTS_MAX_RETRIES")
	overrideString(&cfg.TTS.Narrator.Voice, "DOCUCAST_TTS_NARRATOR_VOICE")
	overrideString(&cfg.TTS.Questioner.Voice, "DOCUCAST_TTS_QUESTIONER_VOICE")
	overrideString(&cfg.Output.AudioDir, "DOCUCAST_OUTPUT_AUDIO_DIR")
	overrideString(&cfg.Output.TranscriptDir, "DOCUCAST_OUTPUT_TRANSCRIPT_DIR")
	overrideString(&cfg.Output.DialogueDir, "DOCUCAST_OUTPUT_DIALOGUE_DIR")
	overrideStringSlice(&cfg.Batch.Extensions, "DOCUCAST_BATCH_EXTENSIONS")
	overrideInt(&cfg.Batch.Concurrency, "DOCUCAST_BATCH_MAX_CONCURRENCY")
	overrideString(&cfg.Batch.DoneDir, "DOCUCAST_BATCH_DONE_DIR")
	overrideBool(&cfg.Ledger.Enabled, "DOCUCAST_LEDGER_ENABLED")
	overrideString(&cfg.Ledger.Path, "DOCUCAST_LEDGER_PATH")
	overrideInt(&cfg.Ledger.RetentionDays, "DOCUCAST_LEDGER_RETENTION_DAYS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.AppName == "" {
		return errors.New("app_name must not be empty")
	}
	if cfg.Podcast.Name == "" {
		return errors.New("podcast.name must not be empty")
	}
	if cfg.Podcast.WordsPerMinute <= 0 {
		return errors.New("podcast.words_per_minute must be positive")
	}
	if cfg.Chunking.WordsPerChunk <= 0 {
		return errors.New("chunking.words_per_chunk must be positive")
	}
	if cfg.Chunking.MaxChunks <= 0 {
		return errors.New("chunking.max_chunks must be >= 1")
	}
	if cfg.Chunking.MinChunkChars < 0 {
		return errors.New("chunking.min_chunk_chars must be >= 0")
	}
	switch cfg.LLM.Mode {
	case "mock", "ollama", "openai", "exec":
	default:
		return errors.New("llm.mode must be one of mock|ollama|openai|exec")
	}
	if cfg.LLM.Mode == "ollama" && cfg.LLM.Endpoint == "" {
		return errors.New("llm.endpoint must be set when mode=ollama")
	}
	if cfg.LLM.Mode == "exec" && cfg.LLM.Command == "" {
		return errors.New("llm.command must be set when mode=exec")
	}
	if cfg.LLM.Creativity < 0 || cfg.LLM.Creativity > 2 {
		return errors.New("llm.creativity must be between 0 and 2")
	}
	if cfg.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens must be >= 0")
	}
	if cfg.LLM.MaxRetries < 0 {
		return errors.New("llm.max_retries must be >= 0")
	}
	if cfg.LLM.HistoryWindow <= 0 {
		return errors.New("llm.history_window must be >= 1")
	}
	if cfg.TTS.Enabled {
		switch cfg.TTS.Provider {
		case "mock", "openai", "elevenlabs", "exec":
		default:
			return errors.New("tts.provider must be one of mock|openai|elevenlabs|exec")
		}
		if cfg.TTS.Provider == "exec" && cfg.TTS.Command == "" {
			return errors.New("tts.command must be set when provider=exec")
		}
		if cfg.TTS.SampleRate <= 0 {
			return errors.New("tts.sample_rate must be positive")
		}
		if cfg.TTS.Channels <= 0 {
			return errors.New("tts.channels must be positive")
		}
		if cfg.TTS.GapMS < 0 {
			return errors.New("tts.gap_ms must be >= 0")
		}
		if cfg.TTS.Narrator.Voice == "" || cfg.TTS.Questioner.Voice == "" {
			return errors.New("tts voices must be set for both narrator and questioner")
		}
	}
	if cfg.Batch.Concurrency <= 0 {
		return errors.New("batch.max_concurrency must be >= 1")
	}
	if cfg.Batch.DoneDir == "" {
		return errors.New("batch.done_dir must not be empty")
	}
	if len(cfg.Batch.Extensions) == 0 {
		return errors.New("batch.extensions must not be empty")
	}
	if cfg.Ledger.Enabled {
		if cfg.Ledger.Path == "" {
			return errors.New("ledger.path must not be empty when ledger is enabled")
		}
		if cfg.Ledger.RetentionDays < 0 {
			return errors.New("ledger.retention_days must be >= 0")
		}
	}
	return nil
}

// Temperature maps the user-facing creativity knob (0-2) onto the sampling
// temperature range 0.5-1.5.
func (c LLMConfig) Temperature() float64 {
	return c.Creativity*0.5 + 0.5
}
