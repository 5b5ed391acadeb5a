package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind      string `yaml:"bind"`
	Port      int    `yaml:"port"`
	APIPrefix string `yaml:"api_prefix"`
}

type Config struct {
	RuntimeName string            `yaml:"runtime_name"`
	Environment string            `yaml:"environment"`
	HTTP        HTTPConfig        `yaml:"http"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bus         BusConfig         `yaml:"bus"`
	EventStore  EventStoreConfig  `yaml:"event_store"`
	Storage     StorageConfig     `yaml:"storage"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Translation TranslationConfig `yaml:"translation"`
	Codec       CodecConfig       `yaml:"codec"`
	Voices      VoicesConfig      `yaml:"voices"`
	Generator   GeneratorConfig   `yaml:"generator"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

// StorageConfig locates the flat-file roots for audio and audit output.
type StorageConfig struct {
	AudioDir         string `yaml:"audio_dir"`
	RawDataDir       string `yaml:"raw_data_dir"`
	PublicPrefix     string `yaml:"public_prefix"`
	CompressAudit    bool   `yaml:"compress_audit"`
	CompressionLevel int    `yaml:"compression_level"`
}

type ChunkingConfig struct {
	MaxChars     int `yaml:"max_chars"`
	BackendLimit int `yaml:"backend_limit"`
}

type SynthesisConfig struct {
	Mode              string  `yaml:"mode"` // sarvam, mock, exec
	Endpoint          string  `yaml:"endpoint"`
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	Command           string  `yaml:"command"`
	TimeoutMS         int     `yaml:"timeout_ms"`
	Pitch             float64 `yaml:"pitch"`
	Pace              float64 `yaml:"pace"`
	Loudness          float64 `yaml:"loudness"`
	SampleRate        int     `yaml:"sample_rate"`
	Concurrency       int     `yaml:"concurrency"`
	RequestsPerMinute int     `yaml:"requests_per_minute"`
	OutputFormat      string  `yaml:"output_format"`
}

type TranslationConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	Mode      string `yaml:"mode"`
	Model     string `yaml:"model"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type CodecConfig struct {
	FFmpegPath string `yaml:"ffmpeg_path"`
	Bitrate    string `yaml:"bitrate"`
}

// VoicesConfig holds the per-language speaker used when a request names none.
type VoicesConfig struct {
	English string `yaml:"en"`
	Hindi   string `yaml:"hi"`
}

type GeneratorConfig struct {
	Mode           string  `yaml:"mode"` // mock, ollama, exec
	Endpoint       string  `yaml:"endpoint"`
	Command        string  `yaml:"command"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutMS      int     `yaml:"timeout_ms"`
	MinScriptChars int     `yaml:"min_script_chars"`
}

func Default() Config {
	return Config{
		RuntimeName: "podcast-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind:      "0.0.0.0",
			Port:      8000,
			APIPrefix: "/api/v1",
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		EventStore: EventStoreConfig{
			Path:          "./data/podcast-events.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		Storage: StorageConfig{
			AudioDir:         "storage/audio",
			RawDataDir:       "storage/raw_data",
			PublicPrefix:     "/audio",
			CompressionLevel: 3,
		},
		Chunking: ChunkingConfig{
			MaxChars:     500,
			BackendLimit: 500,
		},
		Synthesis: SynthesisConfig{
			Mode:         "sarvam",
			Endpoint:     "https://api.sarvam.ai/text-to-speech",
			Model:        "bulbul:v2",
			TimeoutMS:    60000,
			Pitch:        1.0,
			Pace:         1.0,
			Loudness:     1.5,
			SampleRate:   22050,
			Concurrency:  1,
			OutputFormat: "mp3",
		},
		Translation: TranslationConfig{
			Enabled:   true,
			Endpoint:  "https://api.sarvam.ai/translate",
			Mode:      "formal",
			Model:     "mayura:v1",
			TimeoutMS: 30000,
		},
		Codec: CodecConfig{
			Bitrate: "192k",
		},
		Voices: VoicesConfig{
			English: "sachit",
			Hindi:   "anushka",
		},
		Generator: GeneratorConfig{
			Mode:           "mock",
			Endpoint:       "http://localhost:11434",
			Model:          "llama3.2:latest",
			MaxTokens:      4096,
			Temperature:    0.7,
			TimeoutMS:      180000,
			MinScriptChars: 300,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file, a
// local .env file and finally the process environment.
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

	// a missing .env is normal outside local development
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

const redacted = "[redacted]"

// Redacted returns a copy with credentials masked, suitable for printing.
func (c Config) Redacted() Config {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&c.Bus.Password)
	mask(&c.Bus.Token)
	mask(&c.Synthesis.APIKey)
	mask(&c.Translation.APIKey)
	mask(&c.Generator.APIKey)
	return c
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "PODCAST_RUNTIME_NAME")
	overrideString(&cfg.Environment, "PODCAST_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "PODCAST_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "PODCAST_HTTP_PORT")
	overrideString(&cfg.HTTP.APIPrefix, "PODCAST_HTTP_API_PREFIX")
	overrideString(&cfg.Telemetry.LogLevel, "PODCAST_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "PODCAST_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "PODCAST_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "PODCAST_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "PODCAST_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "PODCAST_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "PODCAST_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "PODCAST_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "PODCAST_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "PODCAST_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "PODCAST_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "PODCAST_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "PODCAST_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "PODCAST_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.EventStore.Path, "PODCAST_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "PODCAST_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "PODCAST_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxSessions, "PODCAST_EVENT_STORE_MAX_SESSIONS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "PODCAST_EVENT_STORE_VACUUM_ON_START")
	overrideString(&cfg.Storage.AudioDir, "PODCAST_AUDIO_STORAGE_PATH")
	overrideString(&cfg.Storage.RawDataDir, "PODCAST_RAW_DATA_STORAGE_PATH")
	overrideString(&cfg.Storage.PublicPrefix, "PODCAST_STORAGE_PUBLIC_PREFIX")
	overrideBool(&cfg.Storage.CompressAudit, "PODCAST_STORAGE_COMPRESS_AUDIT")
	overrideInt(&cfg.Storage.CompressionLevel, "PODCAST_STORAGE_COMPRESSION_LEVEL")
	overrideInt(&cfg.Chunking.MaxChars, "PODCAST_CHUNKING_MAX_CHARS")
	overrideInt(&cfg.Chunking.BackendLimit, "PODCAST_CHUNKING_BACKEND_LIMIT")
	overrideString(&cfg.Synthesis.Mode, "PODCAST_SYNTHESIS_MODE")
	overrideString(&cfg.Synthesis.Endpoint, "PODCAST_SYNTHESIS_ENDPOINT")
	overrideString(&cfg.Synthesis.APIKey, "SARVAM_API_KEY")
	overrideString(&cfg.Synthesis.APIKey, "PODCAST_SYNTHESIS_API_KEY")
	overrideString(&cfg.Synthesis.Model, "PODCAST_SYNTHESIS_MODEL")
	overrideString(&cfg.Synthesis.Command, "PODCAST_SYNTHESIS_COMMAND")
	overrideInt(&cfg.Synthesis.TimeoutMS, "PODCAST_SYNTHESIS_TIMEOUT_MS")
	overrideFloat(&cfg.Synthesis.Pitch, "PODCAST_SYNTHESIS_PITCH")
	overrideFloat(&cfg.Synthesis.Pace, "PODCAST_SYNTHESIS_PACE")
	overrideFloat(&cfg.Synthesis.Loudness, "PODCAST_SYNTHESIS_LOUDNESS")
	overrideInt(&cfg.Synthesis.SampleRate, "PODCAST_SYNTHESIS_SAMPLE_RATE")
	overrideInt(&cfg.Synthesis.Concurrency, "PODCAST_SYNTHESIS_CONCURRENCY")
	overrideInt(&cfg.Synthesis.RequestsPerMinute, "PODCAST_SYNTHESIS_REQUESTS_PER_MINUTE")
	overrideString(&cfg.Synthesis.OutputFormat, "PODCAST_SYNTHESIS_OUTPUT_FORMAT")
	overrideBool(&cfg.Translation.Enabled, "PODCAST_TRANSLATION_ENABLED")
	overrideString(&cfg.Translation.Endpoint, "PODCAST_TRANSLATION_ENDPOINT")
	overrideString(&cfg.Translation.APIKey, "SARVAM_API_KEY")
	overrideString(&cfg.Translation.APIKey, "PODCAST_TRANSLATION_API_KEY")
	overrideString(&cfg.Translation.Mode, "PODCAST_TRANSLATION_MODE")
	overrideString(&cfg.Translation.Model, "PODCAST_TRANSLATION_MODEL")
	overrideInt(&cfg.Translation.TimeoutMS, "PODCAST_TRANSLATION_TIMEOUT_MS")
	overrideString(&cfg.Codec.FFmpegPath, "PODCAST_CODEC_FFMPEG_PATH")
	overrideString(&cfg.Codec.Bitrate, "PODCAST_CODEC_BITRATE")
	overrideString(&cfg.Voices.English, "PODCAST_VOICE_EN")
	overrideString(&cfg.Voices.Hindi, "PODCAST_VOICE_HI")
	overrideString(&cfg.Generator.Mode, "PODCAST_GENERATOR_MODE")
	overrideString(&cfg.Generator.Endpoint, "PODCAST_GENERATOR_ENDPOINT")
	overrideString(&cfg.Generator.Command, "PODCAST_GENERATOR_COMMAND")
	overrideString(&cfg.Generator.Model, "PODCAST_GENERATOR_MODEL")
	overrideString(&cfg.Generator.APIKey, "GEMINI_API_KEY")
	overrideString(&cfg.Generator.APIKey, "PODCAST_GENERATOR_API_KEY")
	overrideInt(&cfg.Generator.MaxTokens, "PODCAST_GENERATOR_MAX_TOKENS")
	overrideFloat(&cfg.Generator.Temperature, "PODCAST_GENERATOR_TEMPERATURE")
	overrideInt(&cfg.Generator.TimeoutMS, "PODCAST_GENERATOR_TIMEOUT_MS")
	overrideInt(&cfg.Generator.MinScriptChars, "PODCAST_GENERATOR_MIN_SCRIPT_CHARS")
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
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if !strings.HasPrefix(cfg.HTTP.APIPrefix, "/") {
		return errors.New("http.api_prefix must start with /")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionMode != "ephemeral" && cfg.EventStore.Path == "" {
		return errors.New("event_store.path must not be empty")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	if cfg.Storage.AudioDir == "" {
		return errors.New("storage.audio_dir must not be empty")
	}
	if cfg.Storage.RawDataDir == "" {
		return errors.New("storage.raw_data_dir must not be empty")
	}
	if cfg.Storage.CompressAudit && (cfg.Storage.CompressionLevel < 1 || cfg.Storage.CompressionLevel > 22) {
		return errors.New("storage.compression_level must be between 1 and 22")
	}
	if cfg.Chunking.MaxChars <= 0 {
		return errors.New("chunking.max_chars must be positive")
	}
	if cfg.Chunking.BackendLimit <= 0 {
		return errors.New("chunking.backend_limit must be positive")
	}
	if cfg.Chunking.MaxChars > cfg.Chunking.BackendLimit {
		return errors.New("chunking.max_chars must not exceed chunking.backend_limit")
	}
	switch cfg.Synthesis.Mode {
	case "sarvam", "mock", "exec":
	default:
		return errors.New("synthesis.mode must be one of sarvam|mock|exec")
	}
	if cfg.Synthesis.Mode == "sarvam" && cfg.Synthesis.Endpoint == "" {
		return errors.New("synthesis.endpoint must be set when mode=sarvam")
	}
	if cfg.Synthesis.Mode == "exec" && cfg.Synthesis.Command == "" {
		return errors.New("synthesis.command must be set when mode=exec")
	}
	if cfg.Synthesis.TimeoutMS <= 0 {
		return errors.New("synthesis.timeout_ms must be positive")
	}
	if cfg.Synthesis.Concurrency <= 0 {
		return errors.New("synthesis.concurrency must be >= 1")
	}
	if cfg.Synthesis.RequestsPerMinute < 0 {
		return errors.New("synthesis.requests_per_minute must be >= 0")
	}
	switch cfg.Synthesis.OutputFormat {
	case "wav", "mp3":
	default:
		return errors.New("synthesis.output_format must be one of wav|mp3")
	}
	if cfg.Voices.English == "" || cfg.Voices.Hindi == "" {
		return errors.New("voices.en and voices.hi must not be empty")
	}
	switch cfg.Generator.Mode {
	case "mock", "ollama", "exec":
	default:
		return errors.New("generator.mode must be one of mock|ollama|exec")
	}
	if cfg.Generator.Mode == "ollama" && cfg.Generator.Endpoint == "" {
		return errors.New("generator.endpoint must be set when mode=ollama")
	}
	if cfg.Generator.Mode == "exec" && cfg.Generator.Command == "" {
		return errors.New("generator.command must be set when mode=exec")
	}
	if cfg.Generator.MinScriptChars < 0 {
		return errors.New("generator.min_script_chars must be >= 0")
	}
	return nil
}
