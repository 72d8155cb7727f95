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

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type AudioConfig struct {
	SampleRate    int `yaml:"sample_rate"`
	ChunkMS       int `yaml:"chunk_ms"`
	OverlapMS     int `yaml:"overlap_ms"`
	MinDurationMS int `yaml:"min_duration_ms"`
}

type VerifyConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Mode          string  `yaml:"mode"` // mock, exec
	Command       string  `yaml:"command"`
	ModelPath     string  `yaml:"model_path"`
	EmbeddingPath string  `yaml:"embedding_path"`
	Threshold     float64 `yaml:"threshold"`
	WindowMS      int     `yaml:"window_ms"`
}

type EngineConfig struct {
	Mode          string `yaml:"mode"` // mock, exec, cloud, whisper
	Command       string `yaml:"command"`
	ModelPath     string `yaml:"model_path"`
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Language      string `yaml:"language"`
	CallTimeoutMS int    `yaml:"call_timeout_ms"`
}

type FormatConfig struct {
	FillerWords []string `yaml:"filler_words"`
}

type SessionConfig struct {
	TimeoutMS int `yaml:"timeout_ms"`
	PollMS    int `yaml:"poll_ms"`
}

type StatusConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SocketPath string `yaml:"socket_path"`
	ModuleID   string `yaml:"module_id"`
}

type SinkConfig struct {
	Mode    string `yaml:"mode"` // mock, exec
	Command string `yaml:"command"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	DaemonName  string          `yaml:"daemon_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Audio       AudioConfig     `yaml:"audio"`
	Verify      VerifyConfig    `yaml:"verify"`
	Engine      EngineConfig    `yaml:"engine"`
	Format      FormatConfig    `yaml:"format"`
	Session     SessionConfig   `yaml:"session"`
	Status      StatusConfig    `yaml:"status"`
	Sink        SinkConfig      `yaml:"sink"`
	History     HistoryConfig   `yaml:"history"`
}

func Default() Config {
	return Config{
		DaemonName:  "hisohisod",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "127.0.0.1",
			Port: 8090,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Audio: AudioConfig{
			SampleRate:    16000,
			ChunkMS:       1500,
			OverlapMS:     200,
			MinDurationMS: 500,
		},
		Verify: VerifyConfig{
			Enabled:   false,
			Mode:      "mock",
			Threshold: 0.75,
			WindowMS:  1500,
		},
		Engine: EngineConfig{
			Mode:          "mock",
			Language:      "en",
			CallTimeoutMS: 30000,
		},
		Format: FormatConfig{
			FillerWords: []string{"um", "uh", "you know"},
		},
		Session: SessionConfig{
			TimeoutMS: 60000,
			PollMS:    50,
		},
		Status: StatusConfig{
			Enabled:    true,
			SocketPath: "/tmp/hisohiso-status.sock",
			ModuleID:   "hisohiso",
		},
		Sink: SinkConfig{
			Mode: "mock",
		},
		History: HistoryConfig{
			Path:          "./data/hisohiso-history.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
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
	overrideString(&cfg.DaemonName, "HISOHISO_DAEMON_NAME")
	overrideString(&cfg.Environment, "HISOHISO_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "HISOHISO_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "HISOHISO_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "HISOHISO_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "HISOHISO_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "HISOHISO_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "HISOHISO_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "HISOHISO_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "HISOHISO_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "HISOHISO_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "HISOHISO_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "HISOHISO_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "HISOHISO_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "HISOHISO_BUS_CONNECT_TIMEOUT_MS")
	overrideInt(&cfg.Audio.SampleRate, "HISOHISO_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.ChunkMS, "HISOHISO_AUDIO_CHUNK_MS")
	overrideInt(&cfg.Audio.OverlapMS, "HISOHISO_AUDIO_OVERLAP_MS")
	overrideInt(&cfg.Audio.MinDurationMS, "HISOHISO_AUDIO_MIN_DURATION_MS")
	overrideBool(&cfg.Verify.Enabled, "HISOHISO_VERIFY_ENABLED")
	overrideString(&cfg.Verify.Mode, "HISOHISO_VERIFY_MODE")
	overrideString(&cfg.Verify.Command, "HISOHISO_VERIFY_COMMAND")
	overrideString(&cfg.Verify.ModelPath, "HISOHISO_VERIFY_MODEL_PATH")
	overrideString(&cfg.Verify.EmbeddingPath, "HISOHISO_VERIFY_EMBEDDING_PATH")
	overrideFloat(&cfg.Verify.Threshold, "HISOHISO_VERIFY_THRESHOLD")
	overrideInt(&cfg.Verify.WindowMS, "HISOHISO_VERIFY_WINDOW_MS")
	overrideString(&cfg.Engine.Mode, "HISOHISO_ENGINE_MODE")
	overrideString(&cfg.Engine.Command, "HISOHISO_ENGINE_COMMAND")
	overrideString(&cfg.Engine.ModelPath, "HISOHISO_ENGINE_MODEL_PATH")
	overrideString(&cfg.Engine.Endpoint, "HISOHISO_ENGINE_ENDPOINT")
	overrideString(&cfg.Engine.APIKey, "HISOHISO_ENGINE_API_KEY")
	overrideString(&cfg.Engine.Language, "HISOHISO_ENGINE_LANGUAGE")
	overrideInt(&cfg.Engine.CallTimeoutMS, "HISOHISO_ENGINE_CALL_TIMEOUT_MS")
	overrideStringSlice(&cfg.Format.FillerWords, "HISOHISO_FORMAT_FILLER_WORDS")
	overrideInt(&cfg.Session.TimeoutMS, "HISOHISO_SESSION_TIMEOUT_MS")
	overrideInt(&cfg.Session.PollMS, "HISOHISO_SESSION_POLL_MS")
	overrideBool(&cfg.Status.Enabled, "HISOHISO_STATUS_ENABLED")
	overrideString(&cfg.Status.SocketPath, "HISOHISO_STATUS_SOCKET_PATH")
	overrideString(&cfg.Status.ModuleID, "HISOHISO_STATUS_MODULE_ID")
	overrideString(&cfg.Sink.Mode, "HISOHISO_SINK_MODE")
	overrideString(&cfg.Sink.Command, "HISOHISO_SINK_COMMAND")
	overrideString(&cfg.History.Path, "HISOHISO_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "HISOHISO_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "HISOHISO_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxSessions, "HISOHISO_HISTORY_MAX_SESSIONS")
	overrideBool(&cfg.History.VacuumOnStart, "HISOHISO_HISTORY_VACUUM_ON_START")
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

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
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

func validate(cfg Config) error {
	if cfg.DaemonName == "" {
		return errors.New("daemon_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.ChunkMS <= 0 {
		return errors.New("audio.chunk_ms must be positive")
	}
	if cfg.Audio.OverlapMS < 0 {
		return errors.New("audio.overlap_ms must be >= 0")
	}
	if cfg.Audio.OverlapMS >= cfg.Audio.ChunkMS {
		return errors.New("audio.overlap_ms must be smaller than audio.chunk_ms")
	}
	if cfg.Audio.MinDurationMS < 0 {
		return errors.New("audio.min_duration_ms must be >= 0")
	}
	if cfg.Verify.Enabled {
		switch cfg.Verify.Mode {
		case "mock", "exec":
		default:
			return errors.New("verify.mode must be one of mock|exec")
		}
		if cfg.Verify.Mode == "exec" && cfg.Verify.Command == "" {
			return errors.New("verify.command must be set when mode=exec")
		}
		if cfg.Verify.Threshold <= 0 || cfg.Verify.Threshold >= 1 {
			return errors.New("verify.threshold must be in (0, 1)")
		}
		if cfg.Verify.WindowMS <= 0 {
			return errors.New("verify.window_ms must be positive")
		}
	}
	switch cfg.Engine.Mode {
	case "mock", "exec", "cloud", "whisper":
	default:
		return errors.New("engine.mode must be one of mock|exec|cloud|whisper")
	}
	if cfg.Engine.Mode == "exec" && cfg.Engine.Command == "" {
		return errors.New("engine.command must be set when mode=exec")
	}
	if cfg.Engine.Mode == "cloud" && cfg.Engine.Endpoint == "" {
		return errors.New("engine.endpoint must be set when mode=cloud")
	}
	if cfg.Engine.Mode == "whisper" && cfg.Engine.ModelPath == "" {
		return errors.New("engine.model_path must be set when mode=whisper")
	}
	if cfg.Engine.CallTimeoutMS <= 0 {
		return errors.New("engine.call_timeout_ms must be positive")
	}
	if cfg.Session.TimeoutMS <= 0 {
		return errors.New("session.timeout_ms must be positive")
	}
	if cfg.Session.PollMS <= 0 {
		return errors.New("session.poll_ms must be positive")
	}
	if cfg.Status.Enabled {
		if cfg.Status.SocketPath == "" {
			return errors.New("status.socket_path must not be empty when status is enabled")
		}
		if cfg.Status.ModuleID == "" {
			return errors.New("status.module_id must not be empty when status is enabled")
		}
	}
	switch cfg.Sink.Mode {
	case "mock", "exec":
	default:
		return errors.New("sink.mode must be one of mock|exec")
	}
	if cfg.Sink.Mode == "exec" && cfg.Sink.Command == "" {
		return errors.New("sink.command must be set when mode=exec")
	}
	if cfg.History.Path == "" {
		return errors.New("history.path must not be empty")
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("history.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}
