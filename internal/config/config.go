package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StorageDriver selects the durable store backend.
type StorageDriver string

const (
	DriverSQLite StorageDriver = "sqlite"
	DriverBadger StorageDriver = "badger"
)

// Config is the full configuration surface. Every recognized option and
// its default lives here; absent options are not errors, the defaults
// are materialized and used. Unrecognized keys in the config file are
// rejected at load time.
type Config struct {
	Model      string `json:"model"`       // inference model id requested by the single-loop engine
	BackendURL string `json:"backend_url"` // inference endpoint (Ollama / OpenAI-compatible)

	StorageDriver StorageDriver `json:"storage_driver"` // sqlite | badger
	StoragePath   string        `json:"storage_path"`   // durable store location
	OutputDir     string        `json:"output_dir"`     // derived artifacts (golden markdown, summaries)

	// InterestThreshold is advisory for display purposes; the gold-flag
	// disjunction in the scorer is the authoritative gate.
	InterestThreshold float64 `json:"interest_threshold"`

	LoopInterval          Duration `json:"loop_interval"`            // pacing for single-loop mode
	MaxThoughtsPerSession int      `json:"max_thoughts_per_session"` // single-loop termination cap
	MaxExchanges          int      `json:"max_exchanges"`            // conversation termination cap

	AgentCount int      `json:"agent_count"`
	ModelPool  []string `json:"model_pool"` // round-robin assignment to agents at creation

	AgentBufferCap int `json:"agent_buffer_cap"` // per-agent recent-message buffer
	ShortTermCap   int `json:"short_term_cap"`   // short-term ring buffer
	ChannelCap     int `json:"channel_cap"`      // bounded outbound channel

	MonitorAddr string `json:"monitor_addr"` // read API listen address, empty disables

	RedisURL  string `json:"redis_url"`  // optional live-feed mirror, empty disables
	DgraphURL string `json:"dgraph_url"` // optional gold-strike lineage graph, empty disables
}

// Duration is a time.Duration that unmarshals from JSON strings like
// "5s" or bare numbers of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
		return nil
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration value %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration with every default materialized.
func Default() *Config {
	return &Config{
		Model:                 "gemma2:2b",
		BackendURL:            "http://localhost:11434",
		StorageDriver:         DriverSQLite,
		StoragePath:           "reverie_memory.db",
		OutputDir:             "reverie_outputs",
		InterestThreshold:     0.4,
		LoopInterval:          Duration(5 * time.Second),
		MaxThoughtsPerSession: 100,
		MaxExchanges:          20,
		AgentCount:            3,
		ModelPool:             []string{"gemma2:2b", "qwen2.5:1.5b", "phi3:mini"},
		AgentBufferCap:        10,
		ShortTermCap:          20,
		ChannelCap:            256,
		MonitorAddr:           "",
		RedisURL:              "",
		DgraphURL:             "",
	}
}

// Load reads the config file at path (if it exists) over the defaults,
// then applies REVERIE_* environment overrides. A missing file is not an
// error; an unrecognized key in the file is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults apply
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			dec := json.NewDecoder(strings.NewReader(string(data)))
			dec.DisallowUnknownFields()
			if err := dec.Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("REVERIE_MODEL")); v != "" {
		c.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("REVERIE_BACKEND_URL")); v != "" {
		c.BackendURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REVERIE_STORAGE_PATH")); v != "" {
		c.StoragePath = v
	}
	if v := strings.TrimSpace(os.Getenv("REVERIE_STORAGE_DRIVER")); v != "" {
		c.StorageDriver = StorageDriver(v)
	}
	if v := strings.TrimSpace(os.Getenv("REVERIE_OUTPUT_DIR")); v != "" {
		c.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv("REVERIE_MONITOR_ADDR")); v != "" {
		c.MonitorAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REVERIE_REDIS_URL")); v != "" {
		c.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REVERIE_DGRAPH_URL")); v != "" {
		c.DgraphURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REVERIE_AGENT_COUNT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REVERIE_AGENT_COUNT %q: %w", v, err)
		}
		c.AgentCount = n
	}
	if v := strings.TrimSpace(os.Getenv("REVERIE_MAX_EXCHANGES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REVERIE_MAX_EXCHANGES %q: %w", v, err)
		}
		c.MaxExchanges = n
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverSQLite, DriverBadger:
	default:
		return fmt.Errorf("unknown storage_driver %q", c.StorageDriver)
	}
	if c.ShortTermCap <= 0 {
		return fmt.Errorf("short_term_cap must be positive, got %d", c.ShortTermCap)
	}
	if c.AgentBufferCap <= 0 {
		return fmt.Errorf("agent_buffer_cap must be positive, got %d", c.AgentBufferCap)
	}
	if c.ChannelCap <= 0 {
		return fmt.Errorf("channel_cap must be positive, got %d", c.ChannelCap)
	}
	if c.AgentCount < 1 {
		return fmt.Errorf("agent_count must be at least 1, got %d", c.AgentCount)
	}
	if len(c.ModelPool) == 0 {
		c.ModelPool = []string{c.Model}
	}
	return nil
}
