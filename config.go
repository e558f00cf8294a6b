package comms

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/itaame/MCC-COMMS/source"
)

// DelayConfig controls the release delay policy.
type DelayConfig struct {
	// Enabled turns the release delay on at startup. Operators normally
	// flip it at runtime with ToggleDelay.
	Enabled bool `yaml:"enabled"`

	// Delay is how long a demoted or released talker stays keyed, and how
	// long a new talker waits before keying. Zero is a valid setting: an
	// enabled delay then holds nothing back. SetDefaults never fills it in;
	// start from DefaultConfig to get the stock value.
	//
	// Default: 3 seconds (DefaultConfig)
	Delay time.Duration `yaml:"delay"`

	// Mode selects who waits out delayed mute and leave commands:
	// "local" schedules them in this process, "worker" sends the bots'
	// *_after_delay commands and lets each bot wait. Talk is always
	// scheduled locally.
	//
	// Default: local
	Mode DelayMode `yaml:"mode"`
}

// NATSConfig configures the optional channel view mirror.
type NATSConfig struct {
	// URL of the NATS server. Empty disables the mirror.
	URL string `yaml:"url"`

	// Bucket is the JetStream KV bucket the view is written to.
	Bucket string `yaml:"bucket"`

	// Timeout bounds connecting and each write pass.
	Timeout time.Duration `yaml:"timeout"`
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Config is the configuration for the Coordinator and the mcc-comms binary.
//
// All duration fields accept standard Go duration strings like "500ms", "3s".
type Config struct {
	// Role is the console role. It selects the loops_<ROLE>.txt catalog
	// and prefixes the NATS view keys.
	//
	// Default: FLIGHT
	Role string `yaml:"role"`

	// LoopsDir is the directory holding the catalog files.
	//
	// Default: LOOPS
	LoopsDir string `yaml:"loopsDir"`

	// ListenAddr is the HTTP listen address of the control API.
	//
	// Default: :8080
	ListenAddr string `yaml:"listenAddr"`

	// Bots is the fixed speaker roster. Order matters: it breaks ties when
	// picking an idle bot and decides which bot wins when two report the
	// same loop.
	Bots []Bot `yaml:"bots"`

	// Delay controls the release delay policy.
	Delay DelayConfig `yaml:"delay"`

	// CommandTimeout bounds each control command sent to a bot.
	//
	// Default: 2 seconds
	CommandTimeout time.Duration `yaml:"commandTimeout"`

	// StatusTimeout bounds each bot's GET /status during a refresh.
	//
	// Default: 500 milliseconds
	StatusTimeout time.Duration `yaml:"statusTimeout"`

	// StatusInterval is the background occupancy refresh period.
	// A negative value disables the background loop; the status endpoint
	// still refreshes on demand.
	//
	// Default: 2 seconds
	StatusInterval time.Duration `yaml:"statusInterval"`

	// ShutdownTimeout bounds Stop, including pending delayed commands.
	//
	// Default: 10 seconds
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// The roster matches a single-console install: three bots on localhost
// ports 6001-6003.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		Role:       source.DefaultRole,
		LoopsDir:   "LOOPS",
		ListenAddr: ":8080",
		Bots:       DefaultBots(),
		Delay: DelayConfig{
			Enabled: false,
			Delay:   3 * time.Second,
			Mode:    DelayModeLocal,
		},
		CommandTimeout:  2 * time.Second,
		StatusTimeout:   500 * time.Millisecond,
		StatusInterval:  2 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		NATS: NATSConfig{
			Bucket:  "mcc-comms-view",
			Timeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "mcc_comms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultBots returns the stock three-bot roster.
func DefaultBots() []Bot {
	return []Bot{
		{Name: "BOT1", Endpoint: "http://127.0.0.1:6001"},
		{Name: "BOT2", Endpoint: "http://127.0.0.1:6002"},
		{Name: "BOT3", Endpoint: "http://127.0.0.1:6003"},
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	cfg.Role = source.NormalizeRole(cfg.Role)
	if cfg.LoopsDir == "" {
		cfg.LoopsDir = defaults.LoopsDir
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaults.ListenAddr
	}
	if len(cfg.Bots) == 0 {
		cfg.Bots = defaults.Bots
	}
	if cfg.Delay.Mode == "" {
		cfg.Delay.Mode = defaults.Delay.Mode
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = defaults.CommandTimeout
	}
	if cfg.StatusTimeout == 0 {
		cfg.StatusTimeout = defaults.StatusTimeout
	}
	if cfg.StatusInterval == 0 {
		cfg.StatusInterval = defaults.StatusInterval
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.NATS.Bucket == "" {
		cfg.NATS.Bucket = defaults.NATS.Bucket
	}
	if cfg.NATS.Timeout == 0 {
		cfg.NATS.Timeout = defaults.NATS.Timeout
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaults.Metrics.Namespace
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
	// Note: Delay.Enabled and Metrics.Enabled are plain booleans, false is a valid choice.
	// Delay.Delay is left alone for the same reason: 0 is a valid delay.
}

// Validate checks configuration constraints and returns error for invalid values.
//
// Hard Validation Rules:
//   - At least one bot, each with a unique non-empty name and an endpoint
//   - Delay >= 0 and Mode is "local" or "worker"
//   - CommandTimeout, StatusTimeout and ShutdownTimeout > 0
//   - NATS.Bucket set whenever NATS.URL is set
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if len(cfg.Bots) == 0 {
		return ErrEmptyRoster
	}

	seen := make(map[string]struct{}, len(cfg.Bots))
	for i, b := range cfg.Bots {
		if b.Name == "" {
			return fmt.Errorf("bots[%d]: name is required", i)
		}
		if b.Endpoint == "" {
			return fmt.Errorf("bots[%d] (%s): endpoint is required", i, b.Name)
		}
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("bots[%d]: duplicate bot name %q", i, b.Name)
		}
		seen[b.Name] = struct{}{}
	}

	if cfg.Delay.Delay < 0 {
		return fmt.Errorf("Delay.Delay must be >= 0, got %v", cfg.Delay.Delay)
	}
	if !cfg.Delay.Mode.Valid() {
		return fmt.Errorf("Delay.Mode must be %q or %q, got %q", DelayModeLocal, DelayModeWorker, cfg.Delay.Mode)
	}

	if cfg.CommandTimeout <= 0 {
		return fmt.Errorf("CommandTimeout must be > 0, got %v", cfg.CommandTimeout)
	}
	if cfg.StatusTimeout <= 0 {
		return fmt.Errorf("StatusTimeout must be > 0, got %v", cfg.StatusTimeout)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("ShutdownTimeout must be > 0, got %v", cfg.ShutdownTimeout)
	}

	if cfg.NATS.URL != "" && cfg.NATS.Bucket == "" {
		return errors.New("NATS.Bucket is required when NATS.URL is set")
	}

	return nil
}

// ValidateWithWarnings logs warnings for values that are legal but unusual.
//
// This is called after Validate() in New() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if !source.IsKnownRole(cfg.Role) {
		logger.Warn(
			"role has no stock catalog",
			"role", cfg.Role,
			"known", strings.Join(source.KnownRoles, ","),
		)
	}

	if cfg.StatusInterval > 0 && cfg.StatusTimeout >= cfg.StatusInterval {
		logger.Warn(
			"StatusTimeout is not shorter than StatusInterval, refreshes may overlap",
			"statusTimeout", cfg.StatusTimeout,
			"statusInterval", cfg.StatusInterval,
		)
	}

	if cfg.Delay.Delay > 30*time.Second {
		logger.Warn(
			"release delay is very long",
			"delay", cfg.Delay.Delay,
			"recommended", "3s",
		)
	}
}

// TestConfig returns a configuration optimized for fast test execution.
//
// The background status loop is disabled and the delay is short so tests
// can drive refreshes and delayed commands explicitly.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := comms.TestConfig()
//	cfg.Bots = []comms.Bot{bot1.Bot(), bot2.Bot()}
//	coord, err := comms.New(&cfg, source.NewStatic(channels))
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Delay.Delay = 50 * time.Millisecond
	cfg.CommandTimeout = time.Second
	cfg.StatusTimeout = 200 * time.Millisecond
	cfg.StatusInterval = -1
	cfg.ShutdownTimeout = 2 * time.Second
	cfg.Metrics.Enabled = false

	return cfg
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
//
// Fields absent from the file keep their default. A bots list in the file
// replaces the default roster entirely.
//
// Parameters:
//   - path: YAML file path
//
// Returns:
//   - Config: Parsed configuration
//   - error: File unreadable or not valid YAML
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	cfg.Bots = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// EnvConfig holds environment overrides.
//
// ROLE is read without a prefix so the launcher's existing variable keeps
// working. Unset variables leave the file configuration alone.
type EnvConfig struct {
	Role           string         `env:"ROLE"`
	LoopsDir       string         `env:"MCC_COMMS_LOOPS_DIR"`
	ListenAddr     string         `env:"MCC_COMMS_LISTEN_ADDR"`
	Bots           []string       `env:"MCC_COMMS_BOTS" envSeparator:","`
	DelayEnabled   *bool          `env:"MCC_COMMS_DELAY_ENABLED"`
	Delay          *time.Duration `env:"MCC_COMMS_DELAY"`
	DelayMode      string         `env:"MCC_COMMS_DELAY_MODE"`
	NATSURL        string         `env:"MCC_COMMS_NATS_URL"`
	NATSBucket     string         `env:"MCC_COMMS_NATS_BUCKET"`
	MetricsEnabled *bool          `env:"MCC_COMMS_METRICS_ENABLED"`
	LogLevel       string         `env:"MCC_COMMS_LOG_LEVEL"`
	LogFormat      string         `env:"MCC_COMMS_LOG_FORMAT"`
}

// LoadEnv parses EnvConfig from the process environment.
func LoadEnv() (EnvConfig, error) {
	var e EnvConfig
	if err := env.Parse(&e); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}

	return e, nil
}

// Apply overlays every set field of e onto cfg.
//
// Parameters:
//   - cfg: Config to modify in place
//
// Returns:
//   - error: MCC_COMMS_BOTS is malformed
func (e EnvConfig) Apply(cfg *Config) error {
	if e.Role != "" {
		cfg.Role = e.Role
	}
	if e.LoopsDir != "" {
		cfg.LoopsDir = e.LoopsDir
	}
	if e.ListenAddr != "" {
		cfg.ListenAddr = e.ListenAddr
	}
	if len(e.Bots) > 0 {
		bots, err := ParseBots(e.Bots)
		if err != nil {
			return fmt.Errorf("MCC_COMMS_BOTS: %w", err)
		}
		cfg.Bots = bots
	}
	if e.DelayEnabled != nil {
		cfg.Delay.Enabled = *e.DelayEnabled
	}
	if e.Delay != nil {
		cfg.Delay.Delay = *e.Delay
	}
	if e.DelayMode != "" {
		cfg.Delay.Mode = DelayMode(e.DelayMode)
	}
	if e.NATSURL != "" {
		cfg.NATS.URL = e.NATSURL
	}
	if e.NATSBucket != "" {
		cfg.NATS.Bucket = e.NATSBucket
	}
	if e.MetricsEnabled != nil {
		cfg.Metrics.Enabled = *e.MetricsEnabled
	}
	if e.LogLevel != "" {
		cfg.Logging.Level = e.LogLevel
	}
	if e.LogFormat != "" {
		cfg.Logging.Format = e.LogFormat
	}

	return nil
}

// ParseBots parses NAME=URL pairs into a roster, keeping their order.
//
// Parameters:
//   - entries: Entries like "BOT1=http://127.0.0.1:6001"
//
// Returns:
//   - []Bot: Roster in input order
//   - error: An entry is missing its name or URL
func ParseBots(entries []string) ([]Bot, error) {
	bots := make([]Bot, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, endpoint, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		endpoint = strings.TrimSpace(endpoint)
		if !ok || name == "" || endpoint == "" {
			return nil, fmt.Errorf("bot %q: want NAME=URL", entry)
		}
		bots = append(bots, Bot{Name: name, Endpoint: endpoint})
	}

	return bots, nil
}
