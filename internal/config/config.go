package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const FileName = "hourglass.yml"

// Config is the workspace configuration read from hourglass.yml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
	Billing BillingConfig `yaml:"billing"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	BasePath string `yaml:"base_path"`
	// AllowDevIdentity accepts an X-User-Id header when no bearer token is sent.
	AllowDevIdentity bool `yaml:"allow_dev_identity"`
}

type AuthConfig struct {
	// JWTSecretEnv names the environment variable holding the HS256 secret.
	JWTSecretEnv string `yaml:"jwt_secret_env"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type BillingConfig struct {
	ActiveOnly     bool   `yaml:"active_only"`
	MaxConcurrency int    `yaml:"max_concurrency"`
	LedgerSource   string `yaml:"ledger_source"`
}

// Load reads the workspace config; a missing file is an error.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with hg init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional reads the workspace config, falling back to defaults when the
// file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

func (c *Config) Validate() error {
	if c.Server.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
			return fmt.Errorf("config.server.addr: %w", err)
		}
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json")
	}
	if c.Billing.MaxConcurrency < 0 {
		return fmt.Errorf("config.billing.max_concurrency must be >= 0")
	}
	switch c.Billing.LedgerSource {
	case "", "embedded", "invoices":
	default:
		return fmt.Errorf("config.billing.ledger_source must be embedded or invoices")
	}
	return nil
}

func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns the default config file contents.
func GenerateDefault() string {
	return defaultTemplate
}

func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses data over the defaults, so omitted keys keep default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v1
  allow_dev_identity: false

auth:
  jwt_secret_env: HOURGLASS_JWT_SECRET

log:
  level: info
  format: text

billing:
  active_only: true
  # 0 aggregates every project at once.
  max_concurrency: 0
  # embedded: project invoice lines; invoices: standalone invoice records.
  ledger_source: embedded
`
