// Package config loads the optional skyload.yaml project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConfigFileName is looked up in the working directory when --config is not set.
const ConfigFileName = "skyload.yaml"

type ConnectionConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Database           string `yaml:"database"`
	ManagementDatabase string `yaml:"management_database,omitempty"`
	SSLMode            string `yaml:"sslmode"`
	SSLCert            string `yaml:"sslcert,omitempty"`
	SSLKey             string `yaml:"sslkey,omitempty"`
	SSLRootCert        string `yaml:"sslrootcert,omitempty"`
	AuthMethod         string `yaml:"auth_method,omitempty"`
	AzureTenantID      string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID      string `yaml:"azure_client_id,omitempty"`
	AWSRegion          string `yaml:"aws_region,omitempty"`
	GoogleInstance     string `yaml:"google_instance,omitempty"`
}

type LoadConfig struct {
	BatchSize      int      `yaml:"batch_size"`
	SchemaMode     string   `yaml:"schema_mode"`
	Strict         bool     `yaml:"strict"`
	Classes        []string `yaml:"classes"`
	CreateDatabase bool     `yaml:"create_database"`
}

type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Load       LoadConfig       `yaml:"load"`
	Log        LogConfig        `yaml:"log"`
	Timeout    string           `yaml:"timeout"`
}

// TimeoutDuration parses Timeout. It returns zero when Timeout is empty.
func (c *ProjectConfig) TimeoutDuration() (time.Duration, error) {
	if c == nil || c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout in %s: %w", ConfigFileName, err)
	}
	return d, nil
}

// Load reads and parses the project file at path.
func Load(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOptional is Load, except a missing file yields (nil, nil).
func LoadOptional(path string) (*ProjectConfig, error) {
	cfg, err := Load(path)
	if errors.Is(err, ErrConfigNotFound) {
		return nil, nil
	}
	return cfg, err
}
