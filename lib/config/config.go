package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"cdn-blocker/lib/log"
)

const (
	// Placeholders usable inside extra rule specs.
	RULE_TMPL_IPSET = "ipset_name"
	RULE_TMPL_CHAIN = "chain_name"
)

type Config struct {
	General    *GeneralConfig     `toml:"general"`
	Sources    []*SourceConfig    `toml:"source"`
	ExtraRules []*ExtraRuleConfig `toml:"extra_rule"`

	_absConfigFilePath string
}

type GeneralConfig struct {
	// Name of the hash:net set holding the blocked ranges.
	IPSetName string `toml:"ipset_name" validate:"required,ipset_name"`
	// Name of the dedicated filter-table chain holding the drop rule.
	ChainName string `toml:"chain_name" validate:"required,chain_name"`
	// Download timeout, seconds.
	DownloadTimeout int `toml:"download_timeout" validate:"min=1,max=600"`
	// Resolver used by the post-apply DNS probe, host:port.
	DNSProbeServer string `toml:"dns_probe_server" validate:"omitempty,hostname_port"`
	// Domain resolved by the DNS probe.
	DNSProbeDomain string `toml:"dns_probe_domain" validate:"omitempty,fqdn"`
	// Bind address of the management API (server command).
	APIBind string `toml:"api_bind" validate:"omitempty,hostname_port"`
}

type SourceConfig struct {
	SourceName string `toml:"name" validate:"required"`
	URL        string `toml:"url" validate:"required,url"`
}

// ExtraRuleConfig is an operator-defined iptables rule spec. Spec parts may
// contain {{ipset_name}} and {{chain_name}} placeholders.
type ExtraRuleConfig struct {
	Table string   `toml:"table" validate:"required"`
	Chain string   `toml:"chain" validate:"required"`
	Rule  []string `toml:"rule" validate:"required,min=1"`
}

// Default returns the compiled-in configuration. The tool is fully
// functional without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills every unset field so that a partial config file
// still yields a complete configuration.
func (c *Config) applyDefaults() {
	if c.General == nil {
		c.General = &GeneralConfig{}
	}
	if c.General.IPSetName == "" {
		c.General.IPSetName = "cdn_block"
	}
	if c.General.ChainName == "" {
		c.General.ChainName = "CDN_BLOCK"
	}
	if c.General.DownloadTimeout == 0 {
		c.General.DownloadTimeout = 30
	}
	if c.General.DNSProbeServer == "" {
		c.General.DNSProbeServer = "1.1.1.1:53"
	}
	if c.General.DNSProbeDomain == "" {
		c.General.DNSProbeDomain = "example.com."
	}
	if c.General.APIBind == "" {
		c.General.APIBind = "127.0.0.1:8080"
	}
	if len(c.Sources) == 0 {
		c.Sources = []*SourceConfig{
			{SourceName: "cloudflare-v4", URL: "https://www.cloudflare.com/ips-v4"},
		}
	}
}

// LoadConfig reads the TOML file at configPath, or returns the compiled-in
// defaults when the file does not exist. Unset fields fall back to their
// defaults.
func LoadConfig(configPath string) (*Config, error) {
	configFile := filepath.Clean(configPath)

	if !filepath.IsAbs(configFile) {
		if path, err := filepath.Abs(configFile); err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %v", err)
		} else {
			configFile = path
		}
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Debugf("Configuration file %s not found, using built-in defaults", configFile)
		return Default(), nil
	}

	content, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var config Config
	if err := toml.Unmarshal(content, &config); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			log.Errorf(derr.String())
			row, col := derr.Position()
			log.Errorf("Error at line %d, column %d", row, col)
			return nil, fmt.Errorf("failed to parse config file")
		}
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}

	config.applyDefaults()
	config._absConfigFilePath = configFile

	log.Debugf("Configuration file path: %s", configFile)

	return &config, nil
}

func (c *Config) SerializeConfig() (*bytes.Buffer, error) {
	buf := bytes.Buffer{}
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return &buf, nil
}
