package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/cuemby/ledger/pkg/txnerr"
)

// Capability is one of the additive, comma-separated flags a provider
// declares in its Capabilities field (spec.md §6).
type Capability string

const (
	CapabilityCrud      Capability = "Crud"
	CapabilityIndex     Capability = "Index"
	CapabilityArchive   Capability = "Archive"
	CapabilityPurge     Capability = "Purge"
	CapabilityBackup    Capability = "Backup"
	CapabilityHealth    Capability = "Health"
	CapabilityMigration Capability = "Migration"
)

// ProviderConfig is one entry in the configuration document's Providers
// section (spec.md §6). Fields not relevant to a given backend are left
// zero-valued.
type ProviderConfig struct {
	Name         string `json:"name"`
	AssemblyName string `json:"assemblyName,omitempty"`
	TypeName     string `json:"typeName,omitempty"`
	Enabled      bool   `json:"enabled"`
	Capabilities string `json:"capabilities,omitempty"`

	DataSource      string `json:"dataSource,omitempty"`
	RootPath        string `json:"rootPath,omitempty"`
	ApplicationName string `json:"applicationName,omitempty"`
	ServiceName     string `json:"serviceName,omitempty"`

	MaxValueBytes     int  `json:"maxValueBytes,omitempty"`
	EnableCompression bool `json:"enableCompression,omitempty"`

	CommandTimeoutSeconds int `json:"commandTimeoutSeconds,omitempty"`
	RetryCount            int `json:"retryCount,omitempty"`
	RetryDelayMs          int `json:"retryDelayMs,omitempty"`
}

// HasCapability reports whether cap appears in the comma-separated
// Capabilities flags string.
func (p *ProviderConfig) HasCapability(cap Capability) bool {
	for _, c := range strings.Split(p.Capabilities, ",") {
		if Capability(strings.TrimSpace(c)) == cap {
			return true
		}
	}
	return false
}

// Document is the top-level configuration object: a Providers section
// naming every backend the factory (pkg/providers) knows how to build.
type Document struct {
	Providers []ProviderConfig `json:"providers"`
}

// Load reads and parses a configuration document from path, then
// validates that every provider name is non-empty and unique.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, txnerr.Wrap(txnerr.Unavailable, "read configuration file", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, txnerr.Wrap(txnerr.Serialization, "parse configuration document", err)
	}

	seen := make(map[string]bool, len(doc.Providers))
	for _, p := range doc.Providers {
		if p.Name == "" {
			return nil, txnerr.New(txnerr.InvalidEntity, "provider entry missing required name")
		}
		if seen[p.Name] {
			return nil, txnerr.Newf(txnerr.InvalidEntity, "duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true
	}

	return &doc, nil
}

// Provider returns the named provider entry, if present.
func (d *Document) Provider(name string) (*ProviderConfig, bool) {
	for i := range d.Providers {
		if d.Providers[i].Name == name {
			return &d.Providers[i], true
		}
	}
	return nil, false
}

// Enabled returns every provider entry whose Enabled flag is true.
func (d *Document) Enabled() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(d.Providers))
	for _, p := range d.Providers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}
