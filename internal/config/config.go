// Package config loads the miragend configuration from defaults, a YAML
// file, a .env file, MIRAGEND_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"miragend/internal/obfuscate"
	"miragend/internal/transform"
)

// AppName names the config directory and the environment prefix.
const AppName = "miragend"

// Setting keys. The environment variable of a key is MIRAGEND_ followed by
// the upper-cased key, and its flag is the key with dashes.
const (
	KeyUpstreamBaseURL            = "upstream_base_url"
	KeyBind                       = "bind"
	KeyHealthBind                 = "health_bind"
	KeyStrategy                   = "strategy"
	KeyPatchTarget                = "patch_target"
	KeyPatchContent               = "patch_content"
	KeyPatchContentFile           = "patch_content_file"
	KeyPatchRemoveNodes           = "patch_remove_nodes"
	KeyPatchRemoveMetaTags        = "patch_remove_meta_tags"
	KeyObfuscationMetaTags        = "obfuscation_meta_tags"
	KeyObfuscationIgnoreNodes     = "obfuscation_ignore_nodes"
	KeyObfuscationIgnoreTitle     = "obfuscation_ignore_title"
	KeyObfuscationIgnoreAfterNode = "obfuscation_ignore_after_node"
	KeyObfuscationIgnoreLength    = "obfuscation_ignore_length"
	KeyCharacterMappingFile       = "obfuscation_character_mapping_file"
	KeyConnectTimeoutSecs         = "connect_timeout_secs"
	KeySpecialPageStyle           = "special_page_style"
	KeyInjectOnlineScript         = "inject_online_script"
	KeyLogLevel                   = "log_level"
	KeyLogFormat                  = "log_format"
)

// DefaultMetaTags are obfuscated when obfuscation_meta_tags is not set.
var DefaultMetaTags = []string{"description", "keywords", "og:title", "og:description"}

// defaults holds the value of every key. Keys missing here are not read
// from the environment.
var defaults = map[string]any{
	KeyUpstreamBaseURL:            "",
	KeyBind:                       "0.0.0.0:8080",
	KeyHealthBind:                 "",
	KeyStrategy:                   transform.NameObfuscation,
	KeyPatchTarget:                "",
	KeyPatchContent:               "",
	KeyPatchContentFile:           "",
	KeyPatchRemoveNodes:           []string{},
	KeyPatchRemoveMetaTags:        []string{},
	KeyObfuscationMetaTags:        DefaultMetaTags,
	KeyObfuscationIgnoreNodes:     []string{},
	KeyObfuscationIgnoreTitle:     false,
	KeyObfuscationIgnoreAfterNode: "",
	KeyObfuscationIgnoreLength:    0,
	KeyCharacterMappingFile:       "",
	KeyConnectTimeoutSecs:         60,
	KeySpecialPageStyle:           "none",
	KeyInjectOnlineScript:         "",
	KeyLogLevel:                   "info",
	KeyLogFormat:                  "json",
}

// Config is the resolved process configuration. It is built once per
// (re)load and never mutated afterwards.
type Config struct {
	UpstreamBaseURL string
	Bind            string
	HealthBind      string
	// Strategy is either transform.NamePatch or transform.NameObfuscation.
	Strategy string

	PatchTarget         string
	PatchContent        string
	PatchContentFile    string
	PatchRemoveNodes    []string
	PatchRemoveMetaTags []string
	// PatchHTML is the replacement markup resolved from PatchContent or
	// PatchContentFile.
	PatchHTML string

	ObfuscationMetaTags        []string
	ObfuscationIgnoreNodes     []string
	ObfuscationIgnoreTitle     bool
	ObfuscationIgnoreAfterNode string
	ObfuscationIgnoreLength    int
	CharacterMappingFile       string
	// Mappings is the character table, the built-in one unless
	// CharacterMappingFile is set.
	Mappings []obfuscate.Mapping

	ConnectTimeoutSecs int
	SpecialPageStyle   string
	InjectOnlineScript string

	LogLevel  string
	LogFormat string
}

// Validate checks the settings that would make the proxy unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.UpstreamBaseURL) == "" {
		return ErrMissingUpstream
	}
	if _, err := c.upstream(); err != nil {
		return err
	}
	if c.ConnectTimeoutSecs <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTimeout, c.ConnectTimeoutSecs)
	}
	if c.ObfuscationIgnoreLength < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidIgnoreLength, c.ObfuscationIgnoreLength)
	}
	return nil
}

func (c *Config) upstream() (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(c.UpstreamBaseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUpstream, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidUpstream, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamWithoutHost, c.UpstreamBaseURL)
	}
	if net.ParseIP(u.Hostname()) != nil {
		return nil, fmt.Errorf("%w: %s is an IP address, a domain name is required", ErrUpstreamWithoutHost, u.Hostname())
	}
	return u, nil
}

// UpstreamBase returns the upstream base URL without trailing slashes, ready
// to have a request URI appended.
func (c *Config) UpstreamBase() string {
	return strings.TrimRight(strings.TrimSpace(c.UpstreamBaseURL), "/")
}

// UpstreamHost returns the value sent as the outbound Host header: the
// upstream domain including an explicit port. Keeping the port differs from
// a domain-only Host on purpose, since HTTP requires it for non-default
// ports. It is empty when the upstream URL is invalid.
func (c *Config) UpstreamHost() string {
	u, err := c.upstream()
	if err != nil {
		return ""
	}
	return u.Host
}

// ConnectTimeout returns the upstream request timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSecs) * time.Second
}

// IsPatch reports whether the patch strategy is active.
func (c *Config) IsPatch() bool {
	return c.Strategy == transform.NamePatch
}

// ObfuscationRules returns the walker rules for the obfuscation settings.
func (c *Config) ObfuscationRules() transform.ObfuscationRules {
	return transform.ObfuscationRules{
		MetaTags:        c.ObfuscationMetaTags,
		IgnoreNodes:     c.ObfuscationIgnoreNodes,
		IgnoreTitle:     c.ObfuscationIgnoreTitle,
		IgnoreAfterNode: c.ObfuscationIgnoreAfterNode,
		IgnoreLength:    c.ObfuscationIgnoreLength,
	}
}

// Patch returns the patch strategy for the patch settings.
func (c *Config) Patch() *transform.Patch {
	return &transform.Patch{
		Target:         c.PatchTarget,
		Content:        c.PatchHTML,
		RemoveNodes:    c.PatchRemoveNodes,
		RemoveMetaTags: c.PatchRemoveMetaTags,
	}
}

// normalizeStrategy maps a configured strategy name to one of the canonical
// names. Unknown names fall back to obfuscation.
func normalizeStrategy(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case transform.NamePatch:
		return transform.NamePatch
	case transform.NameObfuscation, transform.NameObfuscationShort:
		return transform.NameObfuscation
	default:
		slog.Warn("Invalid strategy, falling back to obfuscation", "strategy", name)
		return transform.NameObfuscation
	}
}
