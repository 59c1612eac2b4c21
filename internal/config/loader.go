package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"miragend/internal/obfuscate"
)

const (
	// DefaultConfigFile is looked up in the working directory.
	DefaultConfigFile = "miragend.yaml"
	// DefaultEnvFile is loaded when present.
	DefaultEnvFile = ".env"

	envPrefix = "MIRAGEND"
)

// FindConfigFile returns the config file to read. An explicit path must
// exist. Otherwise ./miragend.yaml and then
// $XDG_CONFIG_HOME/miragend/config.yaml are tried; finding neither is not an
// error and yields "".
func FindConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, explicit)
		}
		return explicit, nil
	}

	candidates := []string{
		DefaultConfigFile,
		filepath.Join(xdg.ConfigHome, AppName, "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// Loader assembles a Config. The zero value reads the default config file
// locations, ./.env and the environment.
type Loader struct {
	// ConfigFile is an explicit YAML file; it must exist when set.
	ConfigFile string
	// EnvFile overrides DefaultEnvFile.
	EnvFile string
	// Flags, when set, overrides file and environment values with the
	// flags the user changed. A key binds to the flag named after it with
	// dashes instead of underscores.
	Flags *pflag.FlagSet
}

// Load reads the configuration file at filename (empty means search the
// default locations) together with .env and the environment.
func Load(filename string) (*Config, error) {
	return Loader{ConfigFile: filename}.Load()
}

// Load merges every source, validates the result and resolves the patch
// markup and the character table.
func (l Loader) Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		bindEnv(v, key)
	}

	path, err := FindConfigFile(l.ConfigFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		settings, err := readYAML(path)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", path, err)
		}
		slog.Info("Loaded configuration file", "path", path)
	}

	envFile := l.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	dotenv, err := readDotEnv(envFile)
	if err != nil {
		return nil, err
	}
	if len(dotenv) > 0 {
		if err := v.MergeConfigMap(dotenv); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", envFile, err)
		}
		slog.Info("Loaded env file", "path", envFile)
	}

	if l.Flags != nil {
		if err := bindFlags(v, l.Flags); err != nil {
			return nil, err
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.PatchHTML = ResolvePatchHTML(cfg.PatchContent, cfg.PatchContentFile)
	cfg.Mappings, err = loadMappings(cfg.CharacterMappingFile)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper, key string) {
	_ = v.BindEnv(key, envPrefix+"_"+strings.ToUpper(key))
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key := range defaults {
		flag := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}
	return nil
}

func readYAML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	settings := map[string]any{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML %s: %w", path, err)
	}
	return settings, nil
}

// readDotEnv returns the MIRAGEND_* entries of a .env file as setting keys.
// The process environment is left untouched so real variables keep
// precedence and a reload sees edits to the file.
func readDotEnv(path string) (map[string]any, error) {
	entries, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	settings := map[string]any{}
	for name, value := range entries {
		key, ok := strings.CutPrefix(name, envPrefix+"_")
		if !ok {
			continue
		}
		settings[strings.ToLower(key)] = value
	}
	return settings, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var errs []error
	str := func(key string) string {
		return strings.TrimSpace(cast.ToString(v.Get(key)))
	}
	integer := func(key string) int {
		n, err := cast.ToIntE(v.Get(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, err))
		}
		return n
	}
	boolean := func(key string) bool {
		b, err := cast.ToBoolE(v.Get(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, err))
		}
		return b
	}

	cfg := &Config{
		UpstreamBaseURL: str(KeyUpstreamBaseURL),
		Bind:            str(KeyBind),
		HealthBind:      str(KeyHealthBind),
		Strategy:        normalizeStrategy(str(KeyStrategy)),

		PatchTarget:         str(KeyPatchTarget),
		PatchContent:        cast.ToString(v.Get(KeyPatchContent)),
		PatchContentFile:    str(KeyPatchContentFile),
		PatchRemoveNodes:    stringList(v.Get(KeyPatchRemoveNodes)),
		PatchRemoveMetaTags: stringList(v.Get(KeyPatchRemoveMetaTags)),

		ObfuscationMetaTags:        stringList(v.Get(KeyObfuscationMetaTags)),
		ObfuscationIgnoreNodes:     stringList(v.Get(KeyObfuscationIgnoreNodes)),
		ObfuscationIgnoreTitle:     boolean(KeyObfuscationIgnoreTitle),
		ObfuscationIgnoreAfterNode: str(KeyObfuscationIgnoreAfterNode),
		ObfuscationIgnoreLength:    integer(KeyObfuscationIgnoreLength),
		CharacterMappingFile:       str(KeyCharacterMappingFile),

		ConnectTimeoutSecs: integer(KeyConnectTimeoutSecs),
		SpecialPageStyle:   str(KeySpecialPageStyle),
		InjectOnlineScript: str(KeyInjectOnlineScript),

		LogLevel:  str(KeyLogLevel),
		LogFormat: str(KeyLogFormat),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringList accepts a YAML sequence, a flag slice or a comma-separated
// string. Items are trimmed and empty ones dropped.
func stringList(value any) []string {
	var items []string
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(v, ",")
	default:
		items = cast.ToStringSlice(v)
	}

	list := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func loadMappings(path string) ([]obfuscate.Mapping, error) {
	if path == "" {
		return obfuscate.DefaultMappings(), nil
	}
	mappings, err := obfuscate.LoadMappingsFile(path)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyCharacterMappingFile, err)
	}
	return mappings, nil
}
