package batchsize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	Table            string   `json:"table"`
	ProbeCommand     []string `json:"probe_command,omitempty"`
	BenchmarkCommand []string `json:"benchmark_command,omitempty"`
	RetryPause       string   `json:"retry_pause,omitempty"`
	MaxTries         int      `json:"max_tries,omitempty"`

	// Resolved values (computed, not serialized)
	EffectiveCwd  string        `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	TableAbs      string        `json:"-"` // Absolute path to the batch size table
	RetryPauseDur time.Duration `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources ConfigSources `json:"-"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Defaults.
const (
	DefaultTable      = "batch_sizes.json"
	DefaultRetryPause = 5 * time.Second
	DefaultMaxTries   = 5
)

// DefaultBenchmarkCommand runs a single inference experiment. The search
// appends --model, --batch-size, --datadir and --max_batch_size.
var DefaultBenchmarkCommand = []string{"python", "data_and_model_loading.py"}

// DefaultConfig returns the default configuration. ProbeCommand stays empty;
// callers fill it with the running executable.
func DefaultConfig() Config {
	return Config{
		Table:            DefaultTable,
		BenchmarkCommand: append([]string(nil), DefaultBenchmarkCommand...),
		RetryPause:       DefaultRetryPause.String(),
		MaxTries:         DefaultMaxTries,
	}
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".batchsize.json"

// getGlobalConfigPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/batchsize/config.json if set, otherwise
// ~/.config/batchsize/config.json. Returns empty string if home directory
// cannot be determined.
func getGlobalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "batchsize", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "batchsize", "config.json")
	}

	return ""
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	TableOverride   string            // --table flag value
	HasTableFlag    bool              // --table was given (even if empty)
	Env             map[string]string // environment variables
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/batchsize/config.json or $XDG_CONFIG_HOME/batchsize/config.json)
// 3. Project config file at default location (.batchsize.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty)
// 5. CLI overrides.
//
// Paths in the returned Config are resolved to absolute paths.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	globalCfg, globalPath, err := loadGlobalConfig(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	if input.HasTableFlag {
		if input.TableOverride == "" {
			return Config{}, ErrTableEmpty
		}

		cfg.Table = input.TableOverride
	}

	validateErr := validateConfig(&cfg)
	if validateErr != nil {
		return Config{}, validateErr
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.Table) {
		cfg.TableAbs = cfg.Table
	} else {
		cfg.TableAbs = filepath.Join(workDir, cfg.Table)
	}

	return cfg, nil
}

func loadGlobalConfig(env map[string]string) (Config, string, error) {
	globalCfgPath := getGlobalConfigPath(env)
	if globalCfgPath == "" {
		return Config{}, "", nil
	}

	globalCfg, loaded, err := loadConfigFile(globalCfgPath, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return globalCfg, globalCfgPath, nil
}

// loadProjectConfig loads the project config file (.batchsize.json) or an
// explicit config file.
func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		_, statErr := os.Stat(cfgFile)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, ConfigFileName)
	}

	fileCfg, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return fileCfg, cfgFile, nil
}

// loadConfigFile loads a config file. If mustExist is false, missing files
// return a zero config.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, false, nil
	}

	cfg, parseErr := parseConfig(data)
	if parseErr != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	if cfg.Table == "" && hasExplicitEmptyTable(data) {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrTableEmpty)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	return cfg, nil
}

func hasExplicitEmptyTable(data []byte) bool {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return false
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	val, exists := raw["table"]
	if !exists {
		return false
	}

	str, ok := val.(string)

	return ok && str == ""
}

func mergeConfig(base, overlay Config) Config {
	if overlay.Table != "" {
		base.Table = overlay.Table
	}

	if overlay.ProbeCommand != nil {
		base.ProbeCommand = overlay.ProbeCommand
	}

	if overlay.BenchmarkCommand != nil {
		base.BenchmarkCommand = overlay.BenchmarkCommand
	}

	if overlay.RetryPause != "" {
		base.RetryPause = overlay.RetryPause
	}

	if overlay.MaxTries != 0 {
		base.MaxTries = overlay.MaxTries
	}

	return base
}

func validateConfig(cfg *Config) error {
	if cfg.Table == "" {
		return ErrTableEmpty
	}

	if cfg.ProbeCommand != nil && len(cfg.ProbeCommand) == 0 {
		return fmt.Errorf("probe_command: %w", ErrCommandEmpty)
	}

	if len(cfg.BenchmarkCommand) == 0 {
		return fmt.Errorf("benchmark_command: %w", ErrCommandEmpty)
	}

	pause, err := time.ParseDuration(cfg.RetryPause)
	if err != nil || pause < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidRetryPause, cfg.RetryPause)
	}

	cfg.RetryPauseDur = pause

	if cfg.MaxTries < 1 {
		return ErrInvalidMaxTries
	}

	return nil
}
