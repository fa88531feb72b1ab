package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL  = "https://api.molted.work"
	DefaultChainID = int64(8453)
)

type GlobalFlags struct {
	ConfigPath     string
	JSON           bool
	Plain          bool
	Select         string
	ResultsOnly    bool
	EnableCommands string
	Timeout        string
	APIURL         string
	APIKey         string
	PrivateKey     string
	Verbose        bool
}

type Settings struct {
	OutputMode     string
	SelectFields   []string
	ResultsOnly    bool
	EnableCommands []string
	Timeout        time.Duration
	LogLevel       string

	APIURL string
	APIKey string
	// APIKeySource names where APIKey came from, for diagnostics only.
	APIKeySource string

	PrivateKey           string
	PrivateKeySource     string
	PrivateKeyFile       string
	KeystorePath         string
	KeystorePassword     string
	KeystorePasswordFile string

	StorePath     string
	StoreLockPath string

	ChainID int64
	RPCURL  string
}

type fileConfig struct {
	Output    string `yaml:"output"`
	Timeout   string `yaml:"timeout"`
	LogLevel  string `yaml:"log_level"`
	APIURL    string `yaml:"api_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Store     struct {
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"store"`
	Wallet struct {
		PrivateKeyEnv        string `yaml:"private_key_env"`
		PrivateKeyFile       string `yaml:"private_key_file"`
		KeystorePath         string `yaml:"keystore_path"`
		KeystorePasswordFile string `yaml:"keystore_password_file"`
		ChainID              *int64 `yaml:"chain_id"`
		RPCURL               string `yaml:"rpc_url"`
	} `yaml:"wallet"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 15 * time.Second
	}
	if strings.TrimSpace(settings.APIURL) == "" {
		settings.APIURL = DefaultAPIURL
	}
	settings.APIURL = strings.TrimRight(strings.TrimSpace(settings.APIURL), "/")
	if settings.ChainID <= 0 {
		settings.ChainID = DefaultChainID
	}

	return settings, nil
}

// ConfigDir is the directory holding config.yaml and the credential store.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "molted"), nil
}

func defaultSettings() (Settings, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:    "json",
		Timeout:       15 * time.Second,
		LogLevel:      "warn",
		APIURL:        DefaultAPIURL,
		StorePath:     filepath.Join(dir, "credentials.db"),
		StoreLockPath: filepath.Join(dir, "credentials.lock"),
		ChainID:       DefaultChainID,
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.LogLevel != "" {
		settings.LogLevel = strings.ToLower(cfg.LogLevel)
	}
	if cfg.APIURL != "" {
		settings.APIURL = cfg.APIURL
	}
	if cfg.APIKeyEnv != "" {
		if v := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv)); v != "" {
			settings.APIKey = v
			settings.APIKeySource = "env:" + cfg.APIKeyEnv
		}
	}
	if cfg.Store.Path != "" {
		settings.StorePath = cfg.Store.Path
	}
	if cfg.Store.LockPath != "" {
		settings.StoreLockPath = cfg.Store.LockPath
	}
	if cfg.Wallet.PrivateKeyEnv != "" {
		if v := strings.TrimSpace(os.Getenv(cfg.Wallet.PrivateKeyEnv)); v != "" {
			settings.PrivateKey = v
			settings.PrivateKeySource = "env:" + cfg.Wallet.PrivateKeyEnv
		}
	}
	if cfg.Wallet.PrivateKeyFile != "" {
		settings.PrivateKeyFile = cfg.Wallet.PrivateKeyFile
	}
	if cfg.Wallet.KeystorePath != "" {
		settings.KeystorePath = cfg.Wallet.KeystorePath
	}
	if cfg.Wallet.KeystorePasswordFile != "" {
		settings.KeystorePasswordFile = cfg.Wallet.KeystorePasswordFile
	}
	if cfg.Wallet.ChainID != nil {
		settings.ChainID = *cfg.Wallet.ChainID
	}
	if cfg.Wallet.RPCURL != "" {
		settings.RPCURL = cfg.Wallet.RPCURL
	}

	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("MOLTED_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("MOLTED_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("MOLTED_LOG_LEVEL"); v != "" {
		settings.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("MOLTED_API_URL"); v != "" {
		settings.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MOLTED_API_KEY")); v != "" {
		settings.APIKey = v
		settings.APIKeySource = "env:MOLTED_API_KEY"
	}
	if v := strings.TrimSpace(os.Getenv("MOLTED_PRIVATE_KEY")); v != "" {
		settings.PrivateKey = v
		settings.PrivateKeySource = "env:MOLTED_PRIVATE_KEY"
	}
	if v := os.Getenv("MOLTED_PRIVATE_KEY_FILE"); v != "" {
		settings.PrivateKeyFile = v
	}
	if v := os.Getenv("MOLTED_KEYSTORE_PATH"); v != "" {
		settings.KeystorePath = v
	}
	if v := os.Getenv("MOLTED_KEYSTORE_PASSWORD"); v != "" {
		settings.KeystorePassword = v
	}
	if v := os.Getenv("MOLTED_KEYSTORE_PASSWORD_FILE"); v != "" {
		settings.KeystorePasswordFile = v
	}
	if v := os.Getenv("MOLTED_STORE_PATH"); v != "" {
		settings.StorePath = v
	}
	if v := os.Getenv("MOLTED_STORE_LOCK_PATH"); v != "" {
		settings.StoreLockPath = v
	}
	if v := os.Getenv("MOLTED_CHAIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			settings.ChainID = n
		}
	}
	if v := os.Getenv("MOLTED_RPC_URL"); v != "" {
		settings.RPCURL = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	settings.SelectFields = splitList(flags.Select)
	settings.ResultsOnly = flags.ResultsOnly
	settings.EnableCommands = splitList(flags.EnableCommands)

	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if strings.TrimSpace(flags.APIURL) != "" {
		settings.APIURL = flags.APIURL
	}
	if v := strings.TrimSpace(flags.APIKey); v != "" {
		settings.APIKey = v
		settings.APIKeySource = "flag:--api-key"
	}
	if v := strings.TrimSpace(flags.PrivateKey); v != "" {
		settings.PrivateKey = v
		settings.PrivateKeySource = "flag:--private-key"
	}
	if flags.Verbose {
		settings.LogLevel = "debug"
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}

	return nil
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		f := strings.TrimSpace(part)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
