package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MOLTED_OUTPUT", "MOLTED_TIMEOUT", "MOLTED_LOG_LEVEL", "MOLTED_API_URL",
		"MOLTED_API_KEY", "MOLTED_PRIVATE_KEY", "MOLTED_PRIVATE_KEY_FILE",
		"MOLTED_KEYSTORE_PATH", "MOLTED_KEYSTORE_PASSWORD", "MOLTED_KEYSTORE_PASSWORD_FILE",
		"MOLTED_STORE_PATH", "MOLTED_STORE_LOCK_PATH", "MOLTED_CHAIN_ID", "MOLTED_RPC_URL",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadPrecedenceFlagsOverEnvOverFile(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	body := "output: plain\ntimeout: 3s\napi_url: https://file.example/\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MOLTED_OUTPUT", "json")
	t.Setenv("MOLTED_API_URL", "https://env.example")
	settings, err := Load(GlobalFlags{ConfigPath: configPath, Plain: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.OutputMode != "plain" {
		t.Fatalf("expected flag to win, got output=%s", settings.OutputMode)
	}
	if settings.APIURL != "https://env.example" {
		t.Fatalf("expected env api url, got %s", settings.APIURL)
	}
	if settings.Timeout != 3*time.Second {
		t.Fatalf("expected file timeout, got %s", settings.Timeout)
	}
}

func TestLoadAPIKeySources(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(configPath, []byte("api_key_env: TEAM_MOLTED_KEY\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TEAM_MOLTED_KEY", "from-file-env")

	settings, err := Load(GlobalFlags{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.APIKey != "from-file-env" || settings.APIKeySource != "env:TEAM_MOLTED_KEY" {
		t.Fatalf("unexpected api key source: %q %q", settings.APIKey, settings.APIKeySource)
	}

	t.Setenv("MOLTED_API_KEY", "from-env")
	settings, _ = Load(GlobalFlags{ConfigPath: configPath})
	if settings.APIKey != "from-env" {
		t.Fatalf("expected MOLTED_API_KEY to win over api_key_env, got %q", settings.APIKey)
	}

	settings, _ = Load(GlobalFlags{ConfigPath: configPath, APIKey: "from-flag"})
	if settings.APIKey != "from-flag" || settings.APIKeySource != "flag:--api-key" {
		t.Fatalf("expected flag to win, got %q %q", settings.APIKey, settings.APIKeySource)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	settings, err := Load(GlobalFlags{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.APIURL != DefaultAPIURL || settings.ChainID != DefaultChainID {
		t.Fatalf("unexpected defaults: %+v", settings)
	}
	if filepath.Base(settings.StorePath) != "credentials.db" {
		t.Fatalf("unexpected store path: %s", settings.StorePath)
	}
	if settings.LogLevel != "warn" {
		t.Fatalf("unexpected log level: %s", settings.LogLevel)
	}
	verbose, _ := Load(GlobalFlags{Verbose: true})
	if verbose.LogLevel != "debug" {
		t.Fatalf("expected --verbose to select debug, got %s", verbose.LogLevel)
	}
}

func TestLoadMutuallyExclusiveOutputFlags(t *testing.T) {
	clearEnv(t)
	_, err := Load(GlobalFlags{JSON: true, Plain: true})
	if err == nil {
		t.Fatal("expected error with --json and --plain")
	}
}
