package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultDaemonAddress = "127.0.0.1:7717"
	defaultRunnerName    = "echo"
	defaultStoreBackend  = "bbolt"
	defaultLogLevel      = "info"
)

type Config struct {
	Daemon  DaemonConfig  `toml:"daemon"`
	Runner  RunnerConfig  `toml:"runner"`
	Store   StoreConfig   `toml:"store"`
	Logging LoggingConfig `toml:"logging"`
}

type DaemonConfig struct {
	Address string `toml:"address"`
}

type RunnerConfig struct {
	Name    string `toml:"name"`
	Fixture string `toml:"fixture"`
}

type StoreConfig struct {
	Backend string `toml:"backend"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func DefaultConfig() Config {
	return Config{
		Daemon:  DaemonConfig{Address: defaultDaemonAddress},
		Runner:  RunnerConfig{Name: defaultRunnerName},
		Store:   StoreConfig{Backend: defaultStoreBackend},
		Logging: LoggingConfig{Level: defaultLogLevel},
	}
}

// LoadConfig reads ~/.lightcode/config.toml over the defaults. A missing
// file yields the defaults without error.
func LoadConfig() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadConfigFromPath(path)
}

func (c Config) DaemonAddress() string {
	addr := strings.TrimSpace(c.Daemon.Address)
	if addr == "" {
		return defaultDaemonAddress
	}
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimRight(addr, "/")
	if addr == "" {
		return defaultDaemonAddress
	}
	return addr
}

func (c Config) DaemonBaseURL() string {
	return "http://" + c.DaemonAddress()
}

func (c Config) RunnerName() string {
	name := strings.ToLower(strings.TrimSpace(c.Runner.Name))
	if name == "" {
		return defaultRunnerName
	}
	return name
}

// RunnerFixture resolves the scripted runner's fixture file. Relative paths
// resolve under the data directory; an unset fixture returns "".
func (c Config) RunnerFixture() (string, error) {
	fixture := strings.TrimSpace(c.Runner.Fixture)
	if fixture == "" {
		return "", nil
	}
	return resolveConfigPath(fixture)
}

func (c Config) StoreBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if backend == "" {
		return defaultStoreBackend
	}
	return backend
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return defaultLogLevel
	}
	return level
}

func loadConfigFromPath(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}
