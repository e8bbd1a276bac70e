package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// Validator is implemented by config structs that need checks beyond
// envconfig's required/default tags.
type Validator interface {
	Validate() error
}

var (
	envFilePath string
	parseOnce   sync.Once

	loadMu     sync.Mutex
	loadedFile string
)

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New loads the env file once per process (the -env flag, then ENV_FILE,
// then ./.env if present) and decodes the environment into T.
func New[T any](prefix string) (*T, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("config %s: %w", displayPrefix(prefix), err)
	}

	if v, ok := any(&conf).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("config %s: %w", displayPrefix(prefix), err)
		}
	}

	return &conf, nil
}

func loadEnvFile() error {
	loadMu.Lock()
	defer loadMu.Unlock()

	path := resolveEnvPath()
	if path == "" {
		path = strings.TrimSpace(os.Getenv("ENV_FILE"))
	}

	if path != "" {
		if path == loadedFile {
			return nil
		}
		if err := exportEnvironment(path); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		loadedFile = path
		return nil
	}

	if loadedFile == ".env" {
		return nil
	}
	loaded, err := exportEnvironmentIfExists(".env")
	if err != nil {
		return fmt.Errorf("failed to load default env file: %w", err)
	}
	if loaded {
		loadedFile = ".env"
	}
	return nil
}

func resolveEnvPath() string {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	return strings.TrimSpace(envFilePath)
}

func exportEnvironmentIfExists(filepath string) (bool, error) {
	info, err := os.Stat(filepath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	return true, exportEnvironment(filepath)
}

// exportEnvironment copies the file's keys into the process environment.
// Variables already set in the environment win over the file.
func exportEnvironment(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}

func displayPrefix(prefix string) string {
	if prefix == "" {
		return "<root>"
	}
	return prefix
}
