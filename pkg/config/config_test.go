package config

import (
	"errors"
	"testing"
)

type sampleConfig struct {
	Name    string `split_words:"true" required:"true"`
	Workers int    `split_words:"true" default:"4"`
}

type validatedConfig struct {
	Mode string `default:"fast"`
}

var errBadMode = errors.New("bad mode")

func (c *validatedConfig) Validate() error {
	if c.Mode != "fast" && c.Mode != "slow" {
		return errBadMode
	}
	return nil
}

func TestNewDecodesPrefixedEnvironment(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "concierge")

	conf, err := New[sampleConfig]("SAMPLE")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Name != "concierge" {
		t.Fatalf("Name = %q, want %q", conf.Name, "concierge")
	}
	if conf.Workers != 4 {
		t.Fatalf("Workers = %d, want 4", conf.Workers)
	}
}

func TestNewMissingRequired(t *testing.T) {
	t.Setenv("MISSINGREQ_WORKERS", "2")

	if _, err := New[sampleConfig]("MISSINGREQ"); err == nil {
		t.Fatal("expected error for missing required field")
	}
}

func TestNewRunsValidator(t *testing.T) {
	t.Setenv("VALIDATED_MODE", "sideways")

	_, err := New[validatedConfig]("VALIDATED")
	if !errors.Is(err, errBadMode) {
		t.Fatalf("New() error = %v, want errBadMode", err)
	}
}
