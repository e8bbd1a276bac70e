package state

import (
	"errors"
	"fmt"
	"strings"
)

type Driver string

const (
	DriverNone    Driver = "none"
	DriverUpstash Driver = "upstash"
	DriverRedis   Driver = "redis"
)

// PersistenceConfig selects where sessions are backed up. With DriverNone
// sessions live only in process memory.
type PersistenceConfig struct {
	Driver Driver `envconfig:"DRIVER" default:"none"`
}

func (c *PersistenceConfig) Validate() error {
	switch c.normalized() {
	case DriverNone, DriverUpstash, DriverRedis:
		return nil
	default:
		return fmt.Errorf("unknown session driver %q", c.Driver)
	}
}

func (c *PersistenceConfig) normalized() Driver {
	d := Driver(strings.ToLower(strings.TrimSpace(string(c.Driver))))
	if d == "" {
		return DriverNone
	}
	return d
}

// Drivers carries the per-driver settings; only the selected one is read.
type Drivers struct {
	Upstash func() UpstashRedisConfig
	Redis   func() RedisConfig
}

// OpenStore builds the Store for cfg. It returns a nil Store for DriverNone.
func OpenStore(cfg PersistenceConfig, drivers Drivers) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.normalized() {
	case DriverUpstash:
		if drivers.Upstash == nil {
			return nil, errors.New("upstash config is not provided")
		}
		return NewUpstashRedisStore(drivers.Upstash())
	case DriverRedis:
		if drivers.Redis == nil {
			return nil, errors.New("redis config is not provided")
		}
		return NewRedisStore(drivers.Redis())
	default:
		return nil, nil
	}
}
