package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

type Backend string

const (
	BackendSheets   Backend = "sheets"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

type Config struct {
	Backend  Backend `envconfig:"BACKEND" default:"sheets"`
	MenuFile string  `split_words:"true" default:"menu.yaml"`
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSheets, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store backend %q", contractx.ErrValidation, c.Backend)
	}
	if c.Backend == BackendMemory && strings.TrimSpace(c.MenuFile) == "" {
		return fmt.Errorf("%w: memory backend needs a menu file", contractx.ErrValidation)
	}
	return nil
}

// Stores bundles the menu and order adapters of one backend.
type Stores struct {
	Menu   contractx.MenuStore
	Orders contractx.OrderStore
	closer io.Closer
}

func (s *Stores) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Backends carries the per-backend settings; only the selected one is read.
type Backends struct {
	Sheets   func() SheetsConfig
	Postgres func() PostgresConfig
}

func Open(ctx context.Context, cfg Config, backends Backends) (*Stores, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendSheets:
		if backends.Sheets == nil {
			return nil, errors.New("sheets config is not provided")
		}
		s, err := NewSheetsStore(ctx, backends.Sheets())
		if err != nil {
			return nil, err
		}
		return &Stores{Menu: s, Orders: s}, nil
	case BackendPostgres:
		if backends.Postgres == nil {
			return nil, errors.New("postgres config is not provided")
		}
		s, err := NewPostgresStore(ctx, backends.Postgres())
		if err != nil {
			return nil, err
		}
		if err := seedEmptyMenu(ctx, s, cfg.MenuFile); err != nil {
			_ = s.Close()
			return nil, err
		}
		return &Stores{Menu: s, Orders: s, closer: s}, nil
	default:
		menu, err := LoadStaticMenu(cfg.MenuFile)
		if err != nil {
			return nil, err
		}
		return &Stores{Menu: menu, Orders: NewOrderLog()}, nil
	}
}

// seedEmptyMenu fills an empty menu_items table from the static menu file,
// when that file exists.
func seedEmptyMenu(ctx context.Context, s *PostgresStore, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	existing, err := s.ListItems(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	menu, err := LoadStaticMenu(path)
	if err != nil {
		return err
	}
	items, _ := menu.ListItems(ctx)
	if err := s.SeedMenu(ctx, items); err != nil {
		return err
	}
	log.Info().Str("component", "store").Str("file", path).Int("items", len(items)).Msg("seeded empty menu table")
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", contractx.ErrStoreUnavailable, op, err)
}
