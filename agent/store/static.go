package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

// StaticMenu serves a fixed menu, typically loaded from a YAML file.
type StaticMenu struct {
	items []contractx.MenuItem
}

type menuFile struct {
	Items []contractx.MenuItem `yaml:"items"`
}

func NewStaticMenu(items []contractx.MenuItem) *StaticMenu {
	return &StaticMenu{items: append([]contractx.MenuItem(nil), items...)}
}

func LoadStaticMenu(path string) (*StaticMenu, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu file: %w", err)
	}
	return ParseStaticMenu(raw)
}

// ParseStaticMenu decodes a document of the form
//
//	items:
//	  - name: Masala Dosa
//	    price: 120
//	    category: Breakfast
func ParseStaticMenu(raw []byte) (*StaticMenu, error) {
	var doc menuFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode menu file: %w", err)
	}

	items := make([]contractx.MenuItem, 0, len(doc.Items))
	for i, item := range doc.Items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("%w: menu item %d (%s) has a negative price", contractx.ErrValidation, i, item.Name)
		}
		items = append(items, item)
	}
	return &StaticMenu{items: items}, nil
}

func (m *StaticMenu) ListItems(ctx context.Context) ([]contractx.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("static menu", err)
	}
	return append([]contractx.MenuItem(nil), m.items...), nil
}

// OrderLog keeps orders in memory for the memory backend.
type OrderLog struct {
	mu     sync.Mutex
	orders []contractx.Order
}

func NewOrderLog() *OrderLog {
	return &OrderLog{}
}

func (l *OrderLog) AppendOrder(ctx context.Context, order contractx.Order) error {
	if err := ctx.Err(); err != nil {
		return unavailable("order log", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = append(l.orders, order)
	return nil
}

func (l *OrderLog) Orders() []contractx.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]contractx.Order(nil), l.orders...)
}
