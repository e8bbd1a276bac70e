package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

func TestNewOrderRowDefaultsStatus(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 14, 15, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	row := newOrderRow(contractx.Order{
		ID:        "o-1",
		Lines:     []contractx.OrderLine{{Item: "Tea", Quantity: 2}},
		Total:     40,
		CreatedAt: created,
	})
	if row.Status != contractx.OrderStatusPending {
		t.Fatalf("Status = %q", row.Status)
	}
	if row.CreatedAt.Location() != time.UTC || !row.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v", row.CreatedAt)
	}
	if len(row.Items) != 1 || row.Items[0].Quantity != 2 {
		t.Fatalf("Items = %#v", row.Items)
	}
}

func TestNewPostgresStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	if _, err := NewPostgresStore(context.Background(), PostgresConfig{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// Runs against a live database when POSTGRES_TEST_DSN is set.
func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, PostgresConfig{DSN: dsn, AutoMigrate: true, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	name := "Test Item " + uuid.NewString()
	if err := s.SeedMenu(ctx, []contractx.MenuItem{{Name: name, Price: 99, Category: "Test"}}); err != nil {
		t.Fatalf("SeedMenu() error = %v", err)
	}
	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	found := false
	for _, item := range items {
		if item.Name == name && item.Price == 99 {
			found = true
		}
	}
	if !found {
		t.Fatalf("seeded item %q not listed", name)
	}

	order := contractx.Order{
		ID:           uuid.NewString(),
		CustomerName: "Asha",
		PhoneNumber:  "+911234567890",
		RoomNumber:   "204",
		Lines:        []contractx.OrderLine{{Item: name, Quantity: 1}},
		Total:        99,
		CreatedAt:    time.Now(),
		Status:       contractx.OrderStatusPending,
	}
	if err := s.AppendOrder(ctx, order); err != nil {
		t.Fatalf("AppendOrder() error = %v", err)
	}
}
