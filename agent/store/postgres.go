package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

type PostgresConfig struct {
	DSN         string        `envconfig:"DSN" required:"true"`
	AutoMigrate bool          `split_words:"true" default:"true"`
	Timeout     time.Duration `split_words:"true" default:"10s"`
}

type menuItemRow struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`

	ID          int64   `bun:"id,pk,autoincrement"`
	Name        string  `bun:"name,notnull"`
	Price       float64 `bun:"price,notnull,default:0"`
	Category    string  `bun:"category,nullzero"`
	Description string  `bun:"description,nullzero"`
}

type orderRow struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID                  string                `bun:"id,pk"`
	CustomerName        string                `bun:"customer_name,notnull"`
	PhoneNumber         string                `bun:"phone_number,notnull"`
	RoomNumber          string                `bun:"room_number,notnull"`
	Items               []contractx.OrderLine `bun:"items,type:jsonb,notnull"`
	Total               float64               `bun:"total_amount,notnull"`
	SpecialInstructions string                `bun:"special_instructions,nullzero"`
	Status              string                `bun:"status,notnull"`
	CreatedAt           time.Time             `bun:"created_at,notnull"`
}

// PostgresStore serves the menu from menu_items and appends to orders.
type PostgresStore struct {
	db      *bun.DB
	timeout time.Duration
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", contractx.ErrValidation)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	s := NewPostgresStoreWithDB(bun.NewDB(sqldb, pgdialect.New()), cfg.Timeout)

	if err := s.db.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, unavailable("postgres ping", err)
	}
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func NewPostgresStoreWithDB(db *bun.DB, timeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout}
}

// Migrate creates the tables when they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, model := range []interface{}{(*menuItemRow)(nil), (*orderRow)(nil)} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListItems(ctx context.Context) ([]contractx.MenuItem, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []menuItemRow
	if err := s.db.NewSelect().Model(&rows).OrderExpr("mi.id ASC").Scan(ctx); err != nil {
		return nil, unavailable("postgres list menu", err)
	}

	items := make([]contractx.MenuItem, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		items = append(items, r.toMenuItem())
	}
	return items, nil
}

func (s *PostgresStore) AppendOrder(ctx context.Context, order contractx.Order) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := newOrderRow(order)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return unavailable("postgres insert order", err)
	}
	return nil
}

// SeedMenu inserts items into menu_items, for fixtures and first setup.
func (s *PostgresStore) SeedMenu(ctx context.Context, items []contractx.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]menuItemRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, menuItemRow{
			Name:        item.Name,
			Price:       item.Price,
			Category:    item.Category,
			Description: item.Description,
		})
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("postgres seed menu: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (r menuItemRow) toMenuItem() contractx.MenuItem {
	return contractx.MenuItem{
		Name:        strings.TrimSpace(r.Name),
		Price:       r.Price,
		Category:    r.Category,
		Description: r.Description,
	}
}

func newOrderRow(order contractx.Order) orderRow {
	status := order.Status
	if status == "" {
		status = contractx.OrderStatusPending
	}
	return orderRow{
		ID:                  order.ID,
		CustomerName:        order.CustomerName,
		PhoneNumber:         order.PhoneNumber,
		RoomNumber:          order.RoomNumber,
		Items:               order.Lines,
		Total:               order.Total,
		SpecialInstructions: order.SpecialInstructions,
		Status:              status,
		CreatedAt:           order.CreatedAt.UTC(),
	}
}
