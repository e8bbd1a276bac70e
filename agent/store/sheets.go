package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

const sheetTimestampLayout = "2006-01-02 15:04:05"

type SheetsConfig struct {
	CredentialsFile     string        `split_words:"true" default:"credentials.json"`
	MenuSpreadsheetID   string        `envconfig:"MENU_SPREADSHEET_ID" required:"true"`
	OrdersSpreadsheetID string        `envconfig:"ORDERS_SPREADSHEET_ID" required:"true"`
	MenuRange           string        `split_words:"true" default:"A:D"`
	OrdersRange         string        `split_words:"true" default:"A:H"`
	Timezone            string        `split_words:"true" default:"UTC"`
	Timeout             time.Duration `split_words:"true" default:"15s"`
}

// SheetsStore reads the menu from one spreadsheet and appends orders to
// another. Ranges without a sheet name address the first worksheet.
type SheetsStore struct {
	values      *sheets.SpreadsheetsValuesService
	menuID      string
	ordersID    string
	menuRange   string
	ordersRange string
	location    *time.Location
	timeout     time.Duration
}

func NewSheetsStore(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*SheetsStore, error) {
	if len(opts) == 0 {
		opts = []option.ClientOption{
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(sheets.SpreadsheetsScope),
		}
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	loc, err := time.LoadLocation(strings.TrimSpace(cfg.Timezone))
	if err != nil {
		return nil, fmt.Errorf("%w: sheets timezone: %v", contractx.ErrValidation, err)
	}

	s := &SheetsStore{
		values:      srv.Spreadsheets.Values,
		menuID:      strings.TrimSpace(cfg.MenuSpreadsheetID),
		ordersID:    strings.TrimSpace(cfg.OrdersSpreadsheetID),
		menuRange:   cfg.MenuRange,
		ordersRange: cfg.OrdersRange,
		location:    loc,
		timeout:     cfg.Timeout,
	}
	if s.menuID == "" || s.ordersID == "" {
		return nil, fmt.Errorf("%w: menu and orders spreadsheet ids are required", contractx.ErrValidation)
	}
	if s.menuRange == "" {
		s.menuRange = "A:D"
	}
	if s.ordersRange == "" {
		s.ordersRange = "A:H"
	}
	return s, nil
}

func (s *SheetsStore) ListItems(ctx context.Context) ([]contractx.MenuItem, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.values.Get(s.menuID, s.menuRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, unavailable("sheets get menu", err)
	}

	items, err := ParseMenuRows(resp.Values)
	if err != nil {
		return nil, unavailable("sheets parse menu", err)
	}
	return items, nil
}

func (s *SheetsStore) AppendOrder(ctx context.Context, order contractx.Order) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row, err := OrderRow(order, s.location)
	if err != nil {
		return err
	}

	_, err = s.values.Append(s.ordersID, s.ordersRange, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return unavailable("sheets append order", err)
	}
	return nil
}

func (s *SheetsStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ParseMenuRows maps sheet rows to menu items. The first row is the header
// and must name an Item and a Price column; Category and Description are
// optional. Rows without an item name are skipped.
func ParseMenuRows(rows [][]interface{}) ([]contractx.MenuItem, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	cols := map[string]int{}
	for i, cell := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(fmt.Sprint(cell)))] = i
	}
	nameCol, ok := cols["item"]
	if !ok {
		return nil, errors.New(`menu header has no "Item" column`)
	}
	priceCol, ok := cols["price"]
	if !ok {
		return nil, errors.New(`menu header has no "Price" column`)
	}
	categoryCol, hasCategory := cols["category"]
	descCol, hasDesc := cols["description"]

	items := make([]contractx.MenuItem, 0, len(rows)-1)
	for r, row := range rows[1:] {
		name := cellString(row, nameCol)
		if name == "" {
			continue
		}
		price, err := parsePrice(cellAt(row, priceCol))
		if err != nil {
			log.Warn().Err(err).Int("row", r+2).Str("item", name).Msg("menu price unreadable, using 0")
		}
		item := contractx.MenuItem{Name: name, Price: price}
		if hasCategory {
			item.Category = cellString(row, categoryCol)
		}
		if hasDesc {
			item.Description = cellString(row, descCol)
		}
		items = append(items, item)
	}
	return items, nil
}

// OrderRow renders an order as a sheet row:
// timestamp, name, phone, room, items JSON, total, instructions, status.
func OrderRow(order contractx.Order, loc *time.Location) ([]interface{}, error) {
	if loc == nil {
		loc = time.UTC
	}
	items, err := json.Marshal(order.Lines)
	if err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}
	status := order.Status
	if status == "" {
		status = contractx.OrderStatusPending
	}
	return []interface{}{
		order.CreatedAt.In(loc).Format(sheetTimestampLayout),
		order.CustomerName,
		order.PhoneNumber,
		order.RoomNumber,
		string(items),
		order.Total,
		order.SpecialInstructions,
		status,
	}, nil
}

func cellAt(row []interface{}, i int) interface{} {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func cellString(row []interface{}, i int) string {
	v := cellAt(row, i)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func parsePrice(v interface{}) (float64, error) {
	switch p := v.(type) {
	case nil:
		return 0, errors.New("price is empty")
	case float64:
		return p, nil
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, p)
		if cleaned == "" {
			return 0, fmt.Errorf("price %q is not a number", p)
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, fmt.Errorf("price %q is not a number", p)
		}
		return f, nil
	default:
		return parsePrice(fmt.Sprint(p))
	}
}
