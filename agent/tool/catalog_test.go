package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

type fakeMenu struct {
	items []contractx.MenuItem
	err   error
	calls int
}

func (f *fakeMenu) ListItems(ctx context.Context) ([]contractx.MenuItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]contractx.MenuItem(nil), f.items...), nil
}

type fakeOrders struct {
	orders []contractx.Order
	err    error
}

func (f *fakeOrders) AppendOrder(ctx context.Context, order contractx.Order) error {
	if f.err != nil {
		return f.err
	}
	f.orders = append(f.orders, order)
	return nil
}

type fakeReporter struct {
	failures []contractx.ToolFailure
}

func (f *fakeReporter) ReportToolFailure(ctx context.Context, failure contractx.ToolFailure) {
	f.failures = append(f.failures, failure)
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestCatalog(t *testing.T, menu *fakeMenu, orders *fakeOrders, reporter *fakeReporter, cfg Config) *Catalog {
	t.Helper()
	c, err := NewCatalog(menu, orders, reporter, cfg,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "order-1" }),
	)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c
}

func call(id, name, args string) schema.ToolCall {
	return schema.ToolCall{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}
}

func TestCatalogInfosOrder(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t, &fakeMenu{}, &fakeOrders{}, &fakeReporter{}, Config{})
	infos := c.Infos()
	if len(infos) != 3 {
		t.Fatalf("expected 3 tool infos, got %d", len(infos))
	}
	want := []string{"get_menu", "get_item_details", "place_order"}
	for i, name := range want {
		if infos[i].Name != name {
			t.Fatalf("infos[%d].Name = %q, want %q", i, infos[i].Name, name)
		}
	}
}

func TestCatalogUnknownTool(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t, &fakeMenu{}, &fakeOrders{}, &fakeReporter{}, Config{})
	_, err := c.Execute(context.Background(), call("c1", "cancel_order", `{}`))
	if !errors.Is(err, contractx.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) || unknown.Name != "cancel_order" {
		t.Fatalf("expected *UnknownToolError for cancel_order, got %#v", err)
	}
}

func TestNewCatalogRejectsBadPolicy(t *testing.T) {
	t.Parallel()

	_, err := NewCatalog(&fakeMenu{}, &fakeOrders{}, nil, Config{UnknownItemPolicy: "maybe"})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGetMenuFormatsItems(t *testing.T) {
	t.Parallel()

	menu := &fakeMenu{items: []contractx.MenuItem{
		{Name: "Masala Dosa", Price: 120, Category: "Breakfast", Description: "Crispy dosa with potato filling"},
		{Name: "Filter Coffee", Price: 50, Category: "Beverages"},
	}}
	c := newTestCatalog(t, menu, &fakeOrders{}, &fakeReporter{}, Config{})

	out, err := c.Execute(context.Background(), call("c1", "get_menu", ""))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{
		"HOTEL MENU",
		"*Masala Dosa*",
		"₹120 | Breakfast",
		"Crispy dosa with potato filling",
		"*Filter Coffee*",
		"₹50 | Beverages",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("menu text missing %q:\n%s", want, out)
		}
	}
}

func TestGetMenuStoreUnavailable(t *testing.T) {
	t.Parallel()

	reporter := &fakeReporter{}
	c := newTestCatalog(t, &fakeMenu{err: contractx.ErrStoreUnavailable}, &fakeOrders{}, reporter, Config{})

	out, err := c.Execute(context.Background(), call("c1", "get_menu", `{}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != menuUnavailableText {
		t.Fatalf("unexpected text: %q", out)
	}
	if len(reporter.failures) != 1 || reporter.failures[0].Kind != contractx.FailureStoreUnavailable {
		t.Fatalf("expected one store_unavailable failure, got %#v", reporter.failures)
	}
	if reporter.failures[0].Tool != "get_menu" {
		t.Fatalf("unexpected failure tool: %s", reporter.failures[0].Tool)
	}
}

func TestGetItemDetailsFirstCaseInsensitiveMatch(t *testing.T) {
	t.Parallel()

	menu := &fakeMenu{items: []contractx.MenuItem{
		{Name: "Masala Dosa", Price: 120, Category: "Breakfast"},
		{Name: "Masala Maggi", Price: 80, Category: "Snacks"},
	}}
	c := newTestCatalog(t, menu, &fakeOrders{}, &fakeReporter{}, Config{})

	out, err := c.Execute(context.Background(), call("c1", "get_item_details", `{"item_name":"masala"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out, "*Masala Dosa*\n") {
		t.Fatalf("expected Masala Dosa first, got %q", out)
	}
	if strings.Contains(out, "Maggi") {
		t.Fatalf("expected only the first match, got %q", out)
	}
	if !strings.Contains(out, "Price: ₹120") || !strings.Contains(out, "Category: Breakfast") {
		t.Fatalf("unexpected details: %q", out)
	}
}

func TestGetItemDetailsNotFound(t *testing.T) {
	t.Parallel()

	menu := &fakeMenu{items: []contractx.MenuItem{{Name: "Tea", Price: 20}}}
	c := newTestCatalog(t, menu, &fakeOrders{}, &fakeReporter{}, Config{})

	out, _ := c.Execute(context.Background(), call("c1", "get_item_details", `{"item_name":"Pizza"}`))
	if out != "Item 'Pizza' not found in menu." {
		t.Fatalf("unexpected text: %q", out)
	}
}

func TestGetItemDetailsRequiresName(t *testing.T) {
	t.Parallel()

	reporter := &fakeReporter{}
	menu := &fakeMenu{items: []contractx.MenuItem{{Name: "Tea", Price: 20}}}
	c := newTestCatalog(t, menu, &fakeOrders{}, reporter, Config{})

	out, err := c.Execute(context.Background(), call("c1", "get_item_details", `{"item_name":"  "}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "item_name is required") {
		t.Fatalf("unexpected text: %q", out)
	}
	if menu.calls != 0 {
		t.Fatalf("menu must not be read for invalid input, got %d calls", menu.calls)
	}
	if len(reporter.failures) != 1 || reporter.failures[0].Kind != contractx.FailureInvalidInput {
		t.Fatalf("expected invalid_input failure, got %#v", reporter.failures)
	}
}

func TestGetItemDetailsStoreUnavailable(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t, &fakeMenu{err: errors.New("sheet offline")}, &fakeOrders{}, &fakeReporter{}, Config{})
	out, _ := c.Execute(context.Background(), call("c1", "get_item_details", `{"item_name":"tea"}`))
	if out != detailUnavailableText {
		t.Fatalf("unexpected text: %q", out)
	}
}

func TestExecuteAttributesFailuresToUser(t *testing.T) {
	t.Parallel()

	reporter := &fakeReporter{}
	c := newTestCatalog(t, &fakeMenu{err: errors.New("offline")}, &fakeOrders{}, reporter, Config{})

	ctx := WithUserID(context.Background(), "whatsapp:+911234567890")
	if _, err := c.Execute(ctx, call("c1", "get_menu", "")); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(reporter.failures) != 1 {
		t.Fatalf("expected one failure, got %d", len(reporter.failures))
	}
	got := reporter.failures[0]
	if got.UserID != "whatsapp:+911234567890" {
		t.Fatalf("UserID = %q", got.UserID)
	}
	if !got.OccurredAt.Equal(fixedNow) {
		t.Fatalf("OccurredAt = %v, want %v", got.OccurredAt, fixedNow)
	}
}
