package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

// ID names one of the tools the assistant may call. The set is closed.
type ID string

const (
	GetMenu        ID = "get_menu"
	GetItemDetails ID = "get_item_details"
	PlaceOrder     ID = "place_order"
)

// IDs lists every tool in the order they are advertised to the model.
var IDs = []ID{GetMenu, GetItemDetails, PlaceOrder}

type UnknownItemPolicy string

const (
	// PriceUnknownAsZero keeps unknown items on the order at no charge.
	PriceUnknownAsZero UnknownItemPolicy = "zero"
	// RejectUnknownItems refuses orders naming items that are not on the menu.
	RejectUnknownItems UnknownItemPolicy = "reject"
)

type Config struct {
	Currency          string            `split_words:"true" default:"₹"`
	UnknownItemPolicy UnknownItemPolicy `split_words:"true" default:"zero"`
}

func (c *Config) Validate() error {
	switch c.UnknownItemPolicy {
	case "", PriceUnknownAsZero, RejectUnknownItems:
		return nil
	default:
		return fmt.Errorf("%w: unknown item policy %q", contractx.ErrValidation, c.UnknownItemPolicy)
	}
}

// UnknownToolError is returned when the model asks for a tool outside the catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q is not in the catalog", e.Name)
}

func (e *UnknownToolError) Unwrap() error {
	return contractx.ErrUnknownTool
}

// Handler is a single callable tool. Invoke never fails: problems are
// reported back as text the model can relay to the guest.
type Handler interface {
	ID() ID
	Info() *schema.ToolInfo
	Invoke(ctx context.Context, rawArgs string) string
}

type Option func(*Catalog)

func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Catalog) {
		if newID != nil {
			c.newID = newID
		}
	}
}

type Catalog struct {
	menu     contractx.MenuStore
	orders   contractx.OrderStore
	reporter contractx.FailureReporter

	currency string
	policy   UnknownItemPolicy
	now      func() time.Time
	newID    func() string

	handlers map[ID]Handler
}

func NewCatalog(
	menu contractx.MenuStore,
	orders contractx.OrderStore,
	reporter contractx.FailureReporter,
	cfg Config,
	opts ...Option,
) (*Catalog, error) {
	if menu == nil {
		return nil, errors.New("menu store is required")
	}
	if orders == nil {
		return nil, errors.New("order store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = noopReporter{}
	}

	currency := cfg.Currency
	if currency == "" {
		currency = "₹"
	}
	policy := cfg.UnknownItemPolicy
	if policy == "" {
		policy = PriceUnknownAsZero
	}

	c := &Catalog{
		menu:     menu,
		orders:   orders,
		reporter: reporter,
		currency: currency,
		policy:   policy,
		now:      time.Now,
		newID:    newOrderID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.handlers = map[ID]Handler{
		GetMenu:        c.getMenuHandler(),
		GetItemDetails: c.getItemDetailsHandler(),
		PlaceOrder:     c.placeOrderHandler(),
	}
	return c, nil
}

// Infos returns the tool schemas to bind to the chat model.
func (c *Catalog) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(IDs))
	for _, id := range IDs {
		infos = append(infos, c.handlers[id].Info())
	}
	return infos
}

// Resolve maps a model-supplied tool name onto the closed ID set.
func (c *Catalog) Resolve(name string) (ID, error) {
	id := ID(strings.TrimSpace(name))
	if _, ok := c.handlers[id]; !ok {
		return "", &UnknownToolError{Name: name}
	}
	return id, nil
}

// Execute runs one tool call. The only error it returns is *UnknownToolError.
func (c *Catalog) Execute(ctx context.Context, call schema.ToolCall) (string, error) {
	id, err := c.Resolve(call.Function.Name)
	if err != nil {
		return "", err
	}

	start := c.now()
	out := c.handlers[id].Invoke(ctx, call.Function.Arguments)

	log.Debug().
		Str("tool", string(id)).
		Str("call_id", call.ID).
		Str("user_id", UserIDFromContext(ctx)).
		Int("result_len", len(out)).
		Dur("elapsed", c.now().Sub(start)).
		Msg("tool executed")
	return out, nil
}

func (c *Catalog) report(ctx context.Context, id ID, kind contractx.FailureKind, detail string) {
	c.reporter.ReportToolFailure(ctx, contractx.ToolFailure{
		Tool:       string(id),
		Kind:       kind,
		Detail:     detail,
		UserID:     UserIDFromContext(ctx),
		OccurredAt: c.now().UTC(),
	})
}

type validatable interface {
	validate() error
}

// typedHandler decodes JSON arguments into A and validates them before
// handing them to run.
type typedHandler[A validatable] struct {
	id        ID
	info      *schema.ToolInfo
	run       func(ctx context.Context, args A) string
	onInvalid func(ctx context.Context, err error) string
}

func (h *typedHandler[A]) ID() ID {
	return h.id
}

func (h *typedHandler[A]) Info() *schema.ToolInfo {
	return h.info
}

func (h *typedHandler[A]) Invoke(ctx context.Context, rawArgs string) string {
	args, err := decodeArgs[A](rawArgs)
	if err == nil {
		err = args.validate()
	}
	if err != nil {
		return h.onInvalid(ctx, err)
	}
	return h.run(ctx, args)
}

func decodeArgs[A any](raw string) (A, error) {
	var args A
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return args, fmt.Errorf("invalid arguments: %w", err)
	}
	return args, nil
}

type noopReporter struct{}

func (noopReporter) ReportToolFailure(context.Context, contractx.ToolFailure) {}
