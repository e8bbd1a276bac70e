package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

const orderFailedText = "❌ Failed to place order. Please try again or contact support."

type placeOrderArgs struct {
	CustomerName        string          `json:"customer_name"`
	PhoneNumber         string          `json:"phone_number"`
	RoomNumber          string          `json:"room_number"`
	Items               json.RawMessage `json:"items"`
	SpecialInstructions string          `json:"special_instructions"`
}

func (a placeOrderArgs) validate() error {
	var missing []string
	if strings.TrimSpace(a.CustomerName) == "" {
		missing = append(missing, "customer_name")
	}
	if strings.TrimSpace(a.PhoneNumber) == "" {
		missing = append(missing, "phone_number")
	}
	if strings.TrimSpace(a.RoomNumber) == "" {
		missing = append(missing, "room_number")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	_, err := ParseOrderLines(a.Items)
	return err
}

type rawOrderLine struct {
	Item     string          `json:"item"`
	Name     string          `json:"name"`
	Quantity json.RawMessage `json:"quantity"`
}

// ParseOrderLines accepts either a JSON array of lines or a JSON string
// holding that array. Lines may name the item with "item" or "name".
func ParseOrderLines(raw json.RawMessage) ([]contractx.OrderLine, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, errors.New("items is required")
	}

	payload := []byte(trimmed)
	if strings.HasPrefix(trimmed, `"`) {
		var encoded string
		if err := json.Unmarshal(payload, &encoded); err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		payload = []byte(strings.TrimSpace(encoded))
	}

	var rawLines []rawOrderLine
	if err := json.Unmarshal(payload, &rawLines); err != nil {
		return nil, fmt.Errorf("items must be a JSON list of {\"item\", \"quantity\"}: %w", err)
	}
	if len(rawLines) == 0 {
		return nil, errors.New("items must not be empty")
	}

	lines := make([]contractx.OrderLine, 0, len(rawLines))
	for i, rl := range rawLines {
		name := strings.TrimSpace(rl.Item)
		if name == "" {
			name = strings.TrimSpace(rl.Name)
		}
		if name == "" {
			return nil, fmt.Errorf("items[%d]: item name is required", i)
		}
		qty, err := parseQuantity(rl.Quantity)
		if err != nil {
			return nil, fmt.Errorf("items[%d] (%s): %w", i, name, err)
		}
		lines = append(lines, contractx.OrderLine{Item: name, Quantity: qty})
	}
	return lines, nil
}

func parseQuantity(raw json.RawMessage) (int, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, errors.New("quantity is required")
	}
	trimmed = strings.Trim(trimmed, `"`)

	f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q is not a number", trimmed)
	}
	if f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return 0, fmt.Errorf("quantity must be a positive whole number, got %s", trimmed)
	}
	return int(f), nil
}

// OrderTotal prices lines against the menu by case-insensitive exact name.
// Lines without a menu match contribute nothing and are returned as unknown.
func OrderTotal(lines []contractx.OrderLine, menu []contractx.MenuItem) (float64, []string) {
	prices := contractx.PriceIndex(menu)

	var (
		total   float64
		unknown []string
	)
	for _, line := range lines {
		price, ok := prices[strings.ToLower(strings.TrimSpace(line.Item))]
		if !ok {
			unknown = append(unknown, line.Item)
			continue
		}
		total += price * float64(line.Quantity)
	}
	return math.Round(total*100) / 100, unknown
}

func (c *Catalog) placeOrderHandler() Handler {
	return &typedHandler[placeOrderArgs]{
		id: PlaceOrder,
		info: &schema.ToolInfo{
			Name: string(PlaceOrder),
			Desc: "Place an order for the customer. Collect name, room number, items with quantities and any special instructions first.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customer_name": {Type: schema.String, Desc: "Customer's name", Required: true},
				"phone_number":  {Type: schema.String, Desc: "Customer's phone number", Required: true},
				"room_number":   {Type: schema.String, Desc: "Hotel room number", Required: true},
				"items": {
					Type:     schema.String,
					Desc:     `JSON string of ordered items with quantities, e.g. [{"item": "Masala Dosa", "quantity": 2}]`,
					Required: true,
				},
				"special_instructions": {Type: schema.String, Desc: "Any special requests"},
			}),
		},
		run: c.placeOrder,
		onInvalid: func(ctx context.Context, err error) string {
			c.report(ctx, PlaceOrder, contractx.FailureInvalidInput, err.Error())
			return "Error placing order: " + err.Error()
		},
	}
}

func (c *Catalog) placeOrder(ctx context.Context, args placeOrderArgs) string {
	lines, err := ParseOrderLines(args.Items)
	if err != nil {
		c.report(ctx, PlaceOrder, contractx.FailureInvalidInput, err.Error())
		return "Error placing order: " + err.Error()
	}

	// Without the menu nothing can be priced, so no order is written.
	menu, err := c.menu.ListItems(ctx)
	if err != nil {
		c.report(ctx, PlaceOrder, contractx.FailureStoreUnavailable, err.Error())
		return orderFailedText
	}

	total, unknown := OrderTotal(lines, menu)
	if len(unknown) > 0 && c.policy == RejectUnknownItems {
		detail := fmt.Sprintf("%v: not on the menu: %s", contractx.ErrOrderRejected, strings.Join(unknown, ", "))
		c.report(ctx, PlaceOrder, contractx.FailureOrderRejected, detail)
		return fmt.Sprintf("Error placing order: these items are not on the menu: %s. Please choose items from the menu.", strings.Join(unknown, ", "))
	}

	order := contractx.Order{
		ID:                  c.newID(),
		CustomerName:        strings.TrimSpace(args.CustomerName),
		PhoneNumber:         strings.TrimSpace(args.PhoneNumber),
		RoomNumber:          strings.TrimSpace(args.RoomNumber),
		Lines:               lines,
		Total:               total,
		SpecialInstructions: strings.TrimSpace(args.SpecialInstructions),
		CreatedAt:           c.now(),
		Status:              contractx.OrderStatusPending,
	}

	if err := c.orders.AppendOrder(ctx, order); err != nil {
		c.report(ctx, PlaceOrder, contractx.FailureOrderStore, err.Error())
		return orderFailedText
	}

	return FormatOrderSummary(order, c.currency)
}

func FormatOrderSummary(order contractx.Order, currency string) string {
	var sb strings.Builder
	sb.WriteString("✅ Order placed successfully!\n\n")
	fmt.Fprintf(&sb, "Customer: %s\n", order.CustomerName)
	fmt.Fprintf(&sb, "Room: %s\n", order.RoomNumber)
	sb.WriteString("Items:\n")
	for _, line := range order.Lines {
		fmt.Fprintf(&sb, "  - %dx %s\n", line.Quantity, line.Item)
	}
	if order.Total > 0 {
		fmt.Fprintf(&sb, "\nTotal: %s%s\n", currency, FormatAmount(order.Total))
	}
	if order.SpecialInstructions != "" {
		fmt.Fprintf(&sb, "Special Instructions: %s\n", order.SpecialInstructions)
	}
	sb.WriteString("\nYour order will be delivered shortly!")
	return sb.String()
}

// FormatAmount prints whole amounts without decimals and others with up to two.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func newOrderID() string {
	return uuid.NewString()
}
