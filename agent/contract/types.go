package contract

import (
	"strings"
	"time"
)

const OrderStatusPending = "Pending"

type MenuItem struct {
	Name        string  `json:"name" yaml:"name"`
	Price       float64 `json:"price" yaml:"price"`
	Category    string  `json:"category,omitempty" yaml:"category"`
	Description string  `json:"description,omitempty" yaml:"description"`
}

type OrderLine struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

type Order struct {
	ID                  string      `json:"id"`
	CustomerName        string      `json:"customer_name"`
	PhoneNumber         string      `json:"phone_number"`
	RoomNumber          string      `json:"room_number"`
	Lines               []OrderLine `json:"items"`
	Total               float64     `json:"total_amount"`
	SpecialInstructions string      `json:"special_instructions,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	Status              string      `json:"status"`
}

// PriceIndex maps lower-cased item names to their price. Later duplicates
// do not override earlier rows.
func PriceIndex(items []MenuItem) map[string]float64 {
	index := make(map[string]float64, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item.Name))
		if key == "" {
			continue
		}
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = item.Price
	}
	return index
}

type FailureKind string

const (
	FailureStoreUnavailable FailureKind = "store_unavailable"
	FailureInvalidInput     FailureKind = "invalid_input"
	FailureOrderRejected    FailureKind = "order_rejected"
	FailureOrderStore       FailureKind = "order_store_failed"
)

// ToolFailure is the structured counterpart of the apology text a tool
// returns to the model.
type ToolFailure struct {
	Tool       string      `json:"tool"`
	Kind       FailureKind `json:"kind"`
	Detail     string      `json:"detail"`
	UserID     string      `json:"user_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}
