package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a subscriber row keyed by phone number.
type User struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

// PurchasedBundle is a bundle a user bought, resolved through the category
// hierarchy. Internal identifiers are never carried here.
type PurchasedBundle struct {
	MainCategory      string    `json:"main_category"`
	SubCategory       string    `json:"sub_category"`
	Period            string    `json:"period"`
	RemainingQuantity int64     `json:"remaining_quantity"`
	PurchasedAt       time.Time `json:"purchased_at"`
}

// Offer is a quantity/price pair reachable through one (main, sub, period) path.
type Offer struct {
	MainCategory string          `json:"main_category"`
	SubCategory  string          `json:"sub_category"`
	Period       string          `json:"period"`
	Quantity     int64           `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

// OfferFilter narrows FindOffers. Empty fields impose no filter.
type OfferFilter struct {
	MainCategory string `json:"main_category,omitempty"`
	SubCategory  string `json:"sub_category,omitempty"`
	Period       string `json:"period,omitempty"` // canonical: day, week or month
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Phone    string                 `json:"phone"`
	Message  string                 `json:"message"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ChatPayload is the decoded body of POST /chat before validation. Pointer
// fields distinguish an absent key from an empty string.
type ChatPayload struct {
	Phone    *string                `json:"phone"`
	Message  *string                `json:"message"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Request converts a validated payload. Absent fields become empty strings.
func (p ChatPayload) Request() ChatRequest {
	req := ChatRequest{Metadata: p.Metadata}
	if p.Phone != nil {
		req.Phone = *p.Phone
	}
	if p.Message != nil {
		req.Message = *p.Message
	}
	return req
}

// ChatResponse is the success payload of POST /chat. User is only set for
// profile queries.
type ChatResponse struct {
	Reply string `json:"reply"`
	User  *User  `json:"user,omitempty"`
}

// StatusResponse is returned by GET /.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
