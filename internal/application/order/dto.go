package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/order"
)

// Requester identifies who is calling. A zero value is an anonymous visitor.
type Requester struct {
	UserID *uuid.UUID
	Admin  bool
}

// LineRequest is one cart line
type LineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=1000"`
}

// CheckoutRequest is shared by card and contra-entrega checkout
type CheckoutRequest struct {
	CustomerName    string                `json:"customer_name" binding:"required,min=2,max=200"`
	Email           string                `json:"email" binding:"required,email,max=200"`
	Phone           string                `json:"phone" binding:"required,max=30"`
	DocumentType    identity.DocumentType `json:"document_type" binding:"omitempty,oneof=DNI RUC CE"`
	DocumentNumber  string                `json:"document_number" binding:"max=20"`
	ShippingAddress string                `json:"shipping_address" binding:"required,max=300"`
	District        string                `json:"district" binding:"max=100"`
	City            string                `json:"city" binding:"required,max=100"`
	Reference       string                `json:"reference" binding:"max=300"`
	ReceiptType     order.ReceiptType     `json:"receipt_type" binding:"omitempty,oneof=BOLETA FACTURA"`
	Notes           string                `json:"notes" binding:"max=1000"`
	Items           []LineRequest         `json:"items" binding:"required,min=1,max=50,dive"`
}

// UpdateStatusRequest moves an order along its lifecycle
type UpdateStatusRequest struct {
	Status  order.Status `json:"status" binding:"required"`
	Comment string       `json:"comment" binding:"max=1000"`
}

// CancelRequest cancels an order
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=300"`
}

// ItemResponse is one order line
type ItemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// EvidenceResponse is a delivery photo
type EvidenceResponse struct {
	ID          uuid.UUID  `json:"id"`
	URL         string     `json:"url"`
	Description string     `json:"description,omitempty"`
	UploadedBy  *uuid.UUID `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uuid.UUID             `json:"id"`
	Code            string                `json:"code"`
	UserID          *uuid.UUID            `json:"user_id,omitempty"`
	CustomerName    string                `json:"customer_name"`
	Email           string                `json:"email"`
	Phone           string                `json:"phone"`
	DocumentType    identity.DocumentType `json:"document_type,omitempty"`
	DocumentNumber  string                `json:"document_number,omitempty"`
	ShippingAddress string                `json:"shipping_address"`
	District        string                `json:"district"`
	City            string                `json:"city"`
	Reference       string                `json:"reference,omitempty"`
	Items           []ItemResponse        `json:"items"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	ShippingCost    decimal.Decimal       `json:"shipping_cost"`
	Total           decimal.Decimal       `json:"total"`
	Currency        string                `json:"currency"`
	PaymentMethod   order.PaymentMethod   `json:"payment_method"`
	PaymentStatus   order.PaymentStatus   `json:"payment_status"`
	Status          order.Status          `json:"status"`
	StatusLabel     string                `json:"status_label"`
	ReceiptType     order.ReceiptType     `json:"receipt_type"`
	Notes           string                `json:"notes,omitempty"`
	CancelReason    string                `json:"cancel_reason,omitempty"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	DeliveredAt     *time.Time            `json:"delivered_at,omitempty"`
	Evidence        []EvidenceResponse    `json:"evidence,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// CheckoutResponse is returned by checkout. Card orders carry the Stripe
// client secret the browser confirms the payment with.
type CheckoutResponse struct {
	Order          OrderResponse `json:"order"`
	ClientSecret   string        `json:"client_secret,omitempty"`
	PublishableKey string        `json:"publishable_key,omitempty"`
	WhatsAppLink   string        `json:"whatsapp_link,omitempty"`
}

// CancelResult reports what happened to the payment of a cancelled order
type CancelResult struct {
	Order    OrderResponse `json:"order"`
	Refunded bool          `json:"refunded"`
	// RefundError is set when the card refund has to be retried by hand
	RefundError string `json:"refund_error,omitempty"`
}

// WebhookResult tells the caller how a Stripe event was handled
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Duplicate bool   `json:"duplicate"`
	Handled   bool   `json:"handled"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		Code:            o.Code,
		UserID:          o.UserID,
		CustomerName:    o.CustomerName,
		Email:           o.Email,
		Phone:           o.Phone,
		DocumentType:    o.DocumentType,
		DocumentNumber:  o.DocumentNumber,
		ShippingAddress: o.ShippingAddress,
		District:        o.District,
		City:            o.City,
		Reference:       o.Reference,
		Items:           make([]ItemResponse, len(o.Items)),
		Subtotal:        o.Subtotal,
		ShippingCost:    o.ShippingCost,
		Total:           o.Total,
		Currency:        o.Currency,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		Status:          o.Status,
		StatusLabel:     o.Status.Label(),
		ReceiptType:     o.ReceiptType,
		Notes:           o.Notes,
		CancelReason:    o.CancelReason,
		PaidAt:          o.PaidAt,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for i, item := range o.Items {
		resp.Items[i] = ItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal,
		}
	}
	for i := range o.Evidence {
		resp.Evidence = append(resp.Evidence, toEvidenceResponse(&o.Evidence[i]))
	}
	return resp
}

func toEvidenceResponse(ev *order.Evidence) EvidenceResponse {
	return EvidenceResponse{
		ID:          ev.ID,
		URL:         ev.URL,
		Description: ev.Description,
		UploadedBy:  ev.UploadedBy,
		CreatedAt:   ev.CreatedAt,
	}
}
