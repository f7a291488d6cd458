package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/shared"
)

// DefaultCurrency is the ISO code for Peruvian soles
const DefaultCurrency = "PEN"

// Order (pedido) is a customer purchase from the catalog
type Order struct {
	shared.BaseAggregateRoot
	Code                  string                `gorm:"type:varchar(30);not null;uniqueIndex" json:"code"`
	UserID                *uuid.UUID            `gorm:"type:uuid;index" json:"user_id,omitempty"`
	CustomerName          string                `gorm:"type:varchar(200);not null" json:"customer_name"`
	Email                 string                `gorm:"type:varchar(200);not null;index" json:"email"`
	Phone                 string                `gorm:"type:varchar(30);not null" json:"phone"`
	DocumentType          identity.DocumentType `gorm:"type:varchar(10)" json:"document_type,omitempty"`
	DocumentNumber        string                `gorm:"type:varchar(20)" json:"document_number,omitempty"`
	ShippingAddress       string                `gorm:"type:varchar(300);not null" json:"shipping_address"`
	District              string                `gorm:"type:varchar(100)" json:"district"`
	City                  string                `gorm:"type:varchar(100);not null" json:"city"`
	Reference             string                `gorm:"type:varchar(300)" json:"reference,omitempty"`
	Items                 []Item                `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal              decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	ShippingCost          decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"shipping_cost"`
	Total                 decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"total"`
	Currency              string                `gorm:"type:varchar(3);not null;default:'PEN'" json:"currency"`
	PaymentMethod         PaymentMethod         `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus         PaymentStatus         `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	Status                Status                `gorm:"type:varchar(20);not null;index" json:"status"`
	StripePaymentIntentID string                `gorm:"type:varchar(100);index" json:"stripe_payment_intent_id,omitempty"`
	ReceiptType           ReceiptType           `gorm:"type:varchar(10);not null;default:'BOLETA'" json:"receipt_type"`
	Notes                 string                `gorm:"type:text" json:"notes,omitempty"`
	CancelReason          string                `gorm:"type:varchar(300)" json:"cancel_reason,omitempty"`
	PaidAt                *time.Time            `json:"paid_at,omitempty"`
	DeliveredAt           *time.Time            `json:"delivered_at,omitempty"`
	Evidence              []Evidence            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"evidence,omitempty"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// Item is a priced line of an order. Product name and price are copied
// at order time so later catalog edits do not change the order.
type Item struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	ProductName string          `gorm:"type:varchar(200);not null" json:"product_name"`
	SKU         string          `gorm:"type:varchar(60)" json:"sku,omitempty"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "order_items"
}

// Customer holds the buyer and delivery details of an order
type Customer struct {
	UserID          *uuid.UUID
	Name            string
	Email           string
	Phone           string
	DocumentType    identity.DocumentType
	DocumentNumber  string
	ShippingAddress string
	District        string
	City            string
	Reference       string
}

// LineInput is a priced line to add to a new order
type LineInput struct {
	ProductID   uuid.UUID
	ProductName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// NewOrder builds a pending order with computed totals
func NewOrder(code string, customer Customer, lines []LineInput, shipping decimal.Decimal,
	method PaymentMethod, receiptType ReceiptType) (*Order, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_CODE", "Order code cannot be empty")
	}
	if err := validateCustomer(customer); err != nil {
		return nil, err
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method must be TARJETA or CONTRA_ENTREGA")
	}
	if receiptType == "" {
		receiptType = ReceiptTypeBoleta
	}
	if !receiptType.IsValid() {
		return nil, shared.NewDomainError("INVALID_RECEIPT_TYPE", "Receipt type must be BOLETA or FACTURA")
	}
	if receiptType == ReceiptTypeFactura {
		if customer.DocumentType != identity.DocumentTypeRUC {
			return nil, shared.NewDomainError("RUC_REQUIRED", "A factura requires the customer's RUC")
		}
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must contain at least one item")
	}
	if shipping.IsNegative() {
		return nil, shared.NewDomainError("INVALID_SHIPPING", "Shipping cost cannot be negative")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		UserID:            customer.UserID,
		CustomerName:      strings.TrimSpace(customer.Name),
		Email:             identity.NormalizeEmail(customer.Email),
		Phone:             strings.TrimSpace(customer.Phone),
		DocumentType:      customer.DocumentType,
		DocumentNumber:    customer.DocumentNumber,
		ShippingAddress:   strings.TrimSpace(customer.ShippingAddress),
		District:          strings.TrimSpace(customer.District),
		City:              strings.TrimSpace(customer.City),
		Reference:         strings.TrimSpace(customer.Reference),
		ShippingCost:      shipping.Round(2),
		Currency:          DefaultCurrency,
		PaymentMethod:     method,
		PaymentStatus:     PaymentStatusPendiente,
		Status:            StatusPendiente,
		ReceiptType:       receiptType,
	}

	seen := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("Quantity for %s must be positive", line.ProductName))
		}
		if line.UnitPrice.IsNegative() {
			return nil, shared.NewDomainError("INVALID_PRICE", fmt.Sprintf("Price for %s cannot be negative", line.ProductName))
		}
		if idx, ok := seen[line.ProductID]; ok {
			o.Items[idx].Quantity += line.Quantity
			o.Items[idx].Subtotal = o.Items[idx].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[idx].Quantity)))
			continue
		}
		price := line.UnitPrice.Round(2)
		seen[line.ProductID] = len(o.Items)
		o.Items = append(o.Items, Item{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			SKU:         line.SKU,
			UnitPrice:   price,
			Quantity:    line.Quantity,
			Subtotal:    price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	o.recalculateTotals()
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

func (o *Order) recalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Subtotal)
	}
	o.Subtotal = subtotal.Round(2)
	o.Total = o.Subtotal.Add(o.ShippingCost).Round(2)
}

// AmountInCents returns the total in the smallest currency unit (céntimos)
func (o *Order) AmountInCents() int64 {
	return o.Total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ItemCount returns the total number of units ordered
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// AttachPaymentIntent records the Stripe PaymentIntent created for a card order
func (o *Order) AttachPaymentIntent(intentID string) error {
	if o.PaymentMethod != PaymentMethodTarjeta {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Only card orders have a payment intent")
	}
	o.StripePaymentIntentID = intentID
	o.Touch()
	return nil
}

// ConfirmCashOnDelivery confirms a contra-entrega order right away; the
// payment stays pending until the courier collects it.
func (o *Order) ConfirmCashOnDelivery() error {
	if o.PaymentMethod != PaymentMethodContraEntrega {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Order is not cash on delivery")
	}
	return o.ChangeStatus(StatusConfirmado)
}

// MarkPaid records a successful payment and confirms a pending order
func (o *Order) MarkPaid() error {
	if o.PaymentStatus == PaymentStatusPagado {
		return nil
	}
	if o.PaymentStatus == PaymentStatusReembolsado || o.Status == StatusCancelado {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("Cannot mark order %s as paid", o.Code))
	}
	now := time.Now()
	o.PaymentStatus = PaymentStatusPagado
	o.PaidAt = &now
	if o.Status == StatusPendiente {
		o.Status = StatusConfirmado
	}
	o.Touch()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderPaidEvent(o))
	return nil
}

// MarkPaymentFailed records a declined card payment
func (o *Order) MarkPaymentFailed() error {
	if o.PaymentStatus == PaymentStatusPagado || o.PaymentStatus == PaymentStatusReembolsado {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Payment already settled")
	}
	o.PaymentStatus = PaymentStatusFallido
	o.Touch()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, o.Status))
	return nil
}

// MarkRefunded records a refund of a paid order
func (o *Order) MarkRefunded() error {
	if o.PaymentStatus != PaymentStatusPagado {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Only paid orders can be refunded")
	}
	o.PaymentStatus = PaymentStatusReembolsado
	o.Touch()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, o.Status))
	return nil
}

// ChangeStatus moves the order along its fulfillment flow
func (o *Order) ChangeStatus(target Status) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status %s", target))
	}
	if target == StatusCancelado {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Use Cancel to cancel an order")
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("Cannot change order status from %s to %s", o.Status, target))
	}
	// Card orders ship only after payment.
	if o.PaymentMethod == PaymentMethodTarjeta && o.PaymentStatus != PaymentStatusPagado && target != StatusConfirmado {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Card order is not paid yet")
	}
	previous := o.Status
	o.Status = target
	if target == StatusEntregado {
		now := time.Now()
		o.DeliveredAt = &now
	}
	o.Touch()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, previous))
	return nil
}

// CollectCash marks a delivered contra-entrega order as paid
func (o *Order) CollectCash() error {
	if o.PaymentMethod != PaymentMethodContraEntrega {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Order is not cash on delivery")
	}
	if o.Status == StatusCancelado {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Order is cancelled")
	}
	return o.MarkPaid()
}

// Cancel cancels a non-final order. The caller releases stock and refunds
// when NeedsRefund reports true.
func (o *Order) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(StatusCancelado) {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("Cannot cancel an order in %s status", o.Status))
	}
	previous := o.Status
	o.Status = StatusCancelado
	o.CancelReason = strings.TrimSpace(reason)
	o.Touch()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, previous))
	return nil
}

// NeedsRefund reports whether a cancelled order was paid by card
func (o *Order) NeedsRefund() bool {
	return o.Status == StatusCancelado && o.PaymentMethod == PaymentMethodTarjeta &&
		o.PaymentStatus == PaymentStatusPagado && o.StripePaymentIntentID != ""
}

// AddEvidence attaches a delivery/installation photo
func (o *Order) AddEvidence(url, objectKey, description string, uploadedBy *uuid.UUID) (*Evidence, error) {
	if o.Status == StatusCancelado {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Cannot add evidence to a cancelled order")
	}
	if url == "" {
		return nil, shared.NewDomainError("INVALID_EVIDENCE", "Evidence URL cannot be empty")
	}
	ev := Evidence{
		ID:          uuid.New(),
		OrderID:     o.ID,
		URL:         url,
		ObjectKey:   objectKey,
		Description: strings.TrimSpace(description),
		UploadedBy:  uploadedBy,
		CreatedAt:   time.Now(),
	}
	o.Evidence = append(o.Evidence, ev)
	o.Touch()
	o.AddDomainEvent(NewOrderEvidenceAddedEvent(o, ev))
	return &ev, nil
}

// BelongsTo reports whether the order was placed by the given user
func (o *Order) BelongsTo(userID uuid.UUID) bool {
	return o.UserID != nil && *o.UserID == userID
}

// CanDelete reports whether an admin may remove the order
func (o *Order) CanDelete() bool {
	return o.Status == StatusCancelado
}

// MarkDeleted records the deletion event before the row is removed
func (o *Order) MarkDeleted() {
	o.AddDomainEvent(NewOrderDeletedEvent(o))
}

func validateCustomer(c Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if err := identity.ValidateEmail(c.Email); err != nil {
		return err
	}
	if strings.TrimSpace(c.Phone) == "" {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot be empty")
	}
	if strings.TrimSpace(c.ShippingAddress) == "" || strings.TrimSpace(c.City) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Shipping address and city are required")
	}
	if c.DocumentNumber != "" {
		if err := identity.ValidateDocument(c.DocumentType, c.DocumentNumber); err != nil {
			return err
		}
	}
	return nil
}
