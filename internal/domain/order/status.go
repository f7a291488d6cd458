package order

// Status is the fulfillment status of an order
type Status string

const (
	StatusPendiente     Status = "PENDIENTE"
	StatusConfirmado    Status = "CONFIRMADO"
	StatusEnPreparacion Status = "EN_PREPARACION"
	StatusEnviado       Status = "ENVIADO"
	StatusEntregado     Status = "ENTREGADO"
	StatusCancelado     Status = "CANCELADO"
)

// IsValid reports whether the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusPendiente, StatusConfirmado, StatusEnPreparacion, StatusEnviado, StatusEntregado, StatusCancelado:
		return true
	}
	return false
}

// IsFinal reports whether the order can no longer change
func (s Status) IsFinal() bool {
	return s == StatusEntregado || s == StatusCancelado
}

// CanTransitionTo reports whether the order may move from s to target
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPendiente:
		return target == StatusConfirmado || target == StatusCancelado
	case StatusConfirmado:
		return target == StatusEnPreparacion || target == StatusCancelado
	case StatusEnPreparacion:
		return target == StatusEnviado || target == StatusCancelado
	case StatusEnviado:
		return target == StatusEntregado || target == StatusCancelado
	}
	return false
}

// Label returns the customer-facing Spanish label
func (s Status) Label() string {
	switch s {
	case StatusPendiente:
		return "Pendiente de pago"
	case StatusConfirmado:
		return "Confirmado"
	case StatusEnPreparacion:
		return "En preparación"
	case StatusEnviado:
		return "Enviado"
	case StatusEntregado:
		return "Entregado"
	case StatusCancelado:
		return "Cancelado"
	}
	return string(s)
}

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentMethodTarjeta       PaymentMethod = "TARJETA"
	PaymentMethodContraEntrega PaymentMethod = "CONTRA_ENTREGA"
)

// IsValid reports whether the payment method is known
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodTarjeta || m == PaymentMethodContraEntrega
}

// PaymentStatus tracks the money side of an order
type PaymentStatus string

const (
	PaymentStatusPendiente   PaymentStatus = "PENDIENTE"
	PaymentStatusPagado      PaymentStatus = "PAGADO"
	PaymentStatusFallido     PaymentStatus = "FALLIDO"
	PaymentStatusReembolsado PaymentStatus = "REEMBOLSADO"
)

// IsValid reports whether the payment status is known
func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusPendiente, PaymentStatusPagado, PaymentStatusFallido, PaymentStatusReembolsado:
		return true
	}
	return false
}

// ReceiptType is the kind of comprobante requested by the customer
type ReceiptType string

const (
	ReceiptTypeBoleta  ReceiptType = "BOLETA"
	ReceiptTypeFactura ReceiptType = "FACTURA"
)

// IsValid reports whether the receipt type is known
func (r ReceiptType) IsValid() bool {
	return r == ReceiptTypeBoleta || r == ReceiptTypeFactura
}
