package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/application/mail"
	"github.com/induservicios/backend/internal/application/notification"
	"github.com/induservicios/backend/internal/domain/catalog"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/payment"
	"github.com/induservicios/backend/internal/infrastructure/printing"
	"github.com/induservicios/backend/internal/infrastructure/telemetry"
)

// CreateCardOrder reserves stock and opens a Stripe payment intent. The
// order stays PENDIENTE until the payment webhook confirms it.
func (s *Service) CreateCardOrder(ctx context.Context, req CheckoutRequest, requester Requester) (*CheckoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create_card",
		telemetry.AttrPaymentMethod, string(order.PaymentMethodTarjeta))
	defer span.End()
	log := logger.Or(ctx, s.logger)

	if s.gateway == nil || !s.gateway.Enabled() {
		return nil, ErrPaymentUnavailable
	}
	o, err := s.buildOrder(ctx, req, requester, order.PaymentMethodTarjeta)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.AttrOrderID, o.ID.String(), telemetry.AttrOrderCode, o.Code)

	if err := s.orders.Create(ctx, o); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, payment.PaymentIntentInput{
		OrderID:     o.ID.String(),
		OrderCode:   o.Code,
		AmountCents: o.AmountInCents(),
		Currency:    o.Currency,
		Email:       o.Email,
		Description: "Pedido " + o.Code,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.abandon(ctx, o, "No se pudo iniciar el pago")
		return nil, shared.NewDomainError(shared.ErrExternalService.Code, "Could not start the card payment, please try again")
	}
	if err := o.AttachPaymentIntent(intent.ID); err != nil {
		return nil, err
	}
	if err := s.save(ctx, o); err != nil {
		return nil, err
	}

	log.Info("Card order created",
		zap.String("order_id", o.ID.String()),
		zap.String("code", o.Code),
		zap.String("total", o.Total.StringFixed(2)),
		zap.String("payment_intent_id", intent.ID))
	return &CheckoutResponse{
		Order:          toOrderResponse(o),
		ClientSecret:   intent.ClientSecret,
		PublishableKey: s.gateway.PublishableKey(),
	}, nil
}

// CreateCashOnDeliveryOrder registers a contra-entrega order. It is
// confirmed right away and paid on delivery.
func (s *Service) CreateCashOnDeliveryOrder(ctx context.Context, req CheckoutRequest, requester Requester) (*CheckoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create_cod",
		telemetry.AttrPaymentMethod, string(order.PaymentMethodContraEntrega))
	defer span.End()

	if !s.codCityAllowed(req.City) {
		return nil, shared.NewDomainError(ErrCODNotAllowed.Code,
			fmt.Sprintf("Cash on delivery is only available in %s", strings.Join(s.config.Rules.CODCities, ", ")))
	}
	o, err := s.buildOrder(ctx, req, requester, order.PaymentMethodContraEntrega)
	if err != nil {
		return nil, err
	}
	if limit := s.config.Rules.CODMaxAmount; limit.IsPositive() && o.Total.GreaterThan(limit) {
		return nil, shared.NewDomainError(ErrCODNotAllowed.Code,
			fmt.Sprintf("Cash on delivery orders cannot exceed %s", printing.FormatMoney(limit)))
	}
	if err := o.ConfirmCashOnDelivery(); err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.AttrOrderID, o.ID.String(), telemetry.AttrOrderCode, o.Code)

	if err := s.orders.Create(ctx, o); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, o)

	res := s.notifier.Dispatch(ctx, notification.Message{
		Email:    o.Email,
		Phone:    o.Phone,
		Template: mail.TemplateCODConfirmation,
		Vars: map[string]string{
			"name":         o.CustomerName,
			"code":         o.Code,
			"items_html":   itemsHTML(o),
			"total":        printing.FormatMoney(o.Total),
			"address":      strings.TrimSpace(o.ShippingAddress + ", " + o.District + ", " + o.City),
			"tracking_url": s.trackingURL(o),
		},
		WhatsApp: fmt.Sprintf("Hola %s, registramos tu pedido %s por %s con pago contra entrega. %s",
			o.CustomerName, o.Code, printing.FormatMoney(o.Total), s.trackingURL(o)),
	})

	logger.Or(ctx, s.logger).Info("Cash on delivery order created",
		zap.String("order_id", o.ID.String()),
		zap.String("code", o.Code),
		zap.String("total", o.Total.StringFixed(2)),
		zap.String("city", o.City))
	return &CheckoutResponse{Order: toOrderResponse(o), WhatsAppLink: res.WhatsAppLink}, nil
}

// buildOrder prices the cart from the catalog and draws the order code
func (s *Service) buildOrder(ctx context.Context, req CheckoutRequest, requester Requester, method order.PaymentMethod) (*order.Order, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must contain at least one item")
	}

	quantities := make(map[uuid.UUID]int, len(req.Items))
	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantities must be positive")
		}
		if _, seen := quantities[line.ProductID]; !seen {
			ids = append(ids, line.ProductID)
		}
		quantities[line.ProductID] += line.Quantity
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	lines := make([]order.LineInput, 0, len(ids))
	subtotal := decimal.Zero
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.IsActive {
			return nil, shared.NewDomainError(ErrProductUnavailable.Code, fmt.Sprintf("Product %s is not available", id))
		}
		qty := quantities[id]
		if !p.IsPurchasable(qty) {
			return nil, shared.NewDomainError(shared.ErrInsufficientStock.Code,
				fmt.Sprintf("Only %d units of %s are available", p.Stock, p.Name))
		}
		lines = append(lines, order.LineInput{
			ProductID:   p.ID,
			ProductName: p.Name,
			SKU:         p.SKU,
			UnitPrice:   p.Price,
			Quantity:    qty,
		})
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
	}

	code, err := shared.NextCode(ctx, s.seq, CodePrefix, s.now())
	if err != nil {
		return nil, fmt.Errorf("next order code: %w", err)
	}
	o, err := order.NewOrder(code, order.Customer{
		UserID:          requester.UserID,
		Name:            req.CustomerName,
		Email:           req.Email,
		Phone:           req.Phone,
		DocumentType:    req.DocumentType,
		DocumentNumber:  strings.TrimSpace(req.DocumentNumber),
		ShippingAddress: req.ShippingAddress,
		District:        req.District,
		City:            req.City,
		Reference:       req.Reference,
	}, lines, s.shippingFor(subtotal), method, req.ReceiptType)
	if err != nil {
		return nil, err
	}
	o.Notes = strings.TrimSpace(req.Notes)
	return o, nil
}

// abandon cancels an order whose payment could not be started
func (s *Service) abandon(ctx context.Context, o *order.Order, reason string) {
	if err := o.Cancel(reason); err != nil {
		return
	}
	if err := s.save(ctx, o); err != nil {
		logger.Or(ctx, s.logger).Error("Failed to cancel abandoned order",
			zap.String("order_id", o.ID.String()), zap.Error(err))
	}
	s.releaseStock(ctx, o)
}

func (s *Service) codCityAllowed(city string) bool {
	if len(s.config.Rules.CODCities) == 0 {
		return true
	}
	want := catalog.Slugify(city)
	for _, c := range s.config.Rules.CODCities {
		if catalog.Slugify(c) == want {
			return true
		}
	}
	return false
}
