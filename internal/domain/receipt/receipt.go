// Package receipt models comprobantes de pago (boleta and factura). The QR
// payload and hash mimic SUNAT electronic receipts but nothing is submitted.
package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/shared"
)

// IGVRate is the Peruvian general sales tax rate
var IGVRate = decimal.RequireFromString("0.18")

// AnonymousBoletaLimit is the total from which a boleta must identify the buyer
var AnonymousBoletaLimit = decimal.NewFromInt(700)

// SUNAT catalog 01 document codes
const (
	sunatFactura = "01"
	sunatBoleta  = "03"
)

// Receipt is an issued comprobante for an order
type Receipt struct {
	ID                uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID           uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	OrderCode         string                `gorm:"type:varchar(30);not null" json:"order_code"`
	Type              order.ReceiptType     `gorm:"type:varchar(10);not null" json:"type"`
	Series            string                `gorm:"type:varchar(4);not null;uniqueIndex:idx_receipt_series_number,priority:1" json:"series"`
	Number            int64                 `gorm:"not null;uniqueIndex:idx_receipt_series_number,priority:2" json:"number"`
	IssuerRUC         string                `gorm:"type:varchar(11);not null" json:"issuer_ruc"`
	IssuerName        string                `gorm:"type:varchar(200);not null" json:"issuer_name"`
	CustomerDocType   identity.DocumentType `gorm:"type:varchar(10)" json:"customer_doc_type,omitempty"`
	CustomerDocNumber string                `gorm:"type:varchar(20)" json:"customer_doc_number,omitempty"`
	CustomerName      string                `gorm:"type:varchar(200);not null" json:"customer_name"`
	CustomerAddress   string                `gorm:"type:varchar(300)" json:"customer_address,omitempty"`
	Currency          string                `gorm:"type:varchar(3);not null" json:"currency"`
	Subtotal          decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	IGV               decimal.Decimal       `gorm:"column:igv;type:decimal(12,2);not null" json:"igv"`
	Total             decimal.Decimal       `gorm:"type:decimal(12,2);not null" json:"total"`
	Hash              string                `gorm:"type:varchar(64);not null" json:"hash"`
	QRData            string                `gorm:"type:varchar(300);not null" json:"qr_data"`
	PDFKey            string                `gorm:"type:varchar(300)" json:"-"`
	IssuedAt          time.Time             `gorm:"not null" json:"issued_at"`
	CreatedAt         time.Time             `gorm:"not null" json:"created_at"`
}

// TableName returns the table name for GORM
func (Receipt) TableName() string {
	return "receipts"
}

// Issuer identifies the company emitting receipts
type Issuer struct {
	RUC           string
	Name          string
	BoletaSeries  string
	FacturaSeries string
}

// Validate checks the issuer configuration
func (i Issuer) Validate() error {
	if err := identity.ValidateRUC(i.RUC); err != nil {
		return err
	}
	if strings.TrimSpace(i.Name) == "" {
		return shared.NewDomainError("INVALID_ISSUER", "Issuer name is required")
	}
	if len(i.BoletaSeries) != 4 || !strings.HasPrefix(i.BoletaSeries, "B") {
		return shared.NewDomainError("INVALID_SERIES", "Boleta series must look like B001")
	}
	if len(i.FacturaSeries) != 4 || !strings.HasPrefix(i.FacturaSeries, "F") {
		return shared.NewDomainError("INVALID_SERIES", "Factura series must look like F001")
	}
	return nil
}

// SeriesFor returns the series used for a receipt type
func (i Issuer) SeriesFor(t order.ReceiptType) string {
	if t == order.ReceiptTypeFactura {
		return i.FacturaSeries
	}
	return i.BoletaSeries
}

// CheckEligibility verifies an order can receive a receipt of the given type
func CheckEligibility(o *order.Order, t order.ReceiptType) error {
	if !t.IsValid() {
		return shared.NewDomainError("INVALID_RECEIPT_TYPE", "Receipt type must be BOLETA or FACTURA")
	}
	if o.PaymentStatus != order.PaymentStatusPagado {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Receipts are issued for paid orders only")
	}
	switch t {
	case order.ReceiptTypeFactura:
		if o.DocumentType != identity.DocumentTypeRUC || identity.ValidateRUC(o.DocumentNumber) != nil {
			return shared.NewDomainError("RUC_REQUIRED", "A factura requires a valid RUC")
		}
	case order.ReceiptTypeBoleta:
		if o.DocumentNumber == "" && o.Total.GreaterThanOrEqual(AnonymousBoletaLimit) {
			return shared.NewDomainError("DOCUMENT_REQUIRED",
				fmt.Sprintf("Boletas of %s or more must identify the buyer", AnonymousBoletaLimit.StringFixed(2)))
		}
	}
	return nil
}

// New builds a receipt for a paid order with the given correlative number
func New(issuer Issuer, o *order.Order, t order.ReceiptType, number int64, issuedAt time.Time) (*Receipt, error) {
	if err := CheckEligibility(o, t); err != nil {
		return nil, err
	}
	if number <= 0 {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Receipt number must be positive")
	}

	subtotal, igv := SplitIGV(o.Total)
	r := &Receipt{
		ID:                uuid.New(),
		OrderID:           o.ID,
		OrderCode:         o.Code,
		Type:              t,
		Series:            issuer.SeriesFor(t),
		Number:            number,
		IssuerRUC:         issuer.RUC,
		IssuerName:        issuer.Name,
		CustomerDocType:   o.DocumentType,
		CustomerDocNumber: o.DocumentNumber,
		CustomerName:      o.CustomerName,
		CustomerAddress:   strings.TrimSpace(o.ShippingAddress + " " + o.District + " " + o.City),
		Currency:          o.Currency,
		Subtotal:          subtotal,
		IGV:               igv,
		Total:             o.Total.Round(2),
		IssuedAt:          issuedAt,
		CreatedAt:         time.Now(),
	}
	r.Hash = r.computeHash()
	r.QRData = r.qrPayload()
	return r, nil
}

// SplitIGV splits an IGV-inclusive total into base amount and tax
func SplitIGV(total decimal.Decimal) (subtotal, igv decimal.Decimal) {
	total = total.Round(2)
	subtotal = total.Div(decimal.NewFromInt(1).Add(IGVRate)).Round(2)
	return subtotal, total.Sub(subtotal)
}

// FullNumber returns the printed identifier, e.g. F001-00000042
func (r *Receipt) FullNumber() string {
	return fmt.Sprintf("%s-%08d", r.Series, r.Number)
}

// SunatTypeCode returns the SUNAT catalog 01 code
func (r *Receipt) SunatTypeCode() string {
	if r.Type == order.ReceiptTypeFactura {
		return sunatFactura
	}
	return sunatBoleta
}

// VerifyHash recomputes the hash over the stored fields
func (r *Receipt) VerifyHash() bool {
	return r.Hash != "" && r.Hash == r.computeHash()
}

func (r *Receipt) canonical() string {
	return strings.Join([]string{
		r.IssuerRUC,
		r.SunatTypeCode(),
		r.Series,
		fmt.Sprintf("%08d", r.Number),
		r.IssuedAt.Format("2006-01-02"),
		r.Currency,
		r.Subtotal.StringFixed(2),
		r.IGV.StringFixed(2),
		r.Total.StringFixed(2),
		r.CustomerDocType.SunatCode(),
		r.CustomerDocNumber,
	}, "|")
}

func (r *Receipt) computeHash() string {
	sum := sha256.Sum256([]byte(r.canonical()))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// qrPayload follows the layout printed on SUNAT electronic receipts:
// RUC|TIPO|SERIE|NUMERO|IGV|TOTAL|FECHA|TIPODOC|NUMDOC|HASH|
func (r *Receipt) qrPayload() string {
	docNumber := r.CustomerDocNumber
	if docNumber == "" {
		docNumber = "-"
	}
	return strings.Join([]string{
		r.IssuerRUC,
		r.SunatTypeCode(),
		r.Series,
		fmt.Sprintf("%08d", r.Number),
		r.IGV.StringFixed(2),
		r.Total.StringFixed(2),
		r.IssuedAt.Format("2006-01-02"),
		r.CustomerDocType.SunatCode(),
		docNumber,
		r.Hash,
	}, "|") + "|"
}

// Repository persists receipts
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Receipt, error)
	Create(ctx context.Context, r *Receipt) error
	SetPDFKey(ctx context.Context, id uuid.UUID, key string) error
}
