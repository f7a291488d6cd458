package receipt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/order"
	"github.com/induservicios/backend/internal/domain/receipt"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/printing"
	"github.com/induservicios/backend/internal/infrastructure/storage"
)

type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*receipt.Receipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receipt.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*receipt.Receipt, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receipt.Receipt), args.Error(1)
}

func (m *MockReceiptRepository) Create(ctx context.Context, r *receipt.Receipt) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockReceiptRepository) SetPDFKey(ctx context.Context, id uuid.UUID, key string) error {
	return m.Called(ctx, id, key).Error(0)
}

type orderMap map[uuid.UUID]*order.Order

func (m orderMap) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	if o, ok := m[id]; ok {
		return o, nil
	}
	return nil, shared.ErrNotFound
}

type seriesSequence struct {
	names []string
	n     int64
}

func (s *seriesSequence) Next(_ context.Context, name string) (int64, error) {
	s.names = append(s.names, name)
	s.n++
	return s.n, nil
}

type fakeRenderer struct {
	calls int
	html  string
	err   error
}

func (r *fakeRenderer) Render(_ context.Context, req *printing.RenderRequest) (*printing.RenderResult, error) {
	r.calls++
	r.html = req.HTML
	if r.err != nil {
		return nil, r.err
	}
	return &printing.RenderResult{PDFData: []byte("%PDF-1.7 receipt"), RenderDuration: time.Millisecond}, nil
}

func (r *fakeRenderer) Close() error { return nil }

var testIssuer = receipt.Issuer{
	RUC:           "20539782232",
	Name:          "Induservicios SAC",
	BoletaSeries:  "B001",
	FacturaSeries: "F001",
}

type fixture struct {
	svc      *Service
	receipts *MockReceiptRepository
	orders   orderMap
	seq      *seriesSequence
	renderer *fakeRenderer
	files    *storage.MemoryObjectStorage
}

func newFixture() *fixture {
	f := &fixture{
		receipts: new(MockReceiptRepository),
		orders:   orderMap{},
		seq:      &seriesSequence{},
		renderer: &fakeRenderer{},
		files:    storage.NewMemoryObjectStorage("http://localhost:8080/files"),
	}
	f.svc = NewService(f.receipts, f.orders, f.seq, printing.NewTemplateEngine(), f.renderer, f.files, Config{
		Issuer:  testIssuer,
		Company: printing.CompanyInfo{Name: "Induservicios SAC", RUC: testIssuer.RUC, Address: "Av. Argentina 2450, Lima"},
	}, zap.NewNop())
	f.svc.now = func() time.Time { return time.Date(2026, 10, 5, 15, 30, 0, 0, time.UTC) }
	return f
}

func (f *fixture) paidOrder(t *testing.T, docType identity.DocumentType, doc string, rt order.ReceiptType) *order.Order {
	t.Helper()
	o, err := order.NewOrder("PED-202610-00011", order.Customer{
		Name: "Ferretería El Sol", Email: "compras@elsol.pe", Phone: "987654321",
		DocumentType: docType, DocumentNumber: doc,
		ShippingAddress: "Jr. Huallaga 321", City: "Lima",
	}, []order.LineInput{
		{ProductID: uuid.New(), ProductName: "Bisagra reforzada", SKU: "BS-3", UnitPrice: decimal.RequireFromString("45.50"), Quantity: 4},
	}, decimal.NewFromInt(15), order.PaymentMethodTarjeta, rt)
	require.NoError(t, err)
	require.NoError(t, o.MarkPaid())
	f.orders[o.ID] = o
	return o
}

func TestService_Issue(t *testing.T) {
	f := newFixture()
	o := f.paidOrder(t, identity.DocumentTypeRUC, "20100070970", order.ReceiptTypeFactura)

	f.receipts.On("FindByOrderID", mock.Anything, o.ID).Return(nil, shared.ErrNotFound).Once()
	f.receipts.On("Create", mock.Anything, mock.AnythingOfType("*receipt.Receipt")).Return(nil)

	resp, err := f.svc.Issue(context.Background(), o.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "F001-00000001", resp.Number)
	assert.Equal(t, []string{"receipt-F001"}, f.seq.names)
	assert.Equal(t, "197.00", resp.Total.StringFixed(2))
	assert.Equal(t, "166.95", resp.Subtotal.StringFixed(2))
	assert.Equal(t, "30.05", resp.IGV.StringFixed(2))
	assert.Equal(t, time.Date(2026, 10, 5, 15, 30, 0, 0, time.UTC), resp.IssuedAt)

	t.Run("second issue returns the stored receipt", func(t *testing.T) {
		stored := f.receipts.Calls[1].Arguments.Get(1).(*receipt.Receipt)
		f.receipts.On("FindByOrderID", mock.Anything, o.ID).Return(stored, nil)

		again, err := f.svc.Issue(context.Background(), o.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, resp.ID, again.ID)
		assert.Len(t, f.seq.names, 1)
	})
}

func TestService_Issue_IneligibleDrawsNoNumber(t *testing.T) {
	f := newFixture()
	o := f.paidOrder(t, identity.DocumentTypeDNI, "46027897", order.ReceiptTypeBoleta)
	f.receipts.On("FindByOrderID", mock.Anything, o.ID).Return(nil, shared.ErrNotFound)

	factura := order.ReceiptTypeFactura
	_, err := f.svc.Issue(context.Background(), o.ID, &factura)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "RUC_REQUIRED", domainErr.Code)
	assert.Empty(t, f.seq.names)
	f.receipts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Issue_ConcurrentCreate(t *testing.T) {
	f := newFixture()
	o := f.paidOrder(t, identity.DocumentTypeDNI, "46027897", order.ReceiptTypeBoleta)
	winner := &receipt.Receipt{ID: uuid.New(), OrderID: o.ID, Series: "B001", Number: 7}

	f.receipts.On("FindByOrderID", mock.Anything, o.ID).Return(nil, shared.ErrNotFound).Once()
	f.receipts.On("Create", mock.Anything, mock.Anything).Return(shared.ErrAlreadyExists)
	f.receipts.On("FindByOrderID", mock.Anything, o.ID).Return(winner, nil).Once()

	r, err := f.svc.IssueForOrder(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, r.ID)
}

func TestService_RenderPDF(t *testing.T) {
	f := newFixture()
	o := f.paidOrder(t, identity.DocumentTypeDNI, "46027897", order.ReceiptTypeBoleta)
	r, err := receipt.New(testIssuer, o, order.ReceiptTypeBoleta, 12, f.svc.now())
	require.NoError(t, err)

	f.receipts.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	f.receipts.On("SetPDFKey", mock.Anything, r.ID, "receipts/202610/B001-00000012.pdf").
		Run(func(args mock.Arguments) { r.PDFKey = args.String(2) }).
		Return(nil)

	dl, err := f.svc.RenderPDF(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Contains(t, dl.URL, "receipts/202610/B001-00000012.pdf")
	assert.Contains(t, f.renderer.html, "BOLETA DE VENTA ELECTRÓNICA")
	assert.Contains(t, f.renderer.html, "Bisagra reforzada")
	assert.Equal(t, 1, f.files.Len())

	_, err = f.svc.RenderPDF(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.renderer.calls, "stored pdf is reused")
}

func TestService_RenderPDF_Disabled(t *testing.T) {
	f := newFixture()
	f.renderer.err = printing.NewRenderError(printing.ErrCodeDisabled, "disabled", nil)
	o := f.paidOrder(t, identity.DocumentTypeDNI, "46027897", order.ReceiptTypeBoleta)
	r, err := receipt.New(testIssuer, o, order.ReceiptTypeBoleta, 3, f.svc.now())
	require.NoError(t, err)
	f.receipts.On("FindByID", mock.Anything, r.ID).Return(r, nil)

	_, err = f.svc.RenderPDF(context.Background(), r.ID)
	assert.ErrorIs(t, err, shared.ErrExternalService)
	assert.Equal(t, 0, f.files.Len())
}

func TestService_RenderHTML_MissingOrder(t *testing.T) {
	f := newFixture()
	r := &receipt.Receipt{ID: uuid.New(), OrderID: uuid.New()}
	f.receipts.On("FindByID", mock.Anything, r.ID).Return(r, nil)

	_, err := f.svc.RenderHTML(context.Background(), r.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
