package service

import (
	"context"
	"encoding/json"

	"hardware-checkout/internal/carrier"
	"hardware-checkout/internal/gateway"
	"hardware-checkout/internal/model"
	"hardware-checkout/internal/notify"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

func txOrNil(v any) pgx.Tx {
	// Return a MockTx interface value, not a pointer
	if tx, ok := v.(pgx.Tx); ok {
		return tx
	}
	return nil
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) ValidateProductsExist(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, tx pgx.Tx, productID int64, qty int) error {
	args := m.Called(ctx, tx, productID, qty)
	return args.Error(0)
}

// MockCustomerRepository is a mock implementation of CustomerRepository.
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerRepository) CreateGuest(ctx context.Context, tx pgx.Tx, customer *model.Customer) error {
	args := m.Called(ctx, tx, customer)
	return args.Error(0)
}

// MockAddressRepository is a mock implementation of AddressRepository.
type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	return txOrNil(args.Get(0)), args.Error(1)
}

func (m *MockAddressRepository) GetByID(ctx context.Context, id int64) (*model.Address, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

func (m *MockAddressRepository) ListByCustomer(ctx context.Context, customerID int64) ([]model.Address, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Address), args.Error(1)
}

func (m *MockAddressRepository) ClearPrimary(ctx context.Context, tx pgx.Tx, customerID int64) error {
	args := m.Called(ctx, tx, customerID)
	return args.Error(0)
}

func (m *MockAddressRepository) Create(ctx context.Context, tx pgx.Tx, address *model.Address) error {
	args := m.Called(ctx, tx, address)
	return args.Error(0)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) DeactivateActive(ctx context.Context, customerID int64) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	return txOrNil(args.Get(0)), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) AssignNumber(ctx context.Context, tx pgx.Tx, id int64, number string) error {
	args := m.Called(ctx, tx, id, number)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error {
	args := m.Called(ctx, tx, lines)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateState(ctx context.Context, tx pgx.Tx, id int64, state model.OrderState) error {
	args := m.Called(ctx, tx, id, state)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	return txOrNil(args.Get(0)), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, tx pgx.Tx, payment *model.Payment) error {
	args := m.Called(ctx, tx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByTokenForUpdate(ctx context.Context, tx pgx.Tx, token string) (*model.Payment, error) {
	args := m.Called(ctx, tx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, gatewayTransactionID, buyOrder string) (*model.Payment, error) {
	args := m.Called(ctx, tx, gatewayTransactionID, buyOrder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ApplyTransition(ctx context.Context, tx pgx.Tx, id uuid.UUID, state model.PaymentState, gatewayTransactionID *string, raw json.RawMessage) (bool, error) {
	args := m.Called(ctx, tx, id, state, gatewayTransactionID, raw)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) LatestByOrder(ctx context.Context, orderID int64) (*model.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

// MockShipmentRepository is a mock implementation of ShipmentRepository.
type MockShipmentRepository struct {
	mock.Mock
}

func (m *MockShipmentRepository) Create(ctx context.Context, shipment *model.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentRepository) MarkFailed(ctx context.Context, tx pgx.Tx, orderID int64, reason string) error {
	args := m.Called(ctx, tx, orderID, reason)
	return args.Error(0)
}

func (m *MockShipmentRepository) GetByOrder(ctx context.Context, orderID int64) (*model.Shipment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shipment), args.Error(1)
}

// MockCarrier is a mock carrier client.
type MockCarrier struct {
	mock.Mock
}

func (m *MockCarrier) CreateShipment(ctx context.Context, req carrier.Request) carrier.Result {
	args := m.Called(ctx, req)
	return args.Get(0).(carrier.Result)
}

func (m *MockCarrier) Name() string { return "testcarrier" }

// MockGateway is a mock payment gateway client.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateTransaction(ctx context.Context, req gateway.CreateRequest) (*gateway.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Transaction), args.Error(1)
}

func (m *MockGateway) ConfirmTransaction(ctx context.Context, token string) gateway.Confirmation {
	args := m.Called(ctx, token)
	return args.Get(0).(gateway.Confirmation)
}

func (m *MockGateway) TransactionStatus(ctx context.Context, token string) (*gateway.StatusReport, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.StatusReport), args.Error(1)
}

// MockNotifier records confirmation emails.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendOrderConfirmation(ctx context.Context, msg notify.OrderConfirmation) bool {
	args := m.Called(ctx, msg)
	return args.Bool(0)
}

func (m *MockNotifier) Close() {}

// MockReplayGuard is a mock webhook replay guard.
type MockReplayGuard struct {
	mock.Mock
}

func (m *MockReplayGuard) Seen(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockReplayGuard) Mark(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockAddressResolver is a mock AddressResolver.
type MockAddressResolver struct {
	mock.Mock
}

func (m *MockAddressResolver) Resolve(ctx context.Context, customerID int64, in model.AddressInput) (*model.Address, error) {
	args := m.Called(ctx, customerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

func (m *MockAddressResolver) ResolveByID(ctx context.Context, customerID, addressID int64) (*model.Address, error) {
	args := m.Called(ctx, customerID, addressID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

func (m *MockAddressResolver) ResolveGuest(ctx context.Context, guest model.GuestInput, in model.AddressInput) (*model.Customer, *model.Address, error) {
	args := m.Called(ctx, guest, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Customer), args.Get(1).(*model.Address), args.Error(2)
}

// MockOrderFactory is a mock OrderFactory.
type MockOrderFactory struct {
	mock.Mock
}

func (m *MockOrderFactory) Create(ctx context.Context, draft OrderDraft) (*model.Order, error) {
	args := m.Called(ctx, draft)
	if fn, ok := args.Get(0).(func(context.Context, OrderDraft) (*model.Order, error)); ok {
		return fn(ctx, draft)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockProvisioner is a mock ShipmentProvisioner.
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) Provision(ctx context.Context, order *model.Order, customer *model.Customer, address *model.Address) (*model.Shipment, string) {
	args := m.Called(ctx, order, customer, address)
	if args.Get(0) == nil {
		return nil, args.String(1)
	}
	return args.Get(0).(*model.Shipment), args.String(1)
}

// MockInitiator is a mock PaymentInitiator.
type MockInitiator struct {
	mock.Mock
}

func (m *MockInitiator) Initiate(ctx context.Context, order *model.Order) (*PaymentSession, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentSession), args.Error(1)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// newCommittingTx returns a MockTx that expects a commit and tolerates a rollback.
func newCommittingTx() *MockTx {
	tx := new(MockTx)
	tx.On("Commit", mock.Anything).Return(nil)
	tx.On("Rollback", mock.Anything).Return(pgx.ErrTxClosed).Maybe()
	return tx
}
