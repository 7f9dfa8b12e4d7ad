package services_test

import (
	"context"
	"time"

	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/core/ports"
	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	"github.com/stretchr/testify/mock"
)

// --- Mock TransactionRepositoryFacade ---

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) FindTransactionByExternalID(ctx context.Context, source domain.Source, externalID string) (*domain.Transaction, error) {
	args := m.Called(ctx, source, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) FindDerivedByTransactionID(ctx context.Context, transactionID string) (*domain.DerivedTransaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DerivedTransaction), args.Error(1)
}

func (m *MockTransactionRepo) ListEventsByTransactionID(ctx context.Context, transactionID string) ([]domain.CategoryEvent, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CategoryEvent), args.Error(1)
}

func (m *MockTransactionRepo) SaveTransactions(ctx context.Context, lookup portsrepo.CategoryLookup, txns []domain.CategorizedTransaction, removed []domain.RemovedTransaction) (domain.SaveResult, error) {
	args := m.Called(ctx, lookup, txns, removed)
	return args.Get(0).(domain.SaveResult), args.Error(1)
}

func (m *MockTransactionRepo) BulkRecategorizeByMerchant(ctx context.Context, merchantID, newKey string, lookup portsrepo.CategoryLookup) (int, error) {
	args := m.Called(ctx, merchantID, newKey, lookup)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepo) ApplyTags(ctx context.Context, transactionIDs []string, tagNames []string) (int, error) {
	args := m.Called(ctx, transactionIDs, tagNames)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepo) DeleteByExternalIDs(ctx context.Context, source domain.Source, externalIDs []string) (int, error) {
	args := m.Called(ctx, source, externalIDs)
	return args.Int(0), args.Error(1)
}

// --- Mock CategoryReader ---

type MockCategoryReader struct {
	mock.Mock
}

func (m *MockCategoryReader) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *MockCategoryReader) FindCategoryByKey(ctx context.Context, key string) (*domain.Category, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

// --- Mock MerchantReader ---

type MockMerchantReader struct {
	mock.Mock
}

func (m *MockMerchantReader) FindMerchantByID(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Merchant), args.Error(1)
}

func (m *MockMerchantReader) FindMerchantByNormalizedName(ctx context.Context, normalizedName string) (*domain.Merchant, error) {
	args := m.Called(ctx, normalizedName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Merchant), args.Error(1)
}

func (m *MockMerchantReader) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Merchant), args.Error(1)
}

// --- Mock TagReader ---

type MockTagReader struct {
	mock.Mock
}

func (m *MockTagReader) ListTagsForTransaction(ctx context.Context, transactionID string) ([]domain.Tag, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Tag), args.Error(1)
}

// --- Mock ItemRepositoryFacade ---

type MockItemRepo struct {
	mock.Mock
}

func (m *MockItemRepo) FindItemByID(ctx context.Context, itemID string) (*domain.AggregatorItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AggregatorItem), args.Error(1)
}

func (m *MockItemRepo) ListItems(ctx context.Context) ([]domain.AggregatorItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AggregatorItem), args.Error(1)
}

func (m *MockItemRepo) SaveItem(ctx context.Context, item domain.AggregatorItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepo) UpdateSyncCursor(ctx context.Context, itemID, cursor string) error {
	args := m.Called(ctx, itemID, cursor)
	return args.Error(0)
}

func (m *MockItemRepo) UpdateInvestmentsSyncedThrough(ctx context.Context, itemID string, through time.Time) error {
	args := m.Called(ctx, itemID, through)
	return args.Error(0)
}

func (m *MockItemRepo) MigrateItemIdentity(ctx context.Context, oldItemID, newItemID string) (int, error) {
	args := m.Called(ctx, oldItemID, newItemID)
	return args.Int(0), args.Error(1)
}

func (m *MockItemRepo) UpsertAccounts(ctx context.Context, accounts []domain.AggregatorAccount) (int, error) {
	args := m.Called(ctx, accounts)
	return args.Int(0), args.Error(1)
}

// --- Mock RepositoryProvider ---

type MockRepoProvider struct {
	Txns       *MockTransactionRepo
	Cats       *MockCategoryReader
	Merchs     *MockMerchantReader
	TagsReader *MockTagReader
	ItemsRepo  *MockItemRepo
}

func newMockRepoProvider() *MockRepoProvider {
	return &MockRepoProvider{
		Txns:       new(MockTransactionRepo),
		Cats:       new(MockCategoryReader),
		Merchs:     new(MockMerchantReader),
		TagsReader: new(MockTagReader),
		ItemsRepo:  new(MockItemRepo),
	}
}

func (p *MockRepoProvider) Transactions() portsrepo.TransactionRepositoryFacade { return p.Txns }
func (p *MockRepoProvider) Categories() portsrepo.CategoryReader                { return p.Cats }
func (p *MockRepoProvider) Merchants() portsrepo.MerchantReader                 { return p.Merchs }
func (p *MockRepoProvider) Tags() portsrepo.TagReader                           { return p.TagsReader }
func (p *MockRepoProvider) Items() portsrepo.ItemRepositoryFacade               { return p.ItemsRepo }

// --- Mock AggregatorClient ---

type MockAggregatorClient struct {
	mock.Mock
}

func (m *MockAggregatorClient) SyncTransactions(ctx context.Context, req ports.SyncTransactionsRequest) (*ports.SyncTransactionsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.SyncTransactionsResponse), args.Error(1)
}

func (m *MockAggregatorClient) GetInvestmentTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]ports.InvestmentTransaction, error) {
	args := m.Called(ctx, accessToken, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.InvestmentTransaction), args.Error(1)
}

func (m *MockAggregatorClient) CreateLinkToken(ctx context.Context, req ports.LinkTokenRequest) (*ports.LinkTokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.LinkTokenResponse), args.Error(1)
}

func (m *MockAggregatorClient) ExchangePublicToken(ctx context.Context, publicToken string) (*ports.ExchangeTokenResponse, error) {
	args := m.Called(ctx, publicToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ExchangeTokenResponse), args.Error(1)
}

func (m *MockAggregatorClient) GetAccounts(ctx context.Context, accessToken string) ([]ports.AccountInfo, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.AccountInfo), args.Error(1)
}

// --- Mock LLMCategorizer ---

type MockLLMCategorizer struct {
	mock.Mock
}

func (m *MockLLMCategorizer) CategorizeTransaction(ctx context.Context, req ports.CategorizeRequest) (*domain.Categorization, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Categorization), args.Error(1)
}

// --- Mock CategorizerSvcFacade ---

type MockCategorizerSvc struct {
	mock.Mock
}

func (m *MockCategorizerSvc) Categorize(ctx context.Context, txns []domain.NormalizedTransaction) ([]domain.CategorizedTransaction, error) {
	args := m.Called(ctx, txns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CategorizedTransaction), args.Error(1)
}
