package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finagent/finagent/internal/apperrors"
	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/core/ports"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
	"github.com/finagent/finagent/internal/core/services"
	"github.com/finagent/finagent/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type SyncServiceTestSuite struct {
	suite.Suite
	repos           *MockRepoProvider
	mockAggregator  *MockAggregatorClient
	mockCategorizer *MockCategorizerSvc
	service         portssvc.SyncSvcFacade
}

func (s *SyncServiceTestSuite) SetupTest() {
	s.repos = newMockRepoProvider()
	s.mockAggregator = new(MockAggregatorClient)
	s.mockCategorizer = new(MockCategorizerSvc)
	s.repos.Cats.On("ListCategories", mock.Anything).Return(testCategoryRows(), nil)

	taxonomies := services.NewTaxonomyService(s.repos.Cats, discardLogger())
	s.service = services.NewSyncService(
		s.repos, s.mockAggregator, s.mockCategorizer, taxonomies,
		metrics.NewForTest(), discardLogger(),
		services.SyncConfig{PageSize: 100, MaxPageRetries: 3, Workers: 2},
	)
}

func (s *SyncServiceTestSuite) item(cursor *string, through *time.Time) *domain.AggregatorItem {
	return &domain.AggregatorItem{
		ItemID:                   "item-1",
		AccessToken:              "tok",
		SyncCursor:               cursor,
		InvestmentsSyncedThrough: through,
		InstitutionID:            "ins_9",
		InstitutionName:          "Chase",
	}
}

func (s *SyncServiceTestSuite) emptyPage(next string) *ports.SyncTransactionsResponse {
	return &ports.SyncTransactionsResponse{NextCursor: next, HasMore: false}
}

// categorizedFor echoes the normalized batch back with a fixed category, the
// way the real categorizer preserves order.
func categorizedFor(txns []domain.NormalizedTransaction, key string) []domain.CategorizedTransaction {
	out := make([]domain.CategorizedTransaction, len(txns))
	for i, t := range txns {
		out[i] = domain.CategorizedTransaction{
			NormalizedTransaction: t,
			Categorization:        domain.Categorization{CategoryKey: key, Confidence: 0.9, Rationale: "r", ModelUsed: "m"},
		}
	}
	return out
}

func (s *SyncServiceTestSuite) TestBankingPageCommitsThenAdvancesCursor() {
	ctx := context.Background()
	s.repos.ItemsRepo.On("FindItemByID", ctx, "item-1").Return(s.item(nil, nil), nil).Once()

	page := &ports.SyncTransactionsResponse{
		Added: []ports.AggregatorTransaction{{
			TransactionID: "tx-1", AccountID: "acc-1",
			PostedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Amount:   decimal.NewFromFloat(12.5), Currency: "USD", Name: "STARBUCKS #123",
		}},
		Removed:    []string{"tx-gone"},
		NextCursor: "c1",
		HasMore:    false,
	}
	s.mockAggregator.On("SyncTransactions", mock.Anything, mock.MatchedBy(func(req ports.SyncTransactionsRequest) bool {
		return req.Cursor == "" && req.AccessToken == "tok"
	})).Return(page, nil).Once()

	wantNorm := domain.NormalizedTransaction{
		ExternalID: "tx-1", Source: domain.SourceAggregatorBanking, AccountID: "acc-1",
		PostedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), AmountCents: 1250,
		Currency: "USD", Descriptor: "STARBUCKS #123", Institution: "Chase",
	}
	s.mockCategorizer.On("Categorize", mock.Anything, []domain.NormalizedTransaction{wantNorm}).
		Return(categorizedFor([]domain.NormalizedTransaction{wantNorm}, "FOOD.COFFEE"), nil).Once()

	s.repos.Txns.On("SaveTransactions", mock.Anything, mock.Anything,
		mock.MatchedBy(func(txns []domain.CategorizedTransaction) bool { return len(txns) == 1 }),
		mock.MatchedBy(func(removed []domain.RemovedTransaction) bool {
			return len(removed) == 1 && removed[0].ExternalID == "tx-gone" && removed[0].Source == domain.SourceAggregatorBanking
		}),
	).Return(domain.SaveResult{Counts: domain.SaveCounts{Inserted: 1, Removed: 1}}, nil).Once()

	s.repos.ItemsRepo.On("UpdateSyncCursor", mock.Anything, "item-1", "c1").Return(nil).Once()

	s.mockAggregator.On("GetInvestmentTransactions", mock.Anything, "tok", mock.Anything, mock.Anything).
		Return([]ports.InvestmentTransaction{}, nil).Once()
	s.repos.ItemsRepo.On("UpdateInvestmentsSyncedThrough", mock.Anything, "item-1", mock.Anything).Return(nil).Once()

	summary, err := s.service.SyncItem(ctx, "item-1")
	s.Require().NoError(err)
	s.Equal(1, summary.Added)
	s.Equal(1, summary.Removed)
	s.Equal(1, summary.PagesFetched)
	s.False(summary.ConsentRequired)

	s.repos.ItemsRepo.AssertExpectations(s.T())
	s.repos.Txns.AssertExpectations(s.T())
}

func (s *SyncServiceTestSuite) TestPersistFailureLeavesCursorAlone() {
	ctx := context.Background()
	s.repos.ItemsRepo.On("FindItemByID", ctx, "item-1").Return(s.item(nil, nil), nil).Once()

	page := &ports.SyncTransactionsResponse{
		Added: []ports.AggregatorTransaction{{
			TransactionID: "tx-1", AccountID: "acc-1",
			PostedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Amount:   decimal.NewFromInt(5), Currency: "USD", Name: "X",
		}},
		NextCursor: "c1", HasMore: false,
	}
	s.mockAggregator.On("SyncTransactions", mock.Anything, mock.Anything).Return(page, nil).Once()
	norm := domain.NormalizedTransaction{
		ExternalID: "tx-1", Source: domain.SourceAggregatorBanking, AccountID: "acc-1",
		PostedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), AmountCents: 500,
		Currency: "USD", Descriptor: "X", Institution: "Chase",
	}
	s.mockCategorizer.On("Categorize", mock.Anything, mock.Anything).
		Return(categorizedFor([]domain.NormalizedTransaction{norm}, "FOOD"), nil).Once()
	s.repos.Txns.On("SaveTransactions", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.SaveResult{}, apperrors.ErrStoreCommitFailed).Once()

	_, err := s.service.SyncItem(ctx, "item-1")
	s.ErrorIs(err, apperrors.ErrStoreCommitFailed)
	s.repos.ItemsRepo.AssertNotCalled(s.T(), "UpdateSyncCursor", mock.Anything, mock.Anything, mock.Anything)
}

func (s *SyncServiceTestSuite) TestPaginationMutationRetriesFromCommittedCursor() {
	ctx := context.Background()
	committed := "c-committed"
	s.repos.ItemsRepo.On("FindItemByID", ctx, "item-1").Return(s.item(&committed, nil), nil).Once()

	mutated := errors.New("page shifted")
	s.mockAggregator.On("SyncTransactions", mock.Anything, mock.MatchedBy(func(req ports.SyncTransactionsRequest) bool {
		return req.Cursor == "c-committed"
	})).Return(nil, errors.Join(mutated, apperrors.ErrPaginationMutated)).Twice()
	s.mockAggregator.On("SyncTransactions", mock.Anything, mock.MatchedBy(func(req ports.SyncTransactionsRequest) bool {
		return req.Cursor == "c-committed"
	})).Return(s.emptyPage("c-next"), nil).Once()

	s.repos.ItemsRepo.On("UpdateSyncCursor", mock.Anything, "item-1", "c-next").Return(nil).Once()
	s.mockAggregator.On("GetInvestmentTransactions", mock.Anything, "tok", mock.Anything, mock.Anything).
		Return([]ports.InvestmentTransaction{}, nil).Once()
	s.repos.ItemsRepo.On("UpdateInvestmentsSyncedThrough", mock.Anything, "item-1", mock.Anything).Return(nil).Once()

	summary, err := s.service.SyncItem(ctx, "item-1")
	s.Require().NoError(err)
	s.Equal(1, summary.PagesFetched)
}

func (s *SyncServiceTestSuite) TestPaginationMutationExhaustsRetries() {
	ctx := context.Background()
	s.repos.ItemsRepo.On("FindItemByID", ctx, "item-1").Return(s.item(nil, nil), nil).Once()

	s.mockAggregator.On("SyncTransactions", mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrPaginationMutated).Times(4)

	_, err := s.service.SyncItem(ctx, "item-1")
	s.ErrorIs(err, apperrors.ErrPaginationMutated)
	s.repos.ItemsRepo.AssertNotCalled(s.T(), "UpdateSyncCursor", mock.Anything, mock.Anything, mock.Anything)
}

func (s *SyncServiceTestSuite) TestConsentRequiredIsNonFatal() {
	ctx := context.Background()
	s.repos.ItemsRepo.On("FindItemByID", ctx, "item-1").Return(s.item(nil, nil), nil).Once()

	s.mockAggregator.On("SyncTransactions", mock.Anything, mock.Anything).Return(s.emptyPage("c1"), nil).Once()
	s.repos.ItemsRepo.On("UpdateSyncCursor", mock.Anything, "item-1", "c1").Return(nil).Once()

	s.mockAggregator.On("GetInvestmentTransactions", mock.Anything, "tok", mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrConsentRequired).Once()

	summary, err := s.service.SyncItem(ctx, "item-1")
	s.Require().NoError(err)
	s.True(summary.ConsentRequired)
	s.repos.ItemsRepo.AssertNotCalled(s.T(), "UpdateInvestmentsSyncedThrough", mock.Anything, mock.Anything, mock.Anything)
}

func (s *SyncServiceTestSuite) TestInvestmentWindowUsesWatermarkWithOverlap() {
	ctx := context.Background()
	through := time.Now().UTC().Add(-48 * time.Hour)
	s.repos.ItemsRepo.On("FindItemByID", ctx, "item-1").Return(s.item(nil, &through), nil).Once()

	s.mockAggregator.On("SyncTransactions", mock.Anything, mock.Anything).Return(s.emptyPage("c1"), nil).Once()
	s.repos.ItemsRepo.On("UpdateSyncCursor", mock.Anything, "item-1", "c1").Return(nil).Once()

	invs := []ports.InvestmentTransaction{
		{
			InvestmentTransactionID: "inv-1", AccountID: "acc-2",
			Date: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
			Name: "BUY VTI", Amount: decimal.NewFromInt(-100), Currency: "USD",
			Subtype: "buy", Quantity: decimal.NewFromFloat(0.5), Price: decimal.NewFromInt(200),
		},
		{
			InvestmentTransactionID: "inv-2", AccountID: "acc-2",
			Date: time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC),
			Name: "VTI DIVIDEND", Amount: decimal.NewFromFloat(1.23), Currency: "USD",
			Subtype: "dividend",
		},
	}
	wantStart := through.Add(-7 * 24 * time.Hour)
	s.mockAggregator.On("GetInvestmentTransactions", mock.Anything, "tok",
		mock.MatchedBy(func(start time.Time) bool { return start.Equal(wantStart) }),
		mock.Anything,
	).Return(invs, nil).Once()

	normInvs := []domain.NormalizedTransaction{
		{
			ExternalID: "inv-1", Source: domain.SourceAggregatorInvestment, AccountID: "acc-2",
			PostedAt: invs[0].Date, AmountCents: -10000, Currency: "USD",
			Descriptor: "BUY VTI", Institution: "Chase", Subtype: "buy",
			Quantity: invs[0].Quantity, Price: invs[0].Price,
		},
		{
			ExternalID: "inv-2", Source: domain.SourceAggregatorInvestment, AccountID: "acc-2",
			PostedAt: invs[1].Date, AmountCents: 123, Currency: "USD",
			Descriptor: "VTI DIVIDEND", Institution: "Chase", Subtype: "dividend",
		},
	}
	s.mockCategorizer.On("Categorize", mock.Anything, mock.MatchedBy(func(txns []domain.NormalizedTransaction) bool {
		return len(txns) == 2 && txns[0].Source == domain.SourceAggregatorInvestment && txns[0].Subtype == "buy"
	})).Return(categorizedFor(normInvs, "TRANSFER"), nil).Once()

	s.repos.Txns.On("SaveTransactions", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.SaveResult{Counts: domain.SaveCounts{Inserted: 2}}, nil).Once()
	s.repos.ItemsRepo.On("UpdateInvestmentsSyncedThrough", mock.Anything, "item-1", mock.Anything).Return(nil).Once()

	summary, err := s.service.SyncItem(ctx, "item-1")
	s.Require().NoError(err)
	s.Equal(2, summary.InvestmentAdded)
	s.Equal(1, summary.InvestmentExcludedDefault)
}

func (s *SyncServiceTestSuite) TestStaleWatermarkClampsToBackfillBound() {
	ctx := context.Background()
	through := time.Now().UTC().Add(-800 * 24 * time.Hour)
	s.repos.ItemsRepo.On("FindItemByID", ctx, "item-1").Return(s.item(nil, &through), nil).Once()

	s.mockAggregator.On("SyncTransactions", mock.Anything, mock.Anything).Return(s.emptyPage("c1"), nil).Once()
	s.repos.ItemsRepo.On("UpdateSyncCursor", mock.Anything, "item-1", "c1").Return(nil).Once()

	earliest := time.Now().UTC().Add(-730 * 24 * time.Hour)
	s.mockAggregator.On("GetInvestmentTransactions", mock.Anything, "tok",
		mock.MatchedBy(func(start time.Time) bool {
			// start must sit at now-730d, not at watermark-7d.
			return start.After(earliest.Add(-time.Minute)) && start.Before(earliest.Add(time.Minute))
		}),
		mock.Anything,
	).Return([]ports.InvestmentTransaction{}, nil).Once()
	s.repos.ItemsRepo.On("UpdateInvestmentsSyncedThrough", mock.Anything, "item-1", mock.Anything).Return(nil).Once()

	_, err := s.service.SyncItem(ctx, "item-1")
	s.Require().NoError(err)
	s.mockAggregator.AssertExpectations(s.T())
}

func (s *SyncServiceTestSuite) TestSyncAllContinuesPastFailingItem() {
	ctx := context.Background()
	items := []domain.AggregatorItem{
		{ItemID: "item-ok", AccessToken: "tok-a", InstitutionName: "A"},
		{ItemID: "item-bad", AccessToken: "tok-b", InstitutionName: "B"},
	}
	s.repos.ItemsRepo.On("ListItems", mock.Anything).Return(items, nil).Once()

	s.repos.ItemsRepo.On("FindItemByID", mock.Anything, "item-ok").Return(&items[0], nil).Once()
	s.mockAggregator.On("SyncTransactions", mock.Anything, mock.MatchedBy(func(req ports.SyncTransactionsRequest) bool {
		return req.AccessToken == "tok-a"
	})).Return(s.emptyPage("ca"), nil).Once()
	s.repos.ItemsRepo.On("UpdateSyncCursor", mock.Anything, "item-ok", "ca").Return(nil).Once()
	s.mockAggregator.On("GetInvestmentTransactions", mock.Anything, "tok-a", mock.Anything, mock.Anything).
		Return([]ports.InvestmentTransaction{}, nil).Once()
	s.repos.ItemsRepo.On("UpdateInvestmentsSyncedThrough", mock.Anything, "item-ok", mock.Anything).Return(nil).Once()

	s.repos.ItemsRepo.On("FindItemByID", mock.Anything, "item-bad").Return(nil, apperrors.ErrNotFound).Once()

	summaries, err := s.service.SyncAll(ctx)
	s.Require().NoError(err)
	s.Len(summaries, 2)
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}
