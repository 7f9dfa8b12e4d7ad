package repositories

// RepositoryProvider aggregates the repository facades the service layer
// consumes; the pgsql package produces a concrete container.
type RepositoryProvider interface {
	Transactions() TransactionRepositoryFacade
	Categories() CategoryReader
	Merchants() MerchantReader
	Tags() TagReader
	Items() ItemRepositoryFacade
}
