package services

// ServiceContainer aggregates the service facades handed to the transport
// layer and the scheduler.
type ServiceContainer struct {
	Taxonomy     TaxonomySvcFacade
	Categorizer  CategorizerSvcFacade
	Sync         SyncSvcFacade
	Recategorize RecategorizeSvcFacade
	Link         LinkSvcFacade
}
