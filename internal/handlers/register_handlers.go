package handlers

import (
	"net/http"

	portsrepo "github.com/finagent/finagent/internal/core/ports/repositories"
	portssvc "github.com/finagent/finagent/internal/core/ports/services"
	"github.com/finagent/finagent/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up the admin surface: health, metrics, sync triggers,
// linking, and the read/maintenance endpoints.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	repos portsrepo.RepositoryProvider,
	registry *prometheus.Registry,
) {
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/admin/v1")
	registerSyncRoutes(v1, services.Sync)
	registerLinkRoutes(v1, services.Link)
	registerMerchantRoutes(v1, repos.Merchants(), services.Recategorize)
	registerTransactionRoutes(v1, repos.Transactions(), repos.Tags(), services.Recategorize)
}
