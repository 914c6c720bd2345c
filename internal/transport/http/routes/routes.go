package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
	"github.com/arklim/book-buyback/internal/infra/config"
	"github.com/arklim/book-buyback/internal/transport/http/handlers"
	"github.com/arklim/book-buyback/internal/transport/http/middleware"
	"github.com/arklim/book-buyback/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Roles            handlers.RoleCommands
	Permissions      handlers.PermissionQueries
	Appraisals       handlers.AppraisalCommands
	Shipments        handlers.ShipmentCommands
	PurchaseRequests handlers.PurchaseRequestCommands
	Orders           handlers.OrderCommands
	Estimates        port.Estimator
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Verifier    middleware.TokenVerifier
	Authorizer  middleware.Authorizer
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
	// MetricsHandler serves /metrics; nil falls back to the default registry.
	MetricsHandler http.Handler
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if len(deps.Config.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	}
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))

	api := r.Group("/api/v1")

	if deps.Services.Estimates != nil {
		estimateHandler := handlers.NewEstimateHandler(deps.Services.Estimates)
		api.POST("/estimates", append(buildEstimateMiddlewares(deps), estimateHandler.Create)...)
	}

	if deps.Verifier == nil || deps.Authorizer == nil {
		return r
	}

	authMiddleware := middleware.RequireAuth(deps.Verifier)
	require := func(perms ...domain.Permission) gin.HandlerFunc {
		return middleware.RequirePermissions(deps.Authorizer, usecase.AuthorizeAll, perms...)
	}
	requireAny := func(perms ...domain.Permission) gin.HandlerFunc {
		return middleware.RequirePermissions(deps.Authorizer, usecase.AuthorizeAny, perms...)
	}

	secured := api.Group("")
	secured.Use(authMiddleware)

	if deps.Services.Roles != nil && deps.Services.Permissions != nil {
		roleHandler := handlers.NewRoleHandler(deps.Services.Roles, deps.Services.Permissions)

		roles := secured.Group("/roles")
		roles.GET("", require(usecase.PermRolesRead), roleHandler.ListRoles)
		roles.POST("", require(usecase.PermRolesManage), roleHandler.CreateRole)
		roles.GET("/:id", require(usecase.PermRolesRead), roleHandler.GetRole)
		roles.PATCH("/:id", require(usecase.PermRolesManage), roleHandler.UpdateRole)
		roles.DELETE("/:id", require(usecase.PermRolesManage), roleHandler.DeleteRole)
		roles.POST("/:id/permissions", require(usecase.PermRolesManage), roleHandler.AddPermission)
		roles.DELETE("/:id/permissions/:permission", require(usecase.PermRolesManage), roleHandler.RemovePermission)

		users := secured.Group("/users/:userId")
		users.GET("/roles", require(usecase.PermRolesRead), roleHandler.UserRoles)
		users.POST("/roles", require(usecase.PermRolesAssign), roleHandler.AssignRole)
		users.DELETE("/roles/:roleId", require(usecase.PermRolesAssign), roleHandler.RemoveRole)
		users.GET("/permissions", require(usecase.PermRolesRead), roleHandler.UserPermissions)

		secured.GET("/me/permissions", roleHandler.MyPermissions)
	}

	if deps.Services.PurchaseRequests != nil {
		h := handlers.NewPurchaseRequestHandler(deps.Services.PurchaseRequests)

		g := secured.Group("/purchase-requests")
		g.POST("", require(usecase.PermPurchaseRequestsCreate), h.Create)
		g.GET("", require(usecase.PermPurchaseRequestsRead), h.List)
		g.GET("/:id", require(usecase.PermPurchaseRequestsRead), h.Get)
		g.POST("/:id/submit", require(usecase.PermPurchaseRequestsSubmit), h.Submit)
		g.POST("/:id/receive", require(usecase.PermPurchaseRequestsReceive), h.Receive)
		g.POST("/:id/accept", require(usecase.PermPurchaseRequestsDecide), h.Accept)
		g.POST("/:id/reject", require(usecase.PermPurchaseRequestsDecide), h.Reject)
	}

	if deps.Services.Appraisals != nil {
		h := handlers.NewAppraisalHandler(deps.Services.Appraisals)

		g := secured.Group("/appraisals")
		g.POST("", require(usecase.PermAppraisalsCreate), h.Start)
		g.GET("", require(usecase.PermAppraisalsRead), h.List)
		g.GET("/:id", require(usecase.PermAppraisalsRead), h.Get)
		g.POST("/:id/books", require(usecase.PermAppraisalsUpdate), h.AddBook)
		g.POST("/:id/complete", require(usecase.PermAppraisalsComplete), h.Complete)
	}

	if deps.Services.Orders != nil {
		h := handlers.NewOrderHandler(deps.Services.Orders)

		g := secured.Group("/orders")
		g.POST("", require(usecase.PermOrdersCreate), h.Create)
		g.GET("", require(usecase.PermOrdersRead), h.List)
		g.GET("/:id", require(usecase.PermOrdersRead), h.Get)
		g.POST("/:id/pay", require(usecase.PermOrdersPay), h.Pay)
		g.POST("/:id/cancel", requireAny(usecase.PermOrdersCancel, usecase.PermOrdersRefund), h.Cancel)
		g.POST("/:id/fulfill", require(usecase.PermOrdersFulfill), h.Fulfill)
	}

	if deps.Services.Shipments != nil {
		var orders handlers.OrderReader
		if deps.Services.Orders != nil {
			orders = deps.Services.Orders
		}
		h := handlers.NewShipmentHandler(deps.Services.Shipments, orders)

		g := secured.Group("/shipments")
		g.POST("", require(usecase.PermShipmentsCreate), h.Create)
		g.GET("", require(usecase.PermShipmentsRead), h.List)
		g.GET("/:id", require(usecase.PermShipmentsRead), h.Get)
		g.POST("/:id/pick", require(usecase.PermShipmentsUpdate), h.StartPicking)
		g.POST("/:id/pack", require(usecase.PermShipmentsUpdate), h.MarkPacked)
		g.POST("/:id/dispatch", require(usecase.PermShipmentsUpdate), h.Dispatch)
		g.POST("/:id/in-transit", require(usecase.PermShipmentsUpdate), h.UpdateInTransit)
		g.POST("/:id/deliver", require(usecase.PermShipmentsUpdate), h.MarkDelivered)
	}

	return r
}

func buildEstimateMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.EstimateMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "estimates_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
