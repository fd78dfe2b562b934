package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/defense-scheduler-api/internal/handler"
	internalmiddleware "github.com/noah-isme/defense-scheduler-api/internal/middleware"
	"github.com/noah-isme/defense-scheduler-api/internal/service"
	"github.com/noah-isme/defense-scheduler-api/pkg/config"
	"github.com/noah-isme/defense-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/defense-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/defense-scheduler-api/pkg/middleware/requestid"
	"github.com/noah-isme/defense-scheduler-api/pkg/response"
)

type routerDeps struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *service.MetricsService
	tokens  internalmiddleware.TokenValidator
	defense *handler.DefenseHandler
	probes  *handler.MetricsHandler
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(d.metrics, "/metrics", "/health", "/ready"))
	r.NoRoute(response.NotFound)

	r.GET("/health", d.probes.Health)
	r.GET("/ready", d.probes.Ready)
	r.GET("/metrics", d.probes.Prometheus)

	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.cfg.APIPrefix)
	run := []gin.HandlerFunc{}
	if d.cfg.Auth.Enabled {
		run = append(run, internalmiddleware.JWT(d.tokens), internalmiddleware.RBAC(d.cfg.Auth.RunRoles...))
	}
	api.GET("/asignaciones", append(run, d.defense.Run)...)
	api.GET("/asignaciones/guardadas", d.defense.Saved)
	api.GET("/asignaciones/guardadas/export", d.defense.Export)

	return r
}
