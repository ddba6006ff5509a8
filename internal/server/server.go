package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ondasul/airtrack/internal/catalog"
	catalogdomain "github.com/ondasul/airtrack/internal/catalog/domain"
	"github.com/ondasul/airtrack/internal/client"
	clientdomain "github.com/ondasul/airtrack/internal/client/domain"
	"github.com/ondasul/airtrack/internal/clock"
	"github.com/ondasul/airtrack/internal/config"
	"github.com/ondasul/airtrack/internal/contract"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
	"github.com/ondasul/airtrack/internal/invoicing"
	invoicingdomain "github.com/ondasul/airtrack/internal/invoicing/domain"
	"github.com/ondasul/airtrack/internal/observability"
	obsmiddleware "github.com/ondasul/airtrack/internal/observability/logger"
	obsmetrics "github.com/ondasul/airtrack/internal/observability/metrics"
	obstracing "github.com/ondasul/airtrack/internal/observability/tracing"
	"github.com/ondasul/airtrack/internal/playback"
	playbackdomain "github.com/ondasul/airtrack/internal/playback/domain"
	"github.com/ondasul/airtrack/internal/providers/pdf"
	"github.com/ondasul/airtrack/internal/quota"
	"github.com/ondasul/airtrack/internal/reconcile"
	reconciledomain "github.com/ondasul/airtrack/internal/reconcile/domain"
	"github.com/ondasul/airtrack/internal/reporting"
	reportingdomain "github.com/ondasul/airtrack/internal/reporting/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(pdf.New),
	client.Module,
	catalog.Module,
	contract.Module,
	quota.Module,
	playback.Module,
	reconcile.Module,
	reporting.Module,
	invoicing.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	clock  clock.Clock

	clientSvc    clientdomain.Service
	catalogSvc   catalogdomain.Service
	contractSvc  contractdomain.Service
	playbackSvc  playbackdomain.Service
	reconcileSvc reconciledomain.Service
	reportingSvc reportingdomain.Service
	invoicingSvc invoicingdomain.Service
	pdfProvider  pdf.Provider

	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	Clock clock.Clock

	ClientSvc    clientdomain.Service
	CatalogSvc   catalogdomain.Service
	ContractSvc  contractdomain.Service
	PlaybackSvc  playbackdomain.Service
	ReconcileSvc reconciledomain.Service
	ReportingSvc reportingdomain.Service
	InvoicingSvc invoicingdomain.Service
	PDFProvider  pdf.Provider

	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		clock:  p.Clock,

		clientSvc:    p.ClientSvc,
		catalogSvc:   p.CatalogSvc,
		contractSvc:  p.ContractSvc,
		playbackSvc:  p.PlaybackSvc,
		reconcileSvc: p.ReconcileSvc,
		reportingSvc: p.ReportingSvc,
		invoicingSvc: p.InvoicingSvc,
		pdfProvider:  p.PDFProvider,

		obsMetrics: p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/clients", s.CreateClient)
	api.GET("/clients", s.ListClients)
	api.GET("/clients/:id", s.GetClientByID)

	api.POST("/audio-files", s.RegisterAudioFile)
	api.GET("/audio-files", s.ListAudioFiles)
	api.GET("/audio-files/:id", s.GetAudioFileByID)
	api.PATCH("/audio-files/:id/active", s.SetAudioFileActive)

	api.POST("/contracts", s.CreateContract)
	api.GET("/contracts", s.ListContracts)
	api.GET("/contracts/:id", s.GetContractByID)
	api.PATCH("/contracts/:id/status", s.UpdateContractStatus)
	api.POST("/contracts/:id/items", s.AddContractItem)
	api.GET("/contracts/:id/items", s.ListContractItems)
	api.POST("/contracts/:id/file-goals", s.AddFileGoal)
	api.GET("/contracts/:id/file-goals", s.ListFileGoals)
	api.PATCH("/file-goals/:id/active", s.SetFileGoalActive)

	api.POST("/playback-events", s.SubmitPlaybackEvent)
	api.POST("/playback-events/batch", s.CreatePlaybackBatch)
	api.GET("/playback-events", s.ListPlaybackEvents)
	api.GET("/playback-events/:id", s.GetPlaybackEventByID)

	api.POST("/reconcile", s.TriggerReconcile)

	api.GET("/reports/unaccounted", s.ListUnaccounted)
	api.GET("/reports/monitoring/:id", s.GetMonitoringSummary)
	api.GET("/reports/daily-today", s.TodaySummary)
	api.GET("/reports/dashboard", s.DashboardStats)

	api.POST("/contracts/:id/invoices", s.CreateInvoice)
	api.POST("/contracts/:id/invoices/current", s.GetOrCreateInvoice)
	api.POST("/contracts/:id/invoices/issue", s.IssueInvoice)
	api.GET("/contracts/:id/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.POST("/invoices/:id/pay", s.PayInvoice)
	api.POST("/invoices/:id/cancel", s.CancelInvoice)
	api.PATCH("/invoices/:id", s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.GET("/invoices/:id/pdf", s.InvoicePDF)
}
