package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/inboxkit/mailsort/api"
	"github.com/inboxkit/mailsort/config"
	"github.com/inboxkit/mailsort/internal/cron"
	"github.com/inboxkit/mailsort/internal/logger"
	"github.com/inboxkit/mailsort/internal/repository"
	"github.com/inboxkit/mailsort/internal/tracing"
	"github.com/inboxkit/mailsort/services"
)

type Server struct {
	config       *config.Config
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cronManager  *cron.CronManager
	tracerCloser io.Closer
	schedulerErr chan error
}

func NewServer(cfg *config.Config, mailsortDB *gorm.DB) (*Server, error) {
	// Initialize logger
	logger := logger.NewAppLogger(cfg.Logger)
	logger.InitLogger()

	// Initialize tracing
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, logger)
	if err != nil {
		log.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	opentracing.SetGlobalTracer(tracer)

	// Initialize repositories
	repos := repository.InitRepositories(mailsortDB)

	// Initialize services
	svcs, err := services.InitServices(context.Background(), cfg, logger, repos)
	if err != nil {
		return nil, err
	}

	// Cron jobs run under leader election in-cluster and standalone elsewhere
	cronManager := cron.NewCronManager(cfg, logger, kubernetesClient(), repos)

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	return &Server{
		config:       cfg,
		router:       router,
		services:     svcs,
		repositories: repos,
		cronManager:  cronManager,
		tracerCloser: closer,
		schedulerErr: make(chan error, 1),
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

// kubernetesClient returns an in-cluster client, or nil when the worker runs
// outside Kubernetes. A nil client puts the cron manager in local mode.
func kubernetesClient() kubernetes.Interface {
	k8sConfig, err := rest.InClusterConfig()
	if err != nil {
		return nil
	}
	client, err := kubernetes.NewForConfig(k8sConfig)
	if err != nil {
		return nil
	}
	return client
}

func (s *Server) Initialize(ctx context.Context) error {
	// Setup API routes
	api.RegisterRoutes(ctx, s.router, s.services)

	// Start cron jobs
	log.Println("Starting cron manager...")
	return s.cronManager.Start(os.Getenv("POD_NAME"), os.Getenv("POD_NAMESPACE"))
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		// Create a new span for the panic
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		// Mark span as failed
		ext.Error.Set(span, true)

		// Log panic details
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		log.Printf("❌ Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	// Create root context for the application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize server components
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	// Start the onboarding scheduler with panic recovery. The loop blocks
	// until shutdown; a missing-credentials error surfaces on schedulerErr
	// before the first cycle and aborts startup.
	log.Println("Starting onboarding scheduler...")
	go s.wrapGoroutine("onboarding_scheduler", func() {
		s.schedulerErr <- s.services.OnboardingService.Start(ctx)
	})

	// Start HTTP server in a goroutine with panic recovery
	go s.wrapGoroutine("http_server", func() {
		log.Println("Starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ HTTP server error: %v", err)
		}
	})
	log.Println("✅ HTTP server started successfully")
	log.Println("Mailsort is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	// Set up signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Wait for a termination signal or a scheduler failure
	var runErr error
	select {
	case <-stop:
		log.Println("Shutting down...")
	case err := <-s.schedulerErr:
		if err != nil {
			log.Printf("❌ Onboarding scheduler error: %v", err)
			runErr = err
		}
		log.Println("Onboarding scheduler exited, shutting down...")
	}

	// Create a context with timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Stop the onboarding scheduler with timeout and panic recovery
	log.Println("Stopping onboarding scheduler...")
	stopDone := make(chan struct{})
	go s.wrapGoroutine("onboarding_scheduler_shutdown", func() {
		defer close(stopDone)
		if err := s.services.OnboardingService.Stop(); err != nil {
			log.Printf("❌ Onboarding scheduler shutdown error: %v", err)
		} else {
			log.Println("✅ Onboarding scheduler stopped successfully")
		}
	})

	// Wait for the scheduler to stop with timeout
	select {
	case <-stopDone:
		log.Println("Onboarding scheduler stopped gracefully")
	case <-time.After(10 * time.Second):
		log.Println("⚠️ Onboarding scheduler stop timed out, forcing exit")
	}

	// Stop cron jobs
	s.cronManager.Stop()

	// Shut down HTTP server
	log.Println("Shutting down HTTP server...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ HTTP server shutdown error: %v", err)
	} else {
		log.Println("✅ HTTP server shut down successfully")
	}

	// Close the events publisher so confirmed messages are flushed
	if s.services.EventsPublisher != nil {
		if err := s.services.EventsPublisher.Close(); err != nil {
			log.Printf("❌ Events publisher shutdown error: %v", err)
		}
	}

	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	return runErr
}
