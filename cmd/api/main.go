package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"warden.gg/internal/audit"
	"warden.gg/internal/auth"
	"warden.gg/internal/httpapi"
	"warden.gg/internal/modaction"
	"warden.gg/internal/modqueue"
	"warden.gg/internal/obs"
	"warden.gg/internal/store/pg"
	"warden.gg/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

type config struct {
	Addr          string `env:"WARDEN_ADDR" envDefault:":8080"`
	GRPCAddr      string `env:"WARDEN_GRPC_ADDR"`
	PGDSN         string `env:"WARDEN_PG_DSN"`
	MaxBodyBytes  int64  `env:"WARDEN_MAX_BODY_BYTES" envDefault:"1048576"`
	RateBurst     int    `env:"WARDEN_RATE_BURST" envDefault:"60"`
	RatePerSecond int    `env:"WARDEN_RATE_PER_SECOND" envDefault:"30"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Storage: Postgres when a DSN is set, in-memory otherwise (dev mode).
	var (
		db          *sql.DB
		assignments auth.AssignmentStore
		actionStore modaction.Store
		queueStore  modqueue.Store
		auditStore  audit.Store
	)
	if cfg.PGDSN != "" {
		store, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db = store.DB()
		assignments = store.Assignments()
		actionStore = store.Actions()
		queueStore = store.Queue()
		auditStore = store.Audit()
	} else {
		log.Println("WARDEN_PG_DSN not set, using in-memory stores")
		assignments = auth.NewMemoryAssignments()
		actionStore = modaction.NewMemoryStore()
		queueStore = modqueue.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}

	guard := auth.NewGuard(auth.DefaultCatalog(), assignments)
	events := stream.New()

	api := httpapi.New(httpapi.Config{
		Guard:    guard,
		Actions:  modaction.NewService(actionStore),
		Queue:    modqueue.NewService(queueStore, guard, modqueue.WithEvents(events)),
		Recorder: audit.NewRecorder(auditStore),
		Stream:   events,
		Ready:    httpapi.ReadyProbe{DB: db},
		Version:  version,
		Limits: httpapi.Limits{
			MaxBodyBytes:  cfg.MaxBodyBytes,
			RateBurst:     cfg.RateBurst,
			RatePerSecond: cfg.RatePerSecond,
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting warden-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// Optional gRPC health endpoint for orchestrators that probe gRPC.
	var grpcSrv *grpc.Server
	healthSrv := health.NewServer()
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, healthSrv)
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
		log.Printf("gRPC health on %s", cfg.GRPCAddr)
	}

	obs.SetReady(true)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
