package health

import (
	"context"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultInterval = 15 * time.Second

// Probe checks one dependency of the console.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server publishes the console readiness through the standard gRPC health
// service. The status is recomputed from the probes on every interval.
type Server struct {
	service  string
	probes   []Probe
	interval time.Duration
	timeout  time.Duration
	health   *grpchealth.Server
	logger   aqm.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewServer creates a health server for service. It reports NOT_SERVING until
// the first probe round passes.
func NewServer(service string, logger aqm.Logger, probes ...Probe) *Server {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	s := &Server{
		service:  service,
		probes:   probes,
		interval: defaultInterval,
		timeout:  5 * time.Second,
		health:   grpchealth.NewServer(),
		logger:   logger,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// RegisterGRPCService registers the health service with the gRPC server (aqm.GRPCServiceRegistrar interface)
func (s *Server) RegisterGRPCService(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, s.health)
}

// Start runs a probe round and keeps probing in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return nil
	}

	s.Probe(ctx)

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	s.health.Shutdown()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Probe runs every probe once and updates the serving status.
func (s *Server) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	healthy := true
	for _, p := range s.probes {
		if err := p.Check(ctx); err != nil {
			s.logger.Info("health probe failed", "probe", p.Name, "error", err)
			healthy = false
		}
	}

	if healthy {
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
	} else {
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return healthy
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
}

func (s *Server) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Probe(context.Background())
		}
	}
}
