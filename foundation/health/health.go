package health

import (
	"net"

	"github.com/superfeelapi/goEmotionFusion/foundation/state"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/v1"
)

// Server exposes grpc.health.v1 with one entry per state toggle plus the
// overall "" service, which is SERVING while the store is up.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *zap.SugaredLogger
}

func New(st *state.State, logger *zap.SugaredLogger) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)

	for _, svc := range state.Services {
		s.set(svc, st.Get(svc))
	}
	st.Watch(s.set)

	return s
}

func (s *Server) set(svc state.Service, on bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if on {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(svc.String(), status)

	if svc == state.Store {
		s.health.SetServingStatus("", status)
	}
	s.logger.Infow("health: set", "service", svc.String(), "status", status.String())
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(l net.Listener) error {
	return s.grpc.Serve(l)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
