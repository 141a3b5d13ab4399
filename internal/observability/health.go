package observability

import (
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/annel0/blockverse/internal/logging"
)

// Имена сервисов в gRPC health check. Пустое имя означает весь процесс.
const (
	ServiceGame = "blockverse.game"
	ServiceREST = "blockverse.rest"
)

// HealthServer отдает стандартный grpc.health.v1 для оркестраторов.
// Сервисы стартуют в NOT_SERVING и переводятся в SERVING после запуска.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	logger *logging.Logger
}

// NewHealthServer создает сервер health check
func NewHealthServer() *HealthServer {
	hs := &HealthServer{
		srv:    grpc.NewServer(),
		health: health.NewServer(),
		logger: logging.GetServerLogger(),
	}
	healthpb.RegisterHealthServer(hs.srv, hs.health)
	for _, svc := range []string{"", ServiceGame, ServiceREST} {
		hs.health.SetServingStatus(svc, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return hs
}

// SetServing меняет статус сервиса; статус процесса SERVING, пока игра обслуживается
func (hs *HealthServer) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	hs.health.SetServingStatus(service, status)
	if service == ServiceGame {
		hs.health.SetServingStatus("", status)
	}
}

// Serve блокируется до Shutdown
func (hs *HealthServer) Serve(ln net.Listener) error {
	hs.logger.Info("🩺 gRPC health check на %s", ln.Addr())
	if err := hs.srv.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Shutdown переводит все сервисы в NOT_SERVING и останавливает сервер
func (hs *HealthServer) Shutdown() {
	hs.health.Shutdown()
	hs.srv.GracefulStop()
}
