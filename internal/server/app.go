package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"deposit-collector/pkg/logger"
)

type Config struct {
	HttpPort string
	GrpcPort string
}

// App runs the HTTP API and the gRPC health endpoint until a shutdown signal arrives.
type App struct {
	httpServer   *http.Server
	grpcServer   *grpc.Server
	grpcListener net.Listener
	health       *health.Server
}

func New(cfg Config, httpHandler *gin.Engine) (*App, error) {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GrpcPort)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on grpc port %s: %w", cfg.GrpcPort, err)
	}

	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)

	return &App{
		httpServer:   httpSrv,
		grpcServer:   grpcServer,
		grpcListener: lis,
		health:       hs,
	}, nil
}

// Run starts both servers and blocks until SIGINT or SIGTERM.
// onShutdown runs after the listeners stop accepting work.
func (a *App) Run(onShutdown func(ctx context.Context)) {
	go func() {
		logger.Info("Starting HTTP Server", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Server failure", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Starting gRPC Server", zap.String("addr", a.grpcListener.Addr().String()))
		if err := a.grpcServer.Serve(a.grpcListener); err != nil {
			logger.Fatal("gRPC Server failure", zap.Error(err))
		}
	}()
	a.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	a.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	a.grpcServer.GracefulStop()

	if onShutdown != nil {
		onShutdown(ctx)
	}
	logger.Info("Server exited properly")
}
