package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// apiService is the health service name reported for the HTTP API.
const apiService = "barakaflow.v1.API"

// loggingInterceptor logs incoming requests
func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			fields = append(fields, zap.String("ip", p.Addr.String()))
		}
		if err != nil {
			logger.Error("grpc call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("grpc call completed", fields...)
		}
		return resp, err
	}
}

// watchHealth reports SERVING while ping succeeds and NOT_SERVING otherwise,
// checking once immediately and then every interval until ctx is done.
func watchHealth(ctx context.Context, hs *health.Server, ping func(context.Context) error, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := grpc_health_v1.HealthCheckResponse_UNKNOWN
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := ping(pingCtx)
		cancel()

		next := grpc_health_v1.HealthCheckResponse_SERVING
		if err != nil {
			next = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		if next != last {
			if err != nil {
				logger.Warn("database unreachable, reporting NOT_SERVING", zap.Error(err))
			} else {
				logger.Info("database reachable, reporting SERVING")
			}
			hs.SetServingStatus("", next)
			hs.SetServingStatus(apiService, next)
			last = next
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// stopGRPC stops gracefully, forcing the stop when ctx expires first.
func stopGRPC(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
		<-done
	}
}
