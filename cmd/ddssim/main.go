// Command ddssim runs a simulated DDS server: the DDS program over ONC RPC,
// optionally a portmapper, optionally registered in etcd.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"dds-rpc/internal/config"
	"dds-rpc/middleware"
	"dds-rpc/registry"
	"dds-rpc/server"
	"dds-rpc/simulator"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to the JSON configuration (default "+config.DefaultPath+" if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ddssim:", err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ddssim:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("ddssim stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sim, err := simulator.New(cfg.Simulator, logger.Named("simulator"))
	if err != nil {
		return err
	}

	svr := server.NewServer(
		server.WithLogger(logger.Named("server")),
		server.WithServiceName(cfg.Server.ServiceName),
		server.WithWeight(cfg.Server.Weight),
		server.WithRegistryTTL(cfg.Registry.TTL),
	)
	svr.Use(middleware.LoggingMiddleware(logger.Named("rpc")))
	if cfg.Server.RateLimit > 0 {
		svr.Use(middleware.RateLimitMiddleware(cfg.Server.RateLimit, cfg.Server.RateBurst))
	}
	if cfg.Server.CallTimeout > 0 {
		svr.Use(middleware.TimeOutMiddleware(cfg.Server.CallTimeout.Std()))
	}
	if err := sim.Register(svr); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return err
	}

	var reg registry.Registry
	if len(cfg.Registry.Endpoints) > 0 {
		etcd, err := registry.NewEtcdRegistry(cfg.Registry.Endpoints)
		if err != nil {
			return err
		}
		defer etcd.Close()
		reg = etcd
	}

	var pmServer *server.Server
	if cfg.Portmap.Enabled {
		pmServer, err = startPortmapper(cfg, svr, listener, logger)
		if err != nil {
			listener.Close()
			return err
		}
	}

	errc := make(chan error, 1)
	go func() {
		errc <- svr.Serve(listener, cfg.AdvertiseAddr(), reg)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.Stringer("signal", sig))
	}

	if pmServer != nil {
		pmServer.Shutdown(cfg.Server.ShutdownTimeout.Std())
	}
	return svr.Shutdown(cfg.Server.ShutdownTimeout.Std())
}

// startPortmapper serves a portmapper that maps every program of svr to the
// port of listener.
func startPortmapper(cfg *config.Config, svr *server.Server, listener net.Listener, logger *zap.Logger) (*server.Server, error) {
	_, portStr, err := net.SplitHostPort(listener.Addr().String())
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	pm := server.NewPortmapper()
	pm.Advertise(svr, port)

	pmServer := server.NewServer(server.WithLogger(logger.Named("portmap")))
	if err := pm.Register(pmServer); err != nil {
		return nil, err
	}
	pmListener, err := net.Listen("tcp", cfg.Portmap.Listen)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := pmServer.Serve(pmListener, "", nil); err != nil {
			logger.Error("portmapper stopped", zap.Error(err))
		}
	}()
	return pmServer, nil
}
