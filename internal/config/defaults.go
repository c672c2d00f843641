package config

import (
	"time"

	"dds-rpc/server"
	"dds-rpc/simulator"
)

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:7001",
			ServiceName:     server.DefaultServiceName,
			Weight:          10,
			RateBurst:       10,
			CallTimeout:     Duration(5 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Portmap: PortmapConfig{
			Listen: "127.0.0.1:111",
		},
		Registry: RegistryConfig{
			TTL:      10,
			Balancer: "round_robin",
		},
		Gateway: GatewayConfig{
			Listen: "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level: "info",
		},
		Simulator: simulator.DefaultConfig(),
	}
}
