// Command ddsctl talks to DDS servers from the shell.
//
//	ddsctl [flags] phases HOST v1 ... v11
//	ddsctl [flags] walsh HOST
//	ddsctl [flags] ping HOST
//	ddsctl [flags] gateway
//
// With -service, HOST is omitted and picked from the etcd registry. Results
// are printed as JSON.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"dds-rpc/client"
	"dds-rpc/codec"
	"dds-rpc/dds"
	"dds-rpc/gateway"
	"dds-rpc/internal/config"
	"dds-rpc/loadbalance"
	"dds-rpc/registry"

	"go.uber.org/zap"
)

type options struct {
	configPath  string
	service     string
	portmapPort int
	gatewayAddr string
	verbose     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to the JSON configuration")
	flag.StringVar(&opts.service, "service", "", "pick the host from the etcd registry under this service name")
	flag.IntVar(&opts.portmapPort, "portmap-port", 0, "portmapper port used for bare host names (default 111)")
	flag.StringVar(&opts.gatewayAddr, "listen", "", "gateway listen address (default from configuration)")
	flag.BoolVar(&opts.verbose, "v", false, "log every call state")
	flag.Usage = usage
	flag.Parse()

	if err := run(opts, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ddsctl:", err)
		if kind := dds.Kind(err); kind != "" {
			fmt.Fprintln(os.Stderr, "kind:", kind)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(flag.CommandLine.Output(), `usage: ddsctl [flags] phases HOST v1 ... v11
       ddsctl [flags] walsh HOST
       ddsctl [flags] ping HOST
       ddsctl [flags] gateway`)
	flag.PrintDefaults()
}

var errUsage = errors.New("invalid arguments, see -h")

func run(opts options, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	clientOpts := []client.Option{client.WithLogger(logger)}
	if opts.portmapPort != 0 {
		clientOpts = append(clientOpts, client.WithPortmapperPort(opts.portmapPort))
	}
	c := client.New(clientOpts...)

	cmd, rest := args[0], args[1:]
	if cmd == "gateway" {
		addr := opts.gatewayAddr
		if addr == "" {
			addr = cfg.Gateway.Listen
		}
		return serveGateway(c, addr, logger)
	}

	host, rest, err := resolveHost(opts, cfg, rest)
	if err != nil {
		return err
	}

	var result any
	switch cmd {
	case "phases":
		phases := make([]any, len(rest))
		for i, s := range rest {
			phases[i] = parseNumber(s)
		}
		result, err = c.SendPhases(host, phases)
	case "walsh":
		result, err = c.GetWalshPattern(host)
	case "ping":
		err = c.Ping(host)
		result = map[string]string{"host": host, "status": "ok"}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}

	out, err := (&codec.JSONCodec{Indent: "  "}).Encode(result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", out)
	return err
}

// parseNumber keeps non-numeric arguments as strings so that the client
// reports them as TypeMismatch.
func parseNumber(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// resolveHost takes HOST from the arguments or, with -service, from etcd.
func resolveHost(opts options, cfg *config.Config, args []string) (string, []string, error) {
	if opts.service == "" {
		if len(args) == 0 {
			return "", nil, errUsage
		}
		return args[0], args[1:], nil
	}

	if len(cfg.Registry.Endpoints) == 0 {
		return "", nil, errors.New("-service needs registry endpoints (registry.endpoints or DDS_REGISTRY_ENDPOINTS)")
	}
	reg, err := registry.NewEtcdRegistry(cfg.Registry.Endpoints)
	if err != nil {
		return "", nil, err
	}
	defer reg.Close()

	bal, err := loadbalance.New(cfg.Registry.Balancer)
	if err != nil {
		return "", nil, err
	}
	host, err := client.PickHost(reg, bal, opts.service)
	if err != nil {
		return "", nil, err
	}
	return host, args, nil
}

func serveGateway(c *client.Client, addr string, logger *zap.Logger) error {
	h, err := gateway.New(c, logger.Named("gateway"))
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/rpc", h)
	logger.Info("gateway listening", zap.String("addr", addr), zap.String("path", "/rpc"))
	return http.ListenAndServe(addr, mux)
}
