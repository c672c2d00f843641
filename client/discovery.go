package client

import (
	"fmt"

	"dds-rpc/dds"
	"dds-rpc/loadbalance"
	"dds-rpc/registry"
)

// PickHost discovers the servers registered under service and lets bal
// choose among those serving the DDS program. The result is a host:port
// usable with any Client method.
func PickHost(reg registry.Registry, bal loadbalance.Balancer, service string) (string, error) {
	instances, err := reg.Discover(service)
	if err != nil {
		return "", err
	}
	serving := instances[:0:0]
	for _, inst := range instances {
		if inst.Serves(dds.Program, dds.Version) {
			serving = append(serving, inst)
		}
	}
	instance, err := bal.Pick(serving)
	if err != nil {
		return "", fmt.Errorf("service %s: %w", service, err)
	}
	return instance.Addr, nil
}
