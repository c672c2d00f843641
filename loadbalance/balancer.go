// Package loadbalance picks which registered DDS server receives a call.
//
// Two strategies are implemented:
//   - RoundRobin:      equal-capacity servers
//   - WeightedRandom:  servers advertising different weights
package loadbalance

import (
	"errors"
	"fmt"

	"dds-rpc/registry"
)

// ErrNoInstances is returned by Pick when the registry listed no server.
var ErrNoInstances = errors.New("no instances available")

// Balancer is the interface for load balancing strategies.
type Balancer interface {
	// Pick selects one instance from the available list.
	// Must be goroutine-safe.
	Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name returns the strategy name accepted by New.
	Name() string
}

// New returns the balancer registered under name: "round_robin" or
// "weighted_random". An empty name selects round robin.
func New(name string) (Balancer, error) {
	switch name {
	case "", roundRobinName:
		return &RoundRobinBalancer{}, nil
	case weightedRandomName:
		return &WeightedRandomBalancer{}, nil
	default:
		return nil, fmt.Errorf("unknown balancer %q", name)
	}
}
