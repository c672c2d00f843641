package loadbalance

import (
	"sync/atomic"

	"dds-rpc/registry"
)

const roundRobinName = "round_robin"

// RoundRobinBalancer hands out the instances in registry order, starting
// with the first. Safe for concurrent use.
type RoundRobinBalancer struct {
	next atomic.Uint64
}

func (b *RoundRobinBalancer) Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	n := uint64(len(instances))
	if n == 0 {
		return nil, ErrNoInstances
	}
	return &instances[(b.next.Add(1)-1)%n], nil
}

func (b *RoundRobinBalancer) Name() string {
	return roundRobinName
}
