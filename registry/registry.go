package registry

import (
	"fmt"
	"strings"
)

// ServiceInstance describes one DDS server reachable over ONC RPC.
type ServiceInstance struct {
	Addr    string // host:port of the RPC listener
	Weight  int
	Version string // comma separated ProgramTag values
}

// ProgramTag renders one registered program for ServiceInstance.Version.
func ProgramTag(prog, vers uint32) string {
	return fmt.Sprintf("%#x:%d", prog, vers)
}

// Serves reports whether the instance registered prog at vers. An instance
// with no Version is assumed to serve everything.
func (s ServiceInstance) Serves(prog, vers uint32) bool {
	if s.Version == "" {
		return true
	}
	want := ProgramTag(prog, vers)
	for _, tag := range strings.Split(s.Version, ",") {
		if tag == want {
			return true
		}
	}
	return false
}

type Registry interface {
	Register(serviceName string, instance ServiceInstance, ttl int64) error
	Deregister(serviceName string, addr string) error
	Discover(serviceName string) ([]ServiceInstance, error)
	Watch(serviceName string) <-chan []ServiceInstance
}
