// Package registry provides the etcd-based directory of DDS servers.
//
// Each server registers itself under
//
//	Key:   /dds-rpc/{ServiceName}/{Addr}
//	Value: JSON-encoded ServiceInstance
//
// Registration uses TTL-based leases: if a server crashes, the lease expires
// and the entry is removed.
package registry

import (
	"context"
	"sync"
	"time"

	"dds-rpc/codec"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// KeyPrefix is the root of every registry key.
const KeyPrefix = "/dds-rpc/"

const requestTimeout = 5 * time.Second

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // shared across goroutines
	codec  codec.Codec

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID // key -> lease kept alive by Register
}

// NewEtcdRegistry creates a new registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: requestTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{
		client: c,
		codec:  codec.GetCodec(codec.CodecTypeJSON),
		leases: make(map[string]clientv3.LeaseID),
	}, nil
}

func servicePrefix(serviceName string) string {
	return KeyPrefix + serviceName + "/"
}

// Register puts the instance under a fresh TTL lease and keeps the lease
// alive until Deregister or Close. Registering the same address again
// replaces the previous lease.
func (r *EtcdRegistry) Register(serviceName string, instance ServiceInstance, ttl int64) error {
	key := servicePrefix(serviceName) + instance.Addr
	val, err := r.codec.Encode(instance)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}
	if _, err := r.client.Put(ctx, key, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	// The keepalive outlives this call, so it gets its own context
	ch, err := r.client.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		return err
	}
	go func() {
		for range ch {
		}
	}()

	r.mu.Lock()
	old, replaced := r.leases[key]
	r.leases[key] = lease.ID
	r.mu.Unlock()
	if replaced {
		r.revoke(old)
	}
	return nil
}

// Deregister removes the instance and revokes its lease, which also stops
// the keepalive.
func (r *EtcdRegistry) Deregister(serviceName string, addr string) error {
	key := servicePrefix(serviceName) + addr

	r.mu.Lock()
	id, ok := r.leases[key]
	delete(r.leases, key)
	r.mu.Unlock()
	if ok {
		return r.revoke(id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	_, err := r.client.Delete(ctx, key)
	return err
}

func (r *EtcdRegistry) revoke(id clientv3.LeaseID) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	_, err := r.client.Revoke(ctx, id)
	return err
}

// Watch emits the full instance list whenever the service prefix changes.
// The channel closes when the registry is closed.
func (r *EtcdRegistry) Watch(serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(r.client.Ctx(), servicePrefix(serviceName), clientv3.WithPrefix())
		for range watchChan {
			instances, err := r.Discover(serviceName)
			if err != nil {
				continue
			}
			ch <- instances
		}
	}()

	return ch
}

// Discover returns all currently registered instances for a service, in
// key order.
func (r *EtcdRegistry) Discover(serviceName string) ([]ServiceInstance, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := r.client.Get(ctx, servicePrefix(serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := r.codec.Decode(kv.Value, &instance); err != nil {
			continue // malformed entry
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Close releases the etcd client. Leases still held expire after their TTL.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
