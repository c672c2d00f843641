package registry

import (
	"os"
	"strings"
	"testing"
	"time"
)

// newTestRegistry connects to the etcd cluster named by DDS_ETCD_ENDPOINTS
// and skips the test when none is configured.
func newTestRegistry(t *testing.T) *EtcdRegistry {
	t.Helper()
	endpoints := os.Getenv("DDS_ETCD_ENDPOINTS")
	if endpoints == "" {
		t.Skip("DDS_ETCD_ENDPOINTS not set")
	}
	reg, err := NewEtcdRegistry(strings.Split(endpoints, ","))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRegisterAndDiscover(t *testing.T) {
	reg := newTestRegistry(t)
	service := "dds-test-" + time.Now().Format("150405.000000")

	inst1 := ServiceInstance{Addr: "127.0.0.1:8001", Weight: 10, Version: "0x20000101:1"}
	inst2 := ServiceInstance{Addr: "127.0.0.1:8002", Weight: 5, Version: "0x20000101:1"}

	if err := reg.Register(service, inst1, 10); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(service, inst2, 10); err != nil {
		t.Fatal(err)
	}

	instances, err := reg.Discover(service)
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 2 {
		t.Fatalf("expect 2 instances, got %d", len(instances))
	}

	if err := reg.Deregister(service, inst1.Addr); err != nil {
		t.Fatal(err)
	}

	instances, err = reg.Discover(service)
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 1 {
		t.Fatalf("expect 1 instance after deregister, got %d", len(instances))
	}
	if instances[0] != inst2 {
		t.Fatalf("expect %+v, got %+v", inst2, instances[0])
	}

	reg.Deregister(service, inst2.Addr)
}

func TestWatch(t *testing.T) {
	reg := newTestRegistry(t)
	service := "dds-watch-" + time.Now().Format("150405.000000")

	updates := reg.Watch(service)
	time.Sleep(100 * time.Millisecond)

	inst := ServiceInstance{Addr: "127.0.0.1:8003", Weight: 1}
	if err := reg.Register(service, inst, 10); err != nil {
		t.Fatal(err)
	}
	defer reg.Deregister(service, inst.Addr)

	select {
	case instances := <-updates:
		if len(instances) != 1 || instances[0].Addr != inst.Addr {
			t.Fatalf("unexpected update %v", instances)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no watch update")
	}
}

func TestRegisterTwiceKeepsOneEntry(t *testing.T) {
	reg := newTestRegistry(t)
	service := "dds-rereg-" + time.Now().Format("150405.000000")

	inst := ServiceInstance{Addr: "127.0.0.1:8004", Weight: 1}
	if err := reg.Register(service, inst, 10); err != nil {
		t.Fatal(err)
	}
	inst.Weight = 3
	if err := reg.Register(service, inst, 10); err != nil {
		t.Fatal(err)
	}

	instances, err := reg.Discover(service)
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 1 || instances[0].Weight != 3 {
		t.Fatalf("expect the second registration only, got %v", instances)
	}

	if err := reg.Deregister(service, inst.Addr); err != nil {
		t.Fatal(err)
	}
	if instances, _ := reg.Discover(service); len(instances) != 0 {
		t.Fatalf("expect no instances, got %v", instances)
	}
}
