package module

import (
	"slices"
	"sync"
	"testing"
)

type uploadPorts struct{ Storage string }

func TestRegistry(t *testing.T) {
	t.Cleanup(Reset)

	Register("uploads", uploadPorts{Storage: "s3"})
	Register("meta", nil)

	p, ok := PortsAs[uploadPorts]("uploads")
	if !ok || p.Storage != "s3" {
		t.Fatalf("ports %+v ok=%v", p, ok)
	}
	if _, ok := PortsAs[string]("uploads"); ok {
		t.Fatal("wrong type must not assert")
	}
	if _, ok := PortsAs[any]("meta"); ok {
		t.Fatal("nil ports are not registered")
	}

	Register("uploads", uploadPorts{Storage: "file"})
	if p, _ := PortsAs[uploadPorts]("uploads"); p.Storage != "file" {
		t.Fatalf("replace: %+v", p)
	}
	if got := Names(); !slices.Equal(got, []string{"uploads"}) {
		t.Fatalf("names %v", got)
	}

	Reset()
	if len(Names()) != 0 {
		t.Fatal("reset left entries")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Cleanup(Reset)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := string(rune('a' + i))
			Register(name, i)
			if v, ok := PortsAs[int](name); !ok || v != i {
				t.Errorf("%s: %v %v", name, v, ok)
			}
		}()
	}
	wg.Wait()
	if len(Names()) != 16 {
		t.Fatalf("names %v", Names())
	}
}
