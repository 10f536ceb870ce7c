// Package module keeps the process wide table of module ports, filled while the API mounts
package module

import (
	"slices"
	"sync"
)

var (
	mu  sync.RWMutex
	reg = map[string]any{}
)

// Register stores the ports of module name; a later call for the same name replaces it
// nil ports are skipped so PortsAs only finds modules that export something
func Register(name string, ports any) {
	if ports == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	reg[name] = ports
}

// PortsAs fetches the ports of name as T
func PortsAs[T any](name string) (T, bool) {
	mu.RLock()
	defer mu.RUnlock()
	out, ok := reg[name].(T)
	return out, ok
}

// Names lists registered modules in sorted order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Reset clears the table; tests call it from Cleanup
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	clear(reg)
}
