package module

import "formdata/internal/services/uploads/domain"

// Ports is what the uploads module exposes to other modules
type Ports struct {
	Service domain.ServicePort
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
