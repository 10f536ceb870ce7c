// Package modkit provides module wiring and core deps
package modkit

import (
	"formdata/internal/modkit/repokit"
	"formdata/internal/platform/config"
	"formdata/internal/platform/logger"
	"formdata/internal/platform/net/http/formkit"
	"formdata/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	// Log is the module parent logger; nil falls back to the process root
	Log *logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse

	// Forms is the process wide multipart kit, nil for modules that take no forms
	Forms *formkit.Kit
}

// Logger returns a child of Log tagged with component
func (d Deps) Logger(component string) *logger.Logger {
	if d.Log == nil {
		return logger.Named(component)
	}
	l := d.Log.With().Str("component", component).Logger()
	return &l
}
