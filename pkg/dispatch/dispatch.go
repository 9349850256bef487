// Package dispatch binds the preview's single import action to a callback.
package dispatch

import "github.com/leapstack-labs/repolens/pkg/preview"

// Dispatcher exposes exactly one action bound to onImport.
type Dispatcher struct {
	onImport func()
}

// New returns a dispatcher bound to onImport.
func New(onImport func()) *Dispatcher {
	return &Dispatcher{onImport: onImport}
}

// Control returns the state of the action's control for the given props.
func (d *Dispatcher) Control(p preview.Props) preview.ImportControl {
	return p.Control()
}

// Trigger invokes onImport when the control is visible and enabled and
// reports whether it did. A disabled or hidden control has no effect.
func (d *Dispatcher) Trigger(p preview.Props) bool {
	if d.onImport == nil || !p.Control().Enabled() {
		return false
	}
	d.onImport()
	return true
}
