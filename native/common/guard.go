package common

import (
	"errors"
	"sync"
)

// Module names understood by Guard.
const (
	ModuleCampaign = "campaign"
	ModuleOracle   = "oracle"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Pauses is a mutable PauseView toggled by operators.
type Pauses struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewPauses seeds the pause set with the supplied modules.
func NewPauses(modules ...string) *Pauses {
	p := &Pauses{paused: make(map[string]bool)}
	for _, m := range modules {
		p.paused[m] = true
	}
	return p
}

// Set pauses or resumes module.
func (p *Pauses) Set(module string, paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if paused {
		p.paused[module] = true
		return
	}
	delete(p.paused, module)
}

func (p *Pauses) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[module]
}
