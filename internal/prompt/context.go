package prompt

import (
	"encoding/json"
	"fmt"
	"sync"
)

// PermanentContext holds process-wide facts injected into every prompt
// regardless of user (e.g. the assistant persona). Seeded at startup,
// extended via Add, never deleted.
type PermanentContext struct {
	mu    sync.RWMutex
	facts map[string]string
}

func NewPermanentContext() *PermanentContext {
	return &PermanentContext{facts: make(map[string]string)}
}

// ParsePermanentContext seeds a context from a JSON object string, the
// format carried in the PERMANENT_CONTEXT environment variable.
func ParsePermanentContext(raw string) (*PermanentContext, error) {
	pc := NewPermanentContext()
	if raw == "" {
		return pc, nil
	}
	if err := json.Unmarshal([]byte(raw), &pc.facts); err != nil {
		return nil, fmt.Errorf("parse permanent context: %w", err)
	}
	if pc.facts == nil {
		pc.facts = make(map[string]string)
	}
	return pc, nil
}

func (p *PermanentContext) Add(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.facts[name] = value
}

// Snapshot returns a copy of the facts for rendering.
func (p *PermanentContext) Snapshot() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string, len(p.facts))
	for k, v := range p.facts {
		out[k] = v
	}
	return out
}
