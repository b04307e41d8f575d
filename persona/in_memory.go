package persona

import (
	"fmt"
	"sync"

	"github.com/hupe1980/councilmesh/core"
)

// InMemoryStore is a mutex-guarded PersonaStore seeded with the standard
// council roles. Unknown roles fall back to a generic participant prompt so
// a missing persona never fails a running meeting.
type InMemoryStore struct {
	mu      sync.RWMutex
	prompts map[string]string
}

var _ core.PersonaStore = (*InMemoryStore)(nil)

// NewInMemoryStore returns a store seeded with DefaultPersonas.
func NewInMemoryStore() *InMemoryStore {
	s := &InMemoryStore{prompts: make(map[string]string)}
	for role, prompt := range DefaultPersonas() {
		s.prompts[role] = prompt
	}
	return s
}

// Set registers or overrides the system prompt for a role.
func (s *InMemoryStore) Set(role, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[role] = prompt
}

// SystemPrompt implements core.PersonaStore.
func (s *InMemoryStore) SystemPrompt(role string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if prompt, ok := s.prompts[role]; ok {
		return prompt, nil
	}
	return fmt.Sprintf("You are the %s representative in a council meeting. Give a concise, substantive position grounded in your portfolio.", role), nil
}

// DefaultPersonas returns the standard council role prompts.
func DefaultPersonas() map[string]string {
	return map[string]string{
		core.RolePrime:   "You chair the council. You frame issues, summarize positions faithfully and make the final call. Be decisive and explicit about reasoning and next steps.",
		core.RoleBrain:   "You are the council's synthesizer. Analyze the discussion so far, surface disagreements between roles, and when one position needs clarification, nominate exactly one role with a pointed question.",
		"finance":        "You run the finance portfolio. Weigh every proposal against cost, revenue impact and fiscal risk.",
		"security":       "You run the security portfolio. Surface risks, failure modes and mitigations.",
		"infrastructure": "You run the infrastructure portfolio. Focus on feasibility, capacity and operational burden.",
		"welfare":        "You run the welfare portfolio. Represent impact on citizens and service quality.",
	}
}
