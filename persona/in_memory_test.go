package persona

import (
	"strings"
	"testing"
)

func TestInMemoryStoreSeededRoles(t *testing.T) {
	store := NewInMemoryStore()

	for role := range DefaultPersonas() {
		prompt, err := store.SystemPrompt(role)
		if err != nil {
			t.Fatalf("SystemPrompt(%q) error: %v", role, err)
		}
		if prompt == "" {
			t.Errorf("SystemPrompt(%q) returned empty prompt", role)
		}
	}
}

func TestInMemoryStoreUnknownRoleFallsBack(t *testing.T) {
	store := NewInMemoryStore()

	prompt, err := store.SystemPrompt("culture")
	if err != nil {
		t.Fatalf("SystemPrompt error: %v", err)
	}
	if !strings.Contains(prompt, "culture") {
		t.Errorf("fallback prompt should name the role, got %q", prompt)
	}
}

func TestInMemoryStoreSetOverrides(t *testing.T) {
	store := NewInMemoryStore()
	store.Set("finance", "custom finance prompt")

	prompt, err := store.SystemPrompt("finance")
	if err != nil {
		t.Fatalf("SystemPrompt error: %v", err)
	}
	if prompt != "custom finance prompt" {
		t.Errorf("prompt = %q, want override", prompt)
	}
}
