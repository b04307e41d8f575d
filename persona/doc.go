// Package persona provides the in-process default implementation of the
// persona capability: system prompts per role. Real deployments load
// personas from configuration and inject their own core.PersonaStore; this
// store seeds a small standard council so examples and tests run out of the
// box.
package persona
