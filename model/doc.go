// Package model hosts completion-client implementations for the engine's
// generation capability: a deterministic in-memory mock for tests and
// examples, plus vendor adapters (subpackages anthropic and openai) that
// map council messages onto the providers' chat APIs. Provider concerns
// such as credentials, retries and timeouts live entirely inside the
// adapters; the engine only sees core.CompletionClient.
package model
