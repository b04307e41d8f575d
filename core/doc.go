// Package core contains the shared domain model and collaborator contracts
// for CouncilMesh: meetings, messages, stages, durable records and the
// narrow interfaces (completion client, persona store, record store,
// notifier) through which the orchestration engine talks to the outside
// world. Higher-level packages (budget, scheduler, compress, retrieval,
// summary, flow) depend on core; core depends on nothing but the standard
// library and uuid.
package core
