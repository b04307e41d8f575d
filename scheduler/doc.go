// Package scheduler serializes every outbound generation request, across
// all roles and all meetings, into a single ordered queue consumed by one
// worker loop. The strict global total order is a deliberate design
// constraint, not an incidental bottleneck: upstream vendor rate limits and
// cross-role prompts that reference "what was just said" require that a
// later-submitted request never races ahead of an earlier one. Failures
// resolve their caller but never stall the queue for subsequent requests.
package scheduler
