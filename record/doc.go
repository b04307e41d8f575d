// Package record provides the in-process default implementation of the
// durable-record store capability. It keeps append-only records per type in
// memory and is suitable for tests, examples and single-process prototypes;
// production deployments supply a durable core.RecordStore backed by a
// database or object storage.
package record
