// Package api defines the contract shared by every component of the
// workflow execution service: identifiers, the versioned KV store, the
// flow/template data model, the dynamic-value runtime used to encode poll
// results, and the executor lifecycle interface.
//
// Concrete implementations live under internal/ (in-memory and SQLite KV,
// the reference and mock executors) and in the postgres/, redis/, and
// mongo/ submodules (additional KV backends). Callers — the HTTP façade in
// particular — depend only on the interfaces declared here.
package api
