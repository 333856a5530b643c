// Package train defines the gear-train document model: the declarative
// JSON format exchanged with the external constraint solver, the
// Builder that assembles entities and constraints, the mesh graph, and
// the shared tolerance configuration.
package train
