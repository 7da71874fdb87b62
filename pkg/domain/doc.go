/*
Package domain contains the shared vocabulary of the statecraft runtime.

It defines the values that cross package boundaries: events sent to machine
instances, read-only snapshots of their state, lifecycle hook payloads and the
sentinel errors surfaced by adapters. The package holds no I/O and no engine
logic, so every adapter can depend on it without pulling the runtime in.

# Key Entities

  - Event: a named message with a loosely typed payload, decoded by machines into typed structs.
  - Snapshot: the state value, context and children of an instance at one point in time.
  - SnapshotDiff: the delta between two snapshots, streamed to clients over SSE.
  - LifecycleHooks: callbacks fired by the engine for observability.
*/
package domain
