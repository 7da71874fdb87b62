/*
Package ports defines the driven ports (interfaces) of the runtime.

These interfaces decouple snapshot persistence from the storage backend, so the
same machines can run against memory, the local filesystem or Redis.

# Key Interfaces

  - SnapshotStore: persists and loads machine snapshots as domain.Record values.
  - DistributedLocker: serialises snapshot writes across processes sharing a store.
*/
package ports
