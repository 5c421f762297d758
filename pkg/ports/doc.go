/*
Package ports defines the driven ports (interfaces) for the formflow engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends, schema sources and lock services.

# Key Interfaces

  - SessionStore: Responsible for persisting and loading a user's Session.
  - DistributedLocker: Provides distributed locking for concurrent access to one user.
  - SchemaSource: Produces schema definitions (e.g., from YAML or JSON files).
  - FlowEngine: The operations hosts invoke on the flow controller.
*/
package ports
