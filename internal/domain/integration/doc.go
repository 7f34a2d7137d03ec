// Package integration contains the Integration bounded context.
// This context keeps the production ledger in step with an external accounting ledger.
//
// Key concepts:
//   - AccountingService: Port interface for pushing customers, invoices and payments to the external ledger
//   - CredentialProvider: Port handing out a usable OAuth credential, refreshing it when needed
//   - EntityMapping: Entity linking an internal record to its external counterpart and concurrency token
//   - SyncLogEntry: Append-only audit record of every push attempt
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
