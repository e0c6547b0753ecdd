// Package chain defines the ledger collaborator consumed by bcfs: account
// addresses, 128-bit balances, events and the pending transaction a contract
// executes in.
//
// Implementations supply per-transaction state; bcfs never outlives the
// transaction it was created for.
package chain
