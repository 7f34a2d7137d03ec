// Command ledgerctl is the operator CLI of the ledger service. It drives the
// accounting sync and outbox endpoints of a running server.
package main

func main() {
	Execute()
}
