// Package testdb provides isolated SurrealDB databases for repository
// integration tests.
//
// Each TestDB lives in its own namespace with every embedded migration
// applied, so tests exercise the real SurrealQL behind the repositories:
// guarded wallet statements, ticket sequencing and bid transactions.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t)
//	    repo := repository.NewWalletRepository(tdb.DB)
//	    ...
//	}
//
// Connection settings come from TEST_DB_HOST, TEST_DB_PORT, TEST_DB_USER
// and TEST_DB_PASSWORD. Without TEST_DB_HOST the tests are skipped, so
// `go test ./...` stays hermetic on machines with no SurrealDB running.
package testdb
