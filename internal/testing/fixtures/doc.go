// Package fixtures creates users, wallets and raffles in a test database
// through the real repositories.
//
//	tdb := testdb.New(t)
//	f := fixtures.New(tdb.DB)
//	buyer := f.CreateUser(t, fixtures.WithBalance(5000))
//	raffle := f.CreateRaffle(t, f.CreateUser(t), fixtures.WithTickets(10))
package fixtures
