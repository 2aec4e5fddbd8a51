// Package testdb provides SurrealDB-backed test environments.
//
// Each TestDB gets its own namespace with the onboarding schema applied,
// and removes it when the test ends:
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t)
//	    repo := repository.NewSessionRepository(tdb.DB)
//	}
//
// The database location comes from TEST_DB_HOST, TEST_DB_PORT,
// TEST_DB_USER and TEST_DB_PASSWORD. Tests are skipped when it cannot be
// reached.
package testdb
