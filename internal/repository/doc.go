// Package repository implements the SurrealDB data access layer for
// onboarding sessions and submitted profiles.
//
// Repositories take a database.Database and speak parameterized SurrealQL.
// Lookups that find nothing return (nil, nil); callers decide whether that
// is an error.
//
//	repo := repository.NewSessionRepository(db)
//	session, err := repo.GetSession(ctx, sessionID)
//	if err != nil {
//	    return err
//	}
//	if session == nil {
//	    // unknown or swept
//	}
package repository
