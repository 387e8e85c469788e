// Package manager checks for and creates the target database on the
// maintenance database before a load.
//
// Database names are quoted with pgx.Identifier.Sanitize, so names with
// spaces, quotes or mixed case are safe.
//
// # Example Usage
//
//	mgr := manager.New()
//	exists, err := mgr.Exists(ctx, conn, "sky")
//	if err == nil && !exists {
//	    err = mgr.Create(ctx, conn, "sky")
//	}
package manager
