// Package catalog owns the product catalog.
//
// The catalog is loaded once at startup and kept in memory for the lifetime
// of the process. Every stock change must be followed by Persist before the
// operation that caused it is complete:
//
//	store := catalog.Load("shared-data/catalog.json", logger)
//
//	if err := store.AdjustStock("hoodie-001", -2); err != nil {
//	    return err
//	}
//	if err := store.Persist(); err != nil {
//	    return err
//	}
//
// Load never fails. A missing or corrupt file produces an empty catalog and a
// warning in the log.
package catalog
