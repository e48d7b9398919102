// Package ledger persists the order ledger.
//
// The ledger is the durable list of every order ever created, cancelled
// ones included. It is never cached: each operation loads the full ledger,
// mutates it in memory and saves it back.
//
//	orders, err := repo.LoadAll(ctx)
//	if err != nil {
//	    return err
//	}
//	orders = append(orders, newOrder)
//	if err := repo.SaveAll(ctx, orders); err != nil {
//	    return err
//	}
//
// # Backends
//
// FileRepository (default) keeps the ledger in one indented JSON document.
// A missing or corrupt file loads as an empty ledger.
//
// SQLiteRepository keeps the ledger in the orders and order_items tables and
// replaces it transactionally on SaveAll. The schema is versioned with
// semantic-version migrations.
//
// # Build Tags
//
// The default build uses modernc.org/sqlite (pure Go). Building with
// -tags sqlite_cgo switches to github.com/mattn/go-sqlite3.
package ledger
