// Package orders implements order placement and cancellation.
//
// Service is the only code that changes stock or the ledger. Each operation
// runs under a single mutex and follows check-then-act:
//
//   - CreateOrder validates every line (product exists, size chosen, enough
//     stock) before deducting anything, so an order is created in full or
//     not at all.
//   - CancelOrder returns every line's quantity to stock. Cancelling twice is
//     reported, not rejected.
//   - CancelOrderItem removes one line and recomputes the total; an order
//     left with no lines becomes CANCELLED. A cancelled order is rejected
//     with ErrAlreadyCancelled.
//   - TotalSpent and TotalToday sum confirmed orders.
//
// # Failure Handling
//
// Stock is deducted in memory first, then the catalog and the ledger are
// written. If either write fails the in-memory stock is reset to its value
// before the operation, the catalog file is rewritten, and the error wraps
// ErrPersistence.
//
// # Errors
//
// Expected outcomes are returned as errors that callers branch on:
//
//	var needsSize *orders.NeedsSizeError
//	switch {
//	case errors.As(err, &needsSize):
//	    // ask the shopper which size
//	case errors.Is(err, orders.ErrProductNotFound):
//	    // unknown product
//	}
package orders
