// Package types provides shared domain types for the VoiceCart MCP server.
//
// The catalog store, order ledger, order service and MCP tool adapter all
// exchange these types, and their JSON form is the on-disk format of the
// catalog and ledger files.
//
// # Core Types
//
// Product is a sellable catalog entry with a price and a stock level:
//
//	product := types.Product{
//	    ID:       "tshirt-001",
//	    Name:     "Basic Tee",
//	    Category: "tshirt",
//	    Color:    "black",
//	    Price:    decimal.NewFromInt(499),
//	    Currency: "INR",
//	    Stock:    20,
//	    Sizes:    []string{"S", "M", "L"},
//	}
//
// Order holds line items whose name, unit price and currency are snapshots
// taken when the order was created:
//
//	order.Recalculate() // Total = Σ unit_price × quantity
//
// # Status
//
// Orders move from CONFIRMED to CANCELLED and never back.
//
// # Money
//
// Prices and totals use github.com/shopspring/decimal so sums stay exact.
// They are encoded as JSON numbers.
package types
