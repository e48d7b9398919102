// Package mcp implements the Model Context Protocol (MCP) server for voice
// shopping.
//
// The server exposes the catalog and order ledger to a voice agent as tools:
//   - list_products: Browse the catalog with optional filters
//   - create_order: Place an order for one or more products
//   - cancel_order: Cancel a whole order and restore stock
//   - cancel_order_item: Remove one product from an order
//   - get_total_spent: Sum of all confirmed orders
//   - get_total_today: Sum of confirmed orders placed today (UTC)
//   - list_orders: Browse the ledger, newest first
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol. The default transport is stdio; streamable
// HTTP is available for agents that run in another process or host:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Every tool result is a single text content holding indented JSON.
//
// # Tool: create_order
//
//	Request:
//	{
//	  "name": "create_order",
//	  "arguments": {
//	    "line_items": [
//	      {"product_id": "hoodie-001", "quantity": 2, "size": "M"},
//	      {"product_id": "mug-003"}
//	    ]
//	  }
//	}
//
//	Response:
//	{
//	  "id": "6f1c...",
//	  "items": [...],
//	  "total": 3250,
//	  "currency": "INR",
//	  "created_at": "2025-11-28T12:00:00Z",
//	  "status": "CONFIRMED"
//	}
//
// A product that offers sizes but was ordered without one (or with a size it
// does not offer) produces a disambiguation result instead of an order:
//
//	{
//	  "needs_size": true,
//	  "product_id": "hoodie-001",
//	  "available_sizes": ["S", "M", "L"],
//	  "message": "Which size would you like? Available sizes: S, M, L"
//	}
//
// # Errors
//
// Domain failures are ordinary results flagged with isError and carry a
// stable code the agent can branch on:
//
//	{"error": "Only 1 left in stock", "code": "INSUFFICIENT_STOCK", "product_id": "mug-003", "remaining": 1}
//
// Codes: PRODUCT_NOT_FOUND, ORDER_NOT_FOUND, ITEM_NOT_FOUND,
// ALREADY_CANCELLED, INSUFFICIENT_STOCK.
//
// Malformed arguments are JSON-RPC errors:
//   - -32601: Unknown tool
//   - -32602: Invalid params (missing order_id, line_items not an array, fractional quantity)
//   - -32603: Internal error (catalog or ledger could not be written)
//
// # Idempotency
//
// cancel_order on an already cancelled order succeeds with
// "already_cancelled": true and changes nothing. cancel_order_item on a
// cancelled order fails with ALREADY_CANCELLED.
package mcp
