package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// listProductsTool returns the tool definition for list_products
func listProductsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_products",
		Description: "List catalog products, optionally filtered by category, color and maximum price",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional filters; all given filters must match",
					"properties": map[string]interface{}{
						"category": map[string]interface{}{
							"type":        "string",
							"description": "Exact product category, e.g. hoodie or mug",
						},
						"color": map[string]interface{}{
							"type":        "string",
							"description": "Exact product color",
						},
						"max_price": map[string]interface{}{
							"type":        "number",
							"description": "Inclusive upper bound on unit price",
							"minimum":     0,
						},
					},
				},
			},
		},
	}
}

// createOrderTool returns the tool definition for create_order
func createOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_order",
		Description: "Place an order for one or more catalog products. Products with sizes need a size; if it is missing the result asks which size to use.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"line_items": map[string]interface{}{
					"type":        "array",
					"description": "Products to order",
					"minItems":    1,
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"product_id": map[string]interface{}{
								"type":        "string",
								"description": "Catalog product ID",
							},
							"quantity": map[string]interface{}{
								"type":        "integer",
								"description": "Units to order",
								"default":     1,
								"minimum":     1,
							},
							"size": map[string]interface{}{
								"type":        "string",
								"description": "Size, required for products that offer sizes",
							},
						},
						"required": []string{"product_id"},
					},
				},
			},
			Required: []string{"line_items"},
		},
	}
}

// cancelOrderTool returns the tool definition for cancel_order
func cancelOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cancel_order",
		Description: "Cancel a whole order and return its items to stock",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id": map[string]interface{}{
					"type":        "string",
					"description": "Order ID returned by create_order",
				},
			},
			Required: []string{"order_id"},
		},
	}
}

// cancelOrderItemTool returns the tool definition for cancel_order_item
func cancelOrderItemTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cancel_order_item",
		Description: "Remove one product from an order and return it to stock. Removing the last item cancels the order.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"order_id": map[string]interface{}{
					"type":        "string",
					"description": "Order ID returned by create_order",
				},
				"product_id": map[string]interface{}{
					"type":        "string",
					"description": "Product to remove from the order",
				},
			},
			Required: []string{"order_id", "product_id"},
		},
	}
}

// getTotalSpentTool returns the tool definition for get_total_spent
func getTotalSpentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_total_spent",
		Description: "Total amount spent across all confirmed orders",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getTotalTodayTool returns the tool definition for get_total_today
func getTotalTodayTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_total_today",
		Description: "Total amount spent on confirmed orders placed today (UTC)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// listOrdersTool returns the tool definition for list_orders
func listOrdersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_orders",
		Description: "List orders newest first, optionally only confirmed or cancelled ones",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Only return orders with this status",
					"enum":        []string{"CONFIRMED", "CANCELLED"},
				},
			},
		},
	}
}
