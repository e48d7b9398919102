package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"

	"github.com/dshills/voicecart-mcp/internal/orders"
	"github.com/dshills/voicecart-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeUnknownTool   = -32601 // Tool is not registered
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
)

// Result codes carried by domain error results
const (
	CodeProductNotFound   = "PRODUCT_NOT_FOUND"
	CodeOrderNotFound     = "ORDER_NOT_FOUND"
	CodeItemNotFound      = "ITEM_NOT_FOUND"
	CodeAlreadyCancelled  = "ALREADY_CANCELLED"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
)

// ErrUnknownTool is returned by Call for names missing from the registry
var ErrUnknownTool = errors.New("unknown tool")

// handleListProducts handles the list_products tool invocation
func (s *Server) handleListProducts(_ context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	filters, err := parseFilters(args["filters"])
	if err != nil {
		return nil, err
	}

	products := s.catalog.Query(filters)
	return map[string]interface{}{
		"products": products,
		"count":    len(products),
	}, nil
}

// handleCreateOrder handles the create_order tool invocation
func (s *Server) handleCreateOrder(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	items, err := parseLineItems(args["line_items"])
	if err != nil {
		return nil, err
	}

	order, err := s.orders.CreateOrder(ctx, items)
	if err != nil {
		return domainResponse(err)
	}

	return map[string]interface{}{
		"id":         order.ID,
		"items":      order.Items,
		"total":      order.Total,
		"currency":   order.Currency,
		"created_at": order.CreatedAt,
		"status":     order.Status,
	}, nil
}

// handleCancelOrder handles the cancel_order tool invocation
func (s *Server) handleCancelOrder(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	orderID, err := requireString(args, "order_id")
	if err != nil {
		return nil, err
	}

	result, err := s.orders.CancelOrder(ctx, orderID)
	if err != nil {
		return domainResponse(err)
	}

	if result.AlreadyCancelled {
		return map[string]interface{}{
			"message":           "Order is already cancelled",
			"order_id":          result.OrderID,
			"already_cancelled": true,
		}, nil
	}
	return map[string]interface{}{
		"message":  "Order cancelled and stock restored",
		"order_id": result.OrderID,
	}, nil
}

// handleCancelOrderItem handles the cancel_order_item tool invocation
func (s *Server) handleCancelOrderItem(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	orderID, err := requireString(args, "order_id")
	if err != nil {
		return nil, err
	}
	productID, err := requireString(args, "product_id")
	if err != nil {
		return nil, err
	}

	result, err := s.orders.CancelOrderItem(ctx, orderID, productID)
	if err != nil {
		return domainResponse(err)
	}

	message := "Item removed from order"
	if result.Status == types.StatusCancelled {
		message = "Last item removed, order cancelled"
	}
	return map[string]interface{}{
		"message":            message,
		"order_id":           result.OrderID,
		"removed_product_id": result.RemovedProductID,
		"new_total":          result.NewTotal,
		"currency":           result.Currency,
		"status":             result.Status,
	}, nil
}

// handleGetTotalSpent handles the get_total_spent tool invocation
func (s *Server) handleGetTotalSpent(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
	summary, err := s.orders.TotalSpent(ctx)
	if err != nil {
		return domainResponse(err)
	}
	return map[string]interface{}{
		"total_spent": summary.Total,
		"currency":    summary.Currency,
		"order_count": summary.OrderCount,
	}, nil
}

// handleGetTotalToday handles the get_total_today tool invocation
func (s *Server) handleGetTotalToday(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
	summary, err := s.orders.TotalToday(ctx)
	if err != nil {
		return domainResponse(err)
	}
	return map[string]interface{}{
		"total_spent_today": summary.Total,
		"currency":          summary.Currency,
		"orders_today":      summary.OrderCount,
	}, nil
}

// handleListOrders handles the list_orders tool invocation
func (s *Server) handleListOrders(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	status := types.Status(strings.ToUpper(strings.TrimSpace(getStringDefault(args, "status", ""))))
	if status != "" && !status.Valid() {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid status", map[string]interface{}{
			"param":  "status",
			"reason": fmt.Sprintf("must be %s or %s", types.StatusConfirmed, types.StatusCancelled),
		})
	}

	list, err := s.orders.ListOrders(ctx, status)
	if err != nil {
		return domainResponse(err)
	}
	return map[string]interface{}{
		"orders": list,
		"count":  len(list),
	}, nil
}

// domainResponse turns a service error into a structured result. Only
// argument and internal failures remain errors.
func domainResponse(err error) (map[string]interface{}, error) {
	var needsSize *orders.NeedsSizeError
	var insufficient *orders.InsufficientStockError

	switch {
	case errors.As(err, &needsSize):
		return map[string]interface{}{
			"needs_size":      true,
			"product_id":      needsSize.ProductID,
			"available_sizes": needsSize.AvailableSizes,
			"message":         "Which size would you like? Available sizes: " + strings.Join(needsSize.AvailableSizes, ", "),
		}, nil
	case errors.As(err, &insufficient):
		response := errorResponse(CodeInsufficientStock, fmt.Sprintf("Only %d left in stock", insufficient.Remaining))
		response["product_id"] = insufficient.ProductID
		response["remaining"] = insufficient.Remaining
		return response, nil
	case errors.Is(err, orders.ErrProductNotFound):
		return errorResponse(CodeProductNotFound, "Invalid product id"), nil
	case errors.Is(err, orders.ErrOrderNotFound):
		return errorResponse(CodeOrderNotFound, "Order not found"), nil
	case errors.Is(err, orders.ErrItemNotFound):
		return errorResponse(CodeItemNotFound, "Product not found in this order"), nil
	case errors.Is(err, orders.ErrAlreadyCancelled):
		return errorResponse(CodeAlreadyCancelled, "Order is already cancelled"), nil
	case errors.Is(err, orders.ErrInvalidQuantity), errors.Is(err, orders.ErrNoItems):
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{
			"param": "line_items",
		})
	default:
		return nil, newMCPError(ErrorCodeInternalError, "operation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func errorResponse(code, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": message,
		"code":  code,
	}
}

func isErrorResponse(response map[string]interface{}) bool {
	_, ok := response["error"]
	return ok
}

// parseFilters decodes the optional list_products filters object. Unknown
// keys are ignored.
func parseFilters(raw interface{}) (types.ProductFilters, error) {
	var filters types.ProductFilters
	if raw == nil {
		return filters, nil
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return filters, newMCPError(ErrorCodeInvalidParams, "filters must be an object", map[string]interface{}{
			"param": "filters",
		})
	}

	var err error
	if filters.Category, err = optionalString(obj, "category"); err != nil {
		return filters, err
	}
	if filters.Color, err = optionalString(obj, "color"); err != nil {
		return filters, err
	}

	if v, present := obj["max_price"]; present && v != nil {
		price, err := toDecimal(v)
		if err != nil {
			return filters, newMCPError(ErrorCodeInvalidParams, "max_price must be a number", map[string]interface{}{
				"param":  "filters.max_price",
				"reason": err.Error(),
			})
		}
		filters.MaxPrice = &price
	}

	return filters, nil
}

// parseLineItems decodes create_order line items. Quantity defaults to 1 and
// must be a whole number; range checks are left to the order service.
func parseLineItems(raw interface{}) ([]orders.ItemRequest, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "line_items must be an array", map[string]interface{}{
			"param":  "line_items",
			"reason": "missing or not an array",
		})
	}
	if len(list) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "line_items cannot be empty", map[string]interface{}{
			"param": "line_items",
		})
	}

	items := make([]orders.ItemRequest, 0, len(list))
	for i, entry := range list {
		param := fmt.Sprintf("line_items[%d]", i)
		obj, ok := entry.(map[string]interface{})
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "line item must be an object", map[string]interface{}{
				"param": param,
			})
		}

		productID, ok := obj["product_id"].(string)
		if !ok || strings.TrimSpace(productID) == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, "product_id is required", map[string]interface{}{
				"param":  param + ".product_id",
				"reason": "missing or empty",
			})
		}

		quantity := 1
		if v, present := obj["quantity"]; present && v != nil {
			q, ok := toInt(v)
			if !ok {
				return nil, newMCPError(ErrorCodeInvalidParams, "quantity must be a whole number", map[string]interface{}{
					"param": param + ".quantity",
				})
			}
			quantity = q
		}

		size, err := optionalString(obj, "size")
		if err != nil {
			return nil, err
		}

		items = append(items, orders.ItemRequest{
			ProductID: productID,
			Quantity:  quantity,
			Size:      size,
		})
	}

	return items, nil
}

// Helper functions

// argumentsOf extracts the argument object of a tool request. Absent
// arguments are treated as an empty object.
func argumentsOf(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
	err     error
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func (e *MCPError) Unwrap() error {
	return e.err
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// requireString extracts a non-empty string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// optionalString extracts a string parameter that may be absent or null
func optionalString(args map[string]interface{}, key string) (string, error) {
	v, present := args[key]
	if !present || v == nil {
		return "", nil
	}
	val, ok := v.(string)
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, key+" must be a string", map[string]interface{}{
			"param": key,
		})
	}
	return val, nil
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// toInt accepts JSON numbers that hold a whole value
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case json.Number:
		return decimal.NewFromString(n.String())
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported type %T", v)
	}
}
