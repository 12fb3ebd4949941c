package order

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/comanda-labs/comanda/internal/dto"
	"github.com/comanda-labs/comanda/internal/entity"
	"github.com/comanda-labs/comanda/internal/presentation/http/response"
	service "github.com/comanda-labs/comanda/internal/service/order"
	"github.com/comanda-labs/comanda/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/comanda-labs/comanda/transport/http/order")

// Handler exposes order lifecycle endpoints over HTTP. Every route carries
// the tenant id in the path; there is no ambient tenant context.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/tenants/:tenantId/orders")
	g.POST("", h.create)
	g.GET("/:id", h.getByID)
	g.POST("/:id/items", h.addItems)
	g.PATCH("/:id/status", h.updateStatus)
	g.PATCH("/:id/items/:itemId/status", h.updateItemStatus)
	g.POST("/:id/payment", h.pay)
	g.POST("/:id/cancel", h.cancel)
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	tenantID, orderID, err := pathIDs(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	order, err := h.svc.Get(ctx, tenantID, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	tenantID, err := pathID(c, "tenantId")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.CreateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.String("order.channel", payload.Channel),
	))
	defer span.End()

	order, err := h.svc.CreateOrder(ctx, tenantID, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTO(order)).Build()
}

func (h *Handler) addItems(c echo.Context) error {
	b := response.New(c)

	tenantID, orderID, err := pathIDs(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.AddItemsRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.addItems", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	order, err := h.svc.AddItems(ctx, tenantID, orderID, payload.Items)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) updateStatus(c echo.Context) error {
	b := response.New(c)

	tenantID, orderID, err := pathIDs(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.UpdateStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateStatus", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
		attribute.String("order.requested_status", payload.Status),
	))
	defer span.End()

	order, err := h.svc.UpdateOrderStatus(ctx, tenantID, orderID, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) updateItemStatus(c echo.Context) error {
	b := response.New(c)

	tenantID, orderID, err := pathIDs(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.UpdateStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateItemStatus", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
		attribute.Int64("item.id", itemID),
	))
	defer span.End()

	order, err := h.svc.UpdateItemStatus(ctx, tenantID, orderID, itemID, payload.Status)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) pay(c echo.Context) error {
	b := response.New(c)

	tenantID, orderID, err := pathIDs(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.PayOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.pay", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
		attribute.String("payment.method", payload.Method),
	))
	defer span.End()

	order, err := h.svc.PayOrder(ctx, tenantID, orderID, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)

	tenantID, orderID, err := pathIDs(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.CancelOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancel", trace.WithAttributes(
		attribute.Int64("tenant.id", tenantID),
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	order, err := h.svc.CancelOrder(ctx, tenantID, orderID, payload.Reason)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(order)).Build()
}

func pathIDs(c echo.Context) (tenantID, orderID int64, err error) {
	tenantID, err = pathID(c, "tenantId")
	if err != nil {
		return 0, 0, err
	}
	orderID, err = pathID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	return tenantID, orderID, nil
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("invalid "+name, errorbank.WithCause(err))
	}
	return id, nil
}

func toDTO(order *entity.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Modifiers: item.Modifiers,
			Status:    string(item.Status),
			Notes:     item.Notes,
		})
	}
	return dto.OrderResponse{
		ID:            order.ID,
		TenantID:      order.TenantID,
		Number:        order.Number,
		Channel:       string(order.Channel),
		Status:        string(order.Status),
		TableID:       order.TableID,
		Subtotal:      order.Subtotal,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		PaidAt:        order.PaidAt,
		Notes:         order.Notes,
		Items:         items,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}
