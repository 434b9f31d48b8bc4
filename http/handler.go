package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"orders/booking"
	"orders/db"
	"orders/entity"
	"strconv"

	"github.com/labstack/echo/v4"
)

const maxListLimit = 1000

type OrderRepo interface {
	Get(ctx context.Context, orderID string) (entity.Order, error)
	List(ctx context.Context, filter db.ListFilter) ([]entity.Order, error)
}

type handler struct {
	orderRepo OrderRepo
}

func (h handler) ListOrders(c echo.Context) error {
	var filter db.ListFilter

	if s := c.QueryParam("sync_status"); s != "" {
		status := entity.SyncStatus(s)
		if !status.Valid() {
			return &echo.HTTPError{
				Code:    http.StatusBadRequest,
				Message: fmt.Sprintf("invalid sync_status %q", s),
			}
		}
		filter.SyncStatus = status
	}

	if l := c.QueryParam("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 || limit > maxListLimit {
			return &echo.HTTPError{
				Code:    http.StatusBadRequest,
				Message: fmt.Sprintf("limit must be between 1 and %d", maxListLimit),
			}
		}
		filter.Limit = limit
	}

	orders, err := h.orderRepo.List(c.Request().Context(), filter)
	if err != nil {
		return &echo.HTTPError{
			Code:     http.StatusInternalServerError,
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: fmt.Errorf("listing orders: %w", err),
		}
	}

	return c.JSON(http.StatusOK, orders)
}

func (h handler) GetOrder(c echo.Context) error {
	order, err := h.orderRepo.Get(c.Request().Context(), c.Param("order_id"))
	if errors.Is(err, booking.ErrOrderNotFound) {
		return &echo.HTTPError{
			Code:    http.StatusNotFound,
			Message: "order not found",
		}
	}
	if err != nil {
		return &echo.HTTPError{
			Code:     http.StatusInternalServerError,
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: fmt.Errorf("getting order: %w", err),
		}
	}

	return c.JSON(http.StatusOK, order)
}
