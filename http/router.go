package http

import (
	"net/http"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/labstack/echo/v4"
)

var ErrServerClosed = http.ErrServerClosed

func NewRouter(orderRepo OrderRepo, metricsHandler http.Handler) *echo.Echo {
	server := commonHTTP.NewEcho()

	server.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	server.GET("/metrics", echo.WrapHandler(metricsHandler))

	handler := handler{
		orderRepo: orderRepo,
	}

	server.GET("/orders", handler.ListOrders)
	server.GET("/orders/:order_id", handler.GetOrder)

	return server
}
