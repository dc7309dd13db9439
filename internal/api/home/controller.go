package home

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed index.html
var indexPage []byte

type Controller struct{}

func New() *Controller {
	return &Controller{}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.index)
}

func (controller *Controller) index(ec echo.Context) error {
	return ec.HTMLBlob(http.StatusOK, indexPage)
}
