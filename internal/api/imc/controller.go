package imc

import (
	_ "embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/hbomb79/Hermes/internal/bmi"
	"github.com/labstack/echo/v4"
)

//go:embed imc.html
var pageSource string

var pageTemplate = template.Must(template.New("imc").Parse(pageSource))

type (
	Request struct {
		Peso   string `query:"peso"`
		Altura string `query:"altura"`
	}

	ResultDto struct {
		Value    string
		Category string
	}

	page struct {
		Peso    string
		Altura  string
		Result  *ResultDto
		Message string
		Error   string
	}

	Controller struct{}
)

func New() *Controller {
	return &Controller{}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("", controller.calculate)
}

// calculate renders the calculator page. Missing (or zero) inputs render the
// prompt, while unparseable or negative inputs render an error with a 400.
func (controller *Controller) calculate(ec echo.Context) error {
	var request Request
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	view := page{Peso: request.Peso, Altura: request.Altura}

	peso, pesoErr := ParseMeasurement(request.Peso)
	altura, alturaErr := ParseMeasurement(request.Altura)
	if pesoErr != nil || alturaErr != nil {
		view.Error = "Peso e altura devem ser números válidos."
		return render(ec, http.StatusBadRequest, view)
	}

	result, err := bmi.Calculate(peso, altura)
	switch {
	case errors.Is(err, bmi.ErrMissingInput):
		view.Message = bmi.Prompt
		return render(ec, http.StatusOK, view)
	case err != nil:
		view.Error = err.Error()
		return render(ec, http.StatusBadRequest, view)
	}

	view.Result = &ResultDto{Value: result.Formatted(), Category: result.Category.String()}
	return render(ec, http.StatusOK, view)
}

// ParseMeasurement parses a decimal number which may use either a
// dot or a comma as the decimal separator. An empty value is zero.
func ParseMeasurement(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	return strconv.ParseFloat(strings.Replace(value, ",", ".", 1), 64)
}

func render(ec echo.Context, code int, view page) error {
	var out strings.Builder
	if err := pageTemplate.Execute(&out, view); err != nil {
		return err
	}

	return ec.HTML(code, out.String())
}
