// Package bmi implements the body-mass-index (IMC) calculation and its
// weight classification bands.
package bmi

import (
	"errors"
	"fmt"
	"math"
)

// Prompt is shown in place of a result when either input is missing
const Prompt = "Informe seu peso e sua altura para calcular o IMC."

var (
	ErrMissingInput  = errors.New(Prompt)
	ErrNegativeInput = errors.New("peso e altura não podem ser negativos")
	ErrInvalidInput  = errors.New("peso e altura devem ser números finitos")
)

type Category int

const (
	Underweight Category = iota
	NormalWeight
	Overweight
	Obese
)

func (c Category) String() string {
	switch c {
	case Underweight:
		return "Abaixo do peso"
	case NormalWeight:
		return "Peso normal"
	case Overweight:
		return "Sobrepeso"
	case Obese:
		return "Obesidade"
	}

	return fmt.Sprintf("Category(%d)", int(c))
}

// Classify returns the band the IMC value falls in. Band lower bounds
// are inclusive: 18.5 is normal weight, 25 is overweight and 30 is obese.
func Classify(imc float64) Category {
	switch {
	case imc < 18.5:
		return Underweight
	case imc < 25:
		return NormalWeight
	case imc < 30:
		return Overweight
	default:
		return Obese
	}
}

type Result struct {
	Value    float64
	Category Category
}

// Formatted returns the IMC value rounded to two decimal places
func (r Result) Formatted() string {
	return fmt.Sprintf("%.2f", r.Value)
}

// Calculate computes peso (kg) / altura (m) squared. If either input is zero
// no computation is performed and ErrMissingInput is returned.
func Calculate(peso float64, altura float64) (Result, error) {
	if math.IsNaN(peso) || math.IsNaN(altura) || math.IsInf(peso, 0) || math.IsInf(altura, 0) {
		return Result{}, ErrInvalidInput
	}
	if peso < 0 || altura < 0 {
		return Result{}, ErrNegativeInput
	}
	if peso == 0 || altura == 0 {
		return Result{}, ErrMissingInput
	}

	imc := peso / (altura * altura)
	return Result{Value: imc, Category: Classify(imc)}, nil
}
