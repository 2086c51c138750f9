package expr

import "math"

// Scd is the standard Cauchy density 1 / (pi * (1 + x^2)).
func Scd(x float64) float64 {
	return 1 / (math.Pi * (1 + x*x))
}

var unaryFuncs = map[UnaryKind]func(float64) float64{
	Neg:    func(x float64) float64 { return -x },
	Sin:    math.Sin,
	Cos:    math.Cos,
	Exp:    math.Exp,
	Log:    math.Log,
	Sqrt:   math.Sqrt,
	Cbrt:   math.Cbrt,
	Abs:    math.Abs,
	Cauchy: Scd,
}

var binaryFuncs = map[BinaryKind]func(a, b float64) float64{
	Add: func(a, b float64) float64 { return a + b },
	Sub: func(a, b float64) float64 { return a - b },
	Mul: func(a, b float64) float64 { return a * b },
	Div: func(a, b float64) float64 { return a / b },
}

// pow raises x to an integer exponent.
func pow(x float64, n int) float64 {
	if n == -1 {
		return 1 / x
	}
	return math.Pow(x, float64(n))
}
