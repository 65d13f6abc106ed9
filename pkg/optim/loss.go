package optim

import "math"

// Sigmoid is the logistic function, computed without overflow for large |x|.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

// Softplus returns log(1 + exp(x)) without overflow.
func Softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// LogLoss is the binary cross-entropy of label y in {0,1} given the logit z.
// It is Softplus(z) - y*z, which stays finite for any z.
func LogLoss(y, z float64) float64 {
	return Softplus(z) - y*z
}
