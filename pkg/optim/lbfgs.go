package optim

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/optimize"
)

// Objective is a differentiable function of the parameter vector. Grad
// writes the gradient at x into grad.
type Objective struct {
	Func func(x []float64) float64
	Grad func(grad, x []float64)
}

// LBFGS minimises an Objective with gonum's limited-memory BFGS.
type LBFGS struct {
	MaxIter           int     // major iterations, 0 => gonum default
	GradientThreshold float64 // stop once the gradient infinity norm is below this
	Store             int     // history size, 0 => gonum default
}

// NewLBFGS returns an optimizer bounded at maxIter major iterations.
func NewLBFGS(maxIter int) *LBFGS {
	return &LBFGS{MaxIter: maxIter, GradientThreshold: 1e-5}
}

// Result is the outcome of a minimisation.
type Result struct {
	X          []float64
	F          float64
	Iterations int
	Converged  bool
}

// Minimize runs the optimizer from x0. Reaching the iteration bound is not an
// error; the best point found so far is returned with Converged=false.
func (o *LBFGS) Minimize(obj Objective, x0 []float64) (Result, error) {
	if obj.Func == nil || obj.Grad == nil {
		return Result{}, errors.New("optim: objective needs Func and Grad")
	}
	problem := optimize.Problem{Func: obj.Func, Grad: obj.Grad}
	settings := &optimize.Settings{
		MajorIterations:   o.MaxIter,
		GradientThreshold: o.GradientThreshold,
	}
	res, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{Store: o.Store})
	if res == nil {
		return Result{}, fmt.Errorf("optim: lbfgs: %w", err)
	}
	out := Result{
		X:          res.X,
		F:          res.F,
		Iterations: res.Stats.MajorIterations,
		Converged:  err == nil && res.Status != optimize.IterationLimit,
	}
	if err != nil {
		if !finite(res.X) {
			return Result{}, fmt.Errorf("optim: lbfgs: %w", err)
		}
		// line search failures near the optimum still leave a usable point
		log.Warn().Err(err).Int("iterations", out.Iterations).Msg("L-BFGS stopped early, keeping last point")
	}
	if !out.Converged {
		log.Debug().Str("status", res.Status.String()).Int("iterations", out.Iterations).Msg("L-BFGS did not converge")
	}
	return out, nil
}

func finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return len(x) > 0
}
