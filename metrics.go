package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"museum/solver"
)

var (
	// solveTotal counts solve requests by result
	solveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "museum_solve_total",
		Help: "Total solve requests by result",
	}, []string{"result"})

	solveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "museum_solve_duration_seconds",
		Help:    "Solver run time in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	// solveStates tracks memoized states per completed solve
	solveStates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "museum_solve_states",
		Help:    "Distinct search states per completed solve",
		Buckets: prometheus.ExponentialBuckets(1, 4, 12),
	})
)

func observeSolve(result string, elapsed time.Duration, sol *solver.Solution) {
	solveTotal.WithLabelValues(result).Inc()
	solveDuration.Observe(elapsed.Seconds())
	if sol != nil {
		solveStates.Observe(float64(sol.Stats.States))
	}
}
