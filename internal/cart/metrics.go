package cart

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultNoop  = "noop"
	resultError = "error"
)

type Metrics struct {
	operations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartstore",
		Subsystem: "cart",
		Name:      "operations_total",
		Help:      "Cart operations by outcome.",
	}, []string{"op", "result"})

	if err := reg.Register(operations); err != nil {
		return nil, fmt.Errorf("reg.Register: %w", err)
	}

	return &Metrics{operations: operations}, nil
}

func (m *Metrics) observe(op string, err error, noop bool) {
	if m == nil {
		return
	}

	result := resultOK
	switch {
	case err != nil:
		result = resultError
	case noop:
		result = resultNoop
	}

	m.operations.WithLabelValues(op, result).Inc()
}
