package evaluation

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type registerer interface {
	Register(prometheus.Registerer) error
}

func newTestRegistry(t *testing.T, r registerer) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	if err := r.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return reg
}

// gatherCounter sums every sample of the named counter family whose label
// values include labelValue.
func gatherCounter(t *testing.T, reg *prometheus.Registry, name, labelValue string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == labelValue {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}
