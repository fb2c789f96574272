package blobstore

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumented wraps a Store and counts its operations.
//
// Metrics:
//   - remotejson_blob_operations_total{op,result}: op is save, delete or
//     open; result is ok, not_found or error.
//   - remotejson_blob_saved_bytes_total: bytes passed to successful saves.
type Instrumented struct {
	Store
	ops   *prometheus.CounterVec
	bytes prometheus.Counter
}

// NewInstrumented wraps s and registers its collectors with reg. A nil reg
// leaves the collectors unregistered.
func NewInstrumented(s Store, reg prometheus.Registerer) (*Instrumented, error) {
	i := &Instrumented{
		Store: s,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remotejson",
			Subsystem: "blob",
			Name:      "operations_total",
			Help:      "Blob store operations by kind and result.",
		}, []string{"op", "result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "remotejson",
			Subsystem: "blob",
			Name:      "saved_bytes_total",
			Help:      "Bytes written by successful blob saves.",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{i.ops, i.bytes} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return i, nil
}

// Save implements Store.
func (i *Instrumented) Save(p string, content []byte) (string, error) {
	out, err := i.Store.Save(p, content)
	i.observe("save", err)
	if err == nil {
		i.bytes.Add(float64(len(content)))
	}
	return out, err
}

// Delete implements Store.
func (i *Instrumented) Delete(p string) error {
	err := i.Store.Delete(p)
	i.observe("delete", err)
	return err
}

// Open implements Store.
func (i *Instrumented) Open(p string) (io.ReadCloser, error) {
	r, err := i.Store.Open(p)
	i.observe("open", err)
	return r, err
}

// List implements Lister when the wrapped store does.
func (i *Instrumented) List() ([]string, error) {
	l, ok := i.Store.(Lister)
	if !ok {
		return nil, errNotLister
	}
	return l.List()
}

func (i *Instrumented) observe(op string, err error) {
	i.ops.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isNotFound(err):
		return "not_found"
	}
	return "error"
}
