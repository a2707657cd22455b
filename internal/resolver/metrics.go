package resolver

// Metrics receives resolver observability signals. A NoopMetrics
// implementation is used when no backend is configured, so the resolver
// itself carries no dependency on a metrics library.
type Metrics interface {
	Resolution()
	Hit()
	Miss()
	Eviction()
	SetCacheSize(entries int)
}

// NoopMetrics is the default Metrics implementation. Safe for concurrent use.
type NoopMetrics struct{}

func (NoopMetrics) Resolution()      {}
func (NoopMetrics) Hit()             {}
func (NoopMetrics) Miss()            {}
func (NoopMetrics) Eviction()        {}
func (NoopMetrics) SetCacheSize(int) {}

var _ Metrics = NoopMetrics{}
