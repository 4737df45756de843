// Package stats collects per-client traffic statistics for sessions.
package stats

import (
	"cmp"
	"io"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

type trafficCollector struct {
	bytesSent     atomic.Uint64
	segmentsSent  atomic.Uint64
	batchesSent   atomic.Uint64
	bytesReceived atomic.Uint64
	reads         atomic.Uint64
	connects      atomic.Uint64
	closes        atomic.Uint64
	errors        atomic.Uint64

	// Monotonic counters exported to Prometheus. Nil when export is disabled.
	promBytesSent     *metrics.Counter
	promSegmentsSent  *metrics.Counter
	promBytesReceived *metrics.Counter
	promConnects      *metrics.Counter
	promCloses        *metrics.Counter
	promErrors        *metrics.Counter
}

func newTrafficCollector(set *metrics.Set, labels string) *trafficCollector {
	tc := &trafficCollector{}
	if set != nil {
		tc.promBytesSent = set.GetOrCreateCounter("asynctcp_sent_bytes_total" + labels)
		tc.promSegmentsSent = set.GetOrCreateCounter("asynctcp_sent_segments_total" + labels)
		tc.promBytesReceived = set.GetOrCreateCounter("asynctcp_received_bytes_total" + labels)
		tc.promConnects = set.GetOrCreateCounter("asynctcp_connects_total" + labels)
		tc.promCloses = set.GetOrCreateCounter("asynctcp_closes_total" + labels)
		tc.promErrors = set.GetOrCreateCounter("asynctcp_errors_total" + labels)
	}
	return tc
}

func addCounter(c *metrics.Counter, n uint64) {
	if c != nil {
		c.Add(int(n))
	}
}

func (tc *trafficCollector) collectConnect() {
	tc.connects.Add(1)
	addCounter(tc.promConnects, 1)
}

func (tc *trafficCollector) collectBatch(segments, bytes uint64) {
	tc.batchesSent.Add(1)
	tc.segmentsSent.Add(segments)
	tc.bytesSent.Add(bytes)
	addCounter(tc.promSegmentsSent, segments)
	addCounter(tc.promBytesSent, bytes)
}

func (tc *trafficCollector) collectReceive(bytes uint64) {
	tc.reads.Add(1)
	tc.bytesReceived.Add(bytes)
	addCounter(tc.promBytesReceived, bytes)
}

func (tc *trafficCollector) collectError() {
	tc.errors.Add(1)
	addCounter(tc.promErrors, 1)
}

func (tc *trafficCollector) collectClose() {
	tc.closes.Add(1)
	addCounter(tc.promCloses, 1)
}

// Traffic stores the traffic statistics.
type Traffic struct {
	BytesSent     uint64 `json:"bytesSent"`
	SegmentsSent  uint64 `json:"segmentsSent"`
	BatchesSent   uint64 `json:"batchesSent"`
	BytesReceived uint64 `json:"bytesReceived"`
	Reads         uint64 `json:"reads"`
	Connects      uint64 `json:"connects"`
	Closes        uint64 `json:"closes"`
	Errors        uint64 `json:"errors"`
}

func (t *Traffic) Add(u Traffic) {
	t.BytesSent += u.BytesSent
	t.SegmentsSent += u.SegmentsSent
	t.BatchesSent += u.BatchesSent
	t.BytesReceived += u.BytesReceived
	t.Reads += u.Reads
	t.Connects += u.Connects
	t.Closes += u.Closes
	t.Errors += u.Errors
}

func (tc *trafficCollector) snapshot() Traffic {
	return Traffic{
		BytesSent:     tc.bytesSent.Load(),
		SegmentsSent:  tc.segmentsSent.Load(),
		BatchesSent:   tc.batchesSent.Load(),
		BytesReceived: tc.bytesReceived.Load(),
		Reads:         tc.reads.Load(),
		Connects:      tc.connects.Load(),
		Closes:        tc.closes.Load(),
		Errors:        tc.errors.Load(),
	}
}

// snapshotAndReset only resets the snapshot counters.
// Prometheus counters stay monotonic.
func (tc *trafficCollector) snapshotAndReset() Traffic {
	return Traffic{
		BytesSent:     tc.bytesSent.Swap(0),
		SegmentsSent:  tc.segmentsSent.Swap(0),
		BatchesSent:   tc.batchesSent.Swap(0),
		BytesReceived: tc.bytesReceived.Swap(0),
		Reads:         tc.reads.Swap(0),
		Connects:      tc.connects.Swap(0),
		Closes:        tc.closes.Swap(0),
		Errors:        tc.errors.Swap(0),
	}
}

// Client stores a named client's traffic statistics.
type Client struct {
	Name string `json:"client"`
	Traffic
}

// Compare is useful for sorting clients by name.
func (c Client) Compare(other Client) int {
	return cmp.Compare(c.Name, other.Name)
}

// Engine stores the traffic statistics of all clients reporting to a collector.
type Engine struct {
	Traffic
	Clients []Client `json:"clients,omitempty"`
}

type engineCollector struct {
	tc  *trafficCollector
	ccs *xsync.MapOf[string, *trafficCollector]
	set *metrics.Set
}

// NewEngineCollector returns a new collector.
// If set is not nil, monotonic counters are also registered in it.
func NewEngineCollector(set *metrics.Set) Collector {
	return &engineCollector{
		tc:  newTrafficCollector(set, ""),
		ccs: xsync.NewMapOf[string, *trafficCollector](),
		set: set,
	}
}

func (ec *engineCollector) trafficCollector(client string) *trafficCollector {
	if client == "" {
		return ec.tc
	}
	tc, _ := ec.ccs.LoadOrCompute(client, func() *trafficCollector {
		return newTrafficCollector(ec.set, `{client=`+strconv.Quote(client)+`}`)
	})
	return tc
}

// CollectConnect implements the Collector CollectConnect method.
func (ec *engineCollector) CollectConnect(client string) {
	ec.trafficCollector(client).collectConnect()
}

// CollectBatch implements the Collector CollectBatch method.
func (ec *engineCollector) CollectBatch(client string, segments, bytes uint64) {
	ec.trafficCollector(client).collectBatch(segments, bytes)
}

// CollectReceive implements the Collector CollectReceive method.
func (ec *engineCollector) CollectReceive(client string, bytes uint64) {
	ec.trafficCollector(client).collectReceive(bytes)
}

// CollectError implements the Collector CollectError method.
func (ec *engineCollector) CollectError(client string) {
	ec.trafficCollector(client).collectError()
}

// CollectClose implements the Collector CollectClose method.
func (ec *engineCollector) CollectClose(client string) {
	ec.trafficCollector(client).collectClose()
}

func (ec *engineCollector) collectSnapshot(snapshot func(*trafficCollector) Traffic) (e Engine) {
	e.Traffic = snapshot(ec.tc)
	e.Clients = make([]Client, 0, ec.ccs.Size())
	ec.ccs.Range(func(name string, tc *trafficCollector) bool {
		c := Client{Name: name, Traffic: snapshot(tc)}
		e.Traffic.Add(c.Traffic)
		e.Clients = append(e.Clients, c)
		return true
	})
	slices.SortFunc(e.Clients, Client.Compare)
	return
}

// Snapshot implements the Collector Snapshot method.
func (ec *engineCollector) Snapshot() Engine {
	return ec.collectSnapshot((*trafficCollector).snapshot)
}

// SnapshotAndReset implements the Collector SnapshotAndReset method.
func (ec *engineCollector) SnapshotAndReset() Engine {
	return ec.collectSnapshot((*trafficCollector).snapshotAndReset)
}

// WritePrometheus implements the Collector WritePrometheus method.
func (ec *engineCollector) WritePrometheus(w io.Writer) {
	if ec.set != nil {
		ec.set.WritePrometheus(w)
	}
}

// Collector collects client traffic statistics.
// An empty client name attributes the traffic to the engine itself.
type Collector interface {
	// CollectConnect records an established connection.
	CollectConnect(client string)

	// CollectBatch records one drained batch written to the connection.
	CollectBatch(client string, segments, bytes uint64)

	// CollectReceive records one read from the connection.
	CollectReceive(client string, bytes uint64)

	// CollectError records an error reported to the handler.
	CollectError(client string)

	// CollectClose records a closed session.
	CollectClose(client string)

	// Snapshot returns the traffic statistics.
	Snapshot() Engine

	// SnapshotAndReset returns the traffic statistics and resets them.
	SnapshotAndReset() Engine

	// WritePrometheus writes the monotonic counters in Prometheus text format.
	WritePrometheus(w io.Writer)
}

// NoopCollector is a no-op collector.
// Its collect methods do nothing and its snapshot method returns empty statistics.
type NoopCollector struct{}

// CollectConnect implements the Collector CollectConnect method.
func (NoopCollector) CollectConnect(client string) {}

// CollectBatch implements the Collector CollectBatch method.
func (NoopCollector) CollectBatch(client string, segments, bytes uint64) {}

// CollectReceive implements the Collector CollectReceive method.
func (NoopCollector) CollectReceive(client string, bytes uint64) {}

// CollectError implements the Collector CollectError method.
func (NoopCollector) CollectError(client string) {}

// CollectClose implements the Collector CollectClose method.
func (NoopCollector) CollectClose(client string) {}

// Snapshot implements the Collector Snapshot method.
func (NoopCollector) Snapshot() Engine {
	return Engine{}
}

// SnapshotAndReset implements the Collector SnapshotAndReset method.
func (NoopCollector) SnapshotAndReset() Engine {
	return Engine{}
}

// WritePrometheus implements the Collector WritePrometheus method.
func (NoopCollector) WritePrometheus(w io.Writer) {}

// Config stores configuration for the stats collector.
type Config struct {
	Enabled bool `json:"enabled"`

	// Prometheus registers monotonic counters in a new [metrics.Set]
	// for export by [Collector.WritePrometheus].
	Prometheus bool `json:"prometheus"`
}

// Collector returns a new stats collector from the config.
func (c Config) Collector() Collector {
	if !c.Enabled {
		return NoopCollector{}
	}
	var set *metrics.Set
	if c.Prometheus {
		set = metrics.NewSet()
	}
	return NewEngineCollector(set)
}
