// Package ingest turns an NYC TLC trip-record parquet file into zones and
// routes in the record store.
package ingest

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"taxi_zones/internal/metrics"
	"taxi_zones/internal/reconcile"
	"taxi_zones/internal/store"
)

const (
	DefaultRowLimit   = 50000
	DefaultTopNRoutes = 50
)

// Request is one dataset upload.
type Request struct {
	FileName string
	Data     []byte
	Policy   string
	// RowLimit caps the rows read from the start of the file; 0 reads all.
	RowLimit int
	// TopNRoutes caps how many of the most frequent routes are reconciled.
	TopNRoutes int
}

// DefaultRequest returns a Request carrying the default row limit and
// top-N.
func DefaultRequest() Request {
	return Request{RowLimit: DefaultRowLimit, TopNRoutes: DefaultTopNRoutes}
}

// Summary reports what an ingestion did. Errors lists the zones and routes
// that were skipped, in the order they were met.
type Summary struct {
	FileName       string   `json:"file_name"`
	RowsRead       int      `json:"rows_read"`
	ZonesCreated   int      `json:"zones_created"`
	ZonesUpdated   int      `json:"zones_updated"`
	RoutesDetected int      `json:"routes_detected"`
	RoutesCreated  int      `json:"routes_created"`
	RoutesUpdated  int      `json:"routes_updated"`
	Errors         []string `json:"errors"`
}

// RouteCount is a pickup/dropoff pair and the number of trips between them.
type RouteCount struct {
	Pickup  int
	Dropoff int
	Trips   int
}

// Pipeline runs ingestions against a store.
type Pipeline struct {
	reconciler *reconcile.Reconciler
	log        logrus.FieldLogger
}

// New returns a Pipeline writing to s. A nil logger uses the logrus
// standard logger.
func New(s *store.Store, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		reconciler: reconcile.New(s),
		log:        log,
	}
}

// Run ingests a dataset. It returns either a Summary or an *Error; an
// *Error means the store was not modified.
func (p *Pipeline) Run(ctx context.Context, req Request) (Summary, error) {
	log := p.log.WithFields(logrus.Fields{
		"file":   req.FileName,
		"policy": req.Policy,
	})

	summary, err := p.run(ctx, req)
	if err != nil {
		outcome := "error"
		if ie, ok := err.(*Error); ok {
			outcome = string(ie.Category)
		}
		metrics.CounterIngestions.WithLabelValues(outcome).Inc()
		log.WithError(err).Warn("ingest: rejected dataset")
		return Summary{}, err
	}

	metrics.CounterIngestions.WithLabelValues("ok").Inc()
	metrics.CounterRowsRead.Add(float64(summary.RowsRead))
	metrics.CounterZonesReconciled.WithLabelValues("created").Add(float64(summary.ZonesCreated))
	metrics.CounterZonesReconciled.WithLabelValues("updated").Add(float64(summary.ZonesUpdated))
	metrics.CounterRoutesReconciled.WithLabelValues("created").Add(float64(summary.RoutesCreated))
	metrics.CounterRoutesReconciled.WithLabelValues("updated").Add(float64(summary.RoutesUpdated))
	metrics.CounterReconcileErrors.Add(float64(len(summary.Errors)))

	log.WithFields(logrus.Fields{
		"rows_read":       summary.RowsRead,
		"zones_created":   summary.ZonesCreated,
		"zones_updated":   summary.ZonesUpdated,
		"routes_detected": summary.RoutesDetected,
		"routes_created":  summary.RoutesCreated,
		"routes_updated":  summary.RoutesUpdated,
		"errors":          len(summary.Errors),
	}).Info("ingest: dataset processed")
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (Summary, error) {
	policy, err := reconcile.ParsePolicy(req.Policy)
	if err != nil {
		return Summary{}, &Error{Category: CategoryInvalidPolicy, Message: err.Error(), Err: err}
	}
	if req.RowLimit < 0 {
		return Summary{}, newError(CategoryInvalidRequest, "limit_rows must not be negative")
	}
	if req.TopNRoutes < 0 {
		return Summary{}, newError(CategoryInvalidRequest, "top_n_routes must not be negative")
	}
	if !strings.HasSuffix(strings.ToLower(req.FileName), ".parquet") || !hasParquetMagic(req.Data) {
		return Summary{}, newError(CategoryWrongFormat, "File must be a .parquet file")
	}

	t, err := readTrips(ctx, req.Data, req.RowLimit)
	if err != nil {
		return Summary{}, err
	}
	pickup, dropoff := cleanTrips(t.pickup, t.dropoff)
	if len(pickup) == 0 {
		return Summary{}, newError(CategoryNoValidRows, "No valid rows found after cleaning data")
	}

	summary := Summary{
		FileName: req.FileName,
		RowsRead: t.rowsRead,
		Errors:   []string{},
	}

	var zones reconcile.Tally
	for _, id := range distinctZones(pickup, dropoff) {
		zones.Add(p.reconciler.Zone(id))
	}
	summary.ZonesCreated = zones.Created
	summary.ZonesUpdated = zones.Updated

	counts := CountRoutes(pickup, dropoff)
	summary.RoutesDetected = len(counts)
	if len(counts) > req.TopNRoutes {
		counts = counts[:req.TopNRoutes]
	}

	var routes reconcile.Tally
	for _, rc := range counts {
		o, err := p.reconciler.Route(rc.Pickup, rc.Dropoff, policy)
		if err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		routes.Add(o)
	}
	summary.RoutesCreated = routes.Created
	summary.RoutesUpdated = routes.Updated
	return summary, nil
}

var parquetMagic = []byte("PAR1")

// hasParquetMagic reports whether data opens and closes with the parquet
// magic bytes. It says nothing about whether the footer or pages decode.
func hasParquetMagic(data []byte) bool {
	return len(data) >= 2*len(parquetMagic) &&
		bytes.HasPrefix(data, parquetMagic) &&
		bytes.HasSuffix(data, parquetMagic)
}

// cleanTrips drops rows where either zone id is not positive.
func cleanTrips(pickup, dropoff []int) ([]int, []int) {
	var p, d []int
	for i := range pickup {
		if pickup[i] <= 0 || dropoff[i] <= 0 {
			continue
		}
		p = append(p, pickup[i])
		d = append(d, dropoff[i])
	}
	return p, d
}

// distinctZones returns every zone id seen as a pickup or dropoff, ascending.
func distinctZones(pickup, dropoff []int) []int {
	seen := make(map[int]struct{})
	for i := range pickup {
		seen[pickup[i]] = struct{}{}
		seen[dropoff[i]] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CountRoutes counts trips per pickup/dropoff pair, skipping self-loops, and
// orders the pairs by trip count descending. Pairs with equal counts keep
// the order in which they first appear.
func CountRoutes(pickup, dropoff []int) []RouteCount {
	index := make(map[[2]int]int)
	var counts []RouteCount
	for i := range pickup {
		if pickup[i] == dropoff[i] {
			continue
		}
		k := [2]int{pickup[i], dropoff[i]}
		if j, ok := index[k]; ok {
			counts[j].Trips++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, RouteCount{Pickup: pickup[i], Dropoff: dropoff[i], Trips: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Trips > counts[j].Trips })
	return counts
}
