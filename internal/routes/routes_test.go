package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi_zones/internal/config"
	"taxi_zones/internal/controllers"
	"taxi_zones/internal/ingest"
	"taxi_zones/internal/ingest/ingesttest"
	"taxi_zones/internal/models"
	"taxi_zones/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	t     *testing.T
	r     *gin.Engine
	store *store.Store
}

func newServer(t *testing.T) *server {
	s := store.New()
	log, _ := test.NewNullLogger()
	upload := config.Default().Upload
	ctl := controllers.New(s, ingest.New(s, log), upload)
	return &server{t: t, r: SetupRouter(ctl, Options{MaxUploadBytes: upload.MaxBytes}), store: s}
}

func (s *server) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func (s *server) upload(filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.serve(s.uploadRequest(filename, data, fields))
}

func (s *server) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func (s *server) uploadRequest(filename string, data []byte, fields map[string]string) *http.Request {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = fw.Write(data)
	require.NoError(s.t, err)
	for k, v := range fields {
		require.NoError(s.t, mw.WriteField(k, v))
	}
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads/trips-parquet", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "taxi_zones_ingest_rows_read_total")
}

func TestZoneCRUD(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/zones", gin.H{
		"id": 10, "borough": "Manhattan", "zone_name": "Central Park", "service_zone": "Yellow Zone",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var z models.Zone
	decode(t, w, &z)
	assert.Equal(t, 10, z.ID)
	assert.True(t, z.Active)
	assert.False(t, z.CreatedAt.IsZero())

	w = s.do(http.MethodPost, "/zones", gin.H{"id": 10, "borough": "X", "zone_name": "Y"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Zone ID already exists", errorOf(t, w))

	w = s.do(http.MethodGet, "/zones/10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &z)
	assert.Equal(t, "Central Park", z.ZoneName)

	w = s.do(http.MethodGet, "/zones/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Zone not found", errorOf(t, w))

	w = s.do(http.MethodPut, "/zones/10", gin.H{"zone_name": "Central Park North"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &z)
	assert.Equal(t, "Central Park North", z.ZoneName)
	assert.Equal(t, "Yellow Zone", z.ServiceZone)

	w = s.do(http.MethodDelete, "/zones/10", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/zones/10", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/zones/10", nil).Code)

	var list []models.Zone
	w = s.do(http.MethodGet, "/zones", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Empty(t, list)
}

func TestZoneValidation(t *testing.T) {
	s := newServer(t)
	for _, body := range []gin.H{
		{"id": 0, "borough": "B", "zone_name": "Z"},
		{"id": 1, "borough": "", "zone_name": "Z"},
		{"id": 1, "borough": "B"},
	} {
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/zones", body).Code, "%v", body)
	}
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/zones/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/zones?active=maybe", nil).Code)
}

func TestListZonesFilters(t *testing.T) {
	s := newServer(t)
	s.do(http.MethodPost, "/zones", gin.H{"id": 1, "borough": "Manhattan", "zone_name": "A"})
	s.do(http.MethodPost, "/zones", gin.H{"id": 2, "borough": "Brooklyn", "zone_name": "B", "active": false})

	var list []models.Zone
	decode(t, s.do(http.MethodGet, "/zones?borough=manh", nil), &list)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].ID)

	decode(t, s.do(http.MethodGet, "/zones?active=false", nil), &list)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].ID)
}

func TestRouteCRUD(t *testing.T) {
	s := newServer(t)
	s.do(http.MethodPost, "/zones", gin.H{"id": 1, "borough": "Manhattan", "zone_name": "Zone 1"})
	s.do(http.MethodPost, "/zones", gin.H{"id": 2, "borough": "Brooklyn", "zone_name": "Zone 2"})
	s.do(http.MethodPost, "/zones", gin.H{"id": 3, "borough": "Queens", "zone_name": "Zone 3"})

	w := s.do(http.MethodPost, "/routes", gin.H{"pickup_zone_id": 1, "dropoff_zone_id": 2, "name": "Manhattan to Brooklyn"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var r models.Route
	decode(t, w, &r)
	assert.Equal(t, 1, r.PickupZoneID)
	assert.Equal(t, 2, r.DropoffZoneID)
	assert.Equal(t, "Manhattan to Brooklyn", r.Name)
	assert.True(t, r.Active)
	id := strconv.Itoa(r.ID)

	w = s.do(http.MethodPost, "/routes", gin.H{"pickup_zone_id": 1, "dropoff_zone_id": 1, "name": "Same Zone Route"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "different")

	w = s.do(http.MethodPost, "/routes", gin.H{"pickup_zone_id": 999, "dropoff_zone_id": 1, "name": "Invalid Route"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "does not exist")

	w = s.do(http.MethodPost, "/routes", gin.H{"pickup_zone_id": 1, "dropoff_zone_id": 2, "name": "ab"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/routes/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/routes/99999", nil).Code)

	w = s.do(http.MethodPut, "/routes/"+id, gin.H{"name": "Updated Route Name", "active": false})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &r)
	assert.Equal(t, "Updated Route Name", r.Name)
	assert.False(t, r.Active)

	w = s.do(http.MethodPut, "/routes/"+id, gin.H{"dropoff_zone_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPut, "/routes/"+id, gin.H{"dropoff_zone_id": 77})
	assert.Equal(t, "Zone with id 77 does not exist", errorOf(t, w))
	w = s.do(http.MethodPut, "/routes/"+id, gin.H{"dropoff_zone_id": 3})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, "/routes/99999", gin.H{"name": "Nonexistent"}).Code)

	var list []models.Route
	decode(t, s.do(http.MethodGet, "/routes?pickup_zone_id=1&dropoff_zone_id=3", nil), &list)
	require.Len(t, list, 1)
	decode(t, s.do(http.MethodGet, "/routes?active=true", nil), &list)
	assert.Empty(t, list)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/routes?pickup_zone_id=x", nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/routes/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/routes/"+id, nil).Code)

	// Deleted ids are not handed out again.
	w = s.do(http.MethodPost, "/routes", gin.H{"pickup_zone_id": 1, "dropoff_zone_id": 2, "name": "Route to Delete"})
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, w, &r)
	assert.Equal(t, 2, r.ID)
}

func TestUploadCreateThenUpdate(t *testing.T) {
	s := newServer(t)
	data := ingesttest.Parquet(t,
		ingesttest.Int64("PULocationID", 1, 1, 2, 2, 3, 1, 2, 3, 3, 1),
		ingesttest.Int64("DOLocationID", 2, 2, 3, 3, 1, 2, 3, 1, 2, 3),
		ingesttest.Column{Name: "trip_distance", Values: []float64{1.5, 2.0, 3.5, 1.0, 2.5, 1.8, 3.0, 2.2, 1.5, 2.8}},
	)

	w := s.upload("test.parquet", data, map[string]string{"mode": "create", "limit_rows": "100", "top_n_routes": "10"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary ingest.Summary
	decode(t, w, &summary)
	assert.Equal(t, ingest.Summary{
		FileName:       "test.parquet",
		RowsRead:       10,
		ZonesCreated:   3,
		RoutesDetected: 5,
		RoutesCreated:  5,
		Errors:         []string{},
	}, summary)

	// A zone created by hand keeps its fields and is reactivated.
	inactive := false
	_, err := s.store.UpdateZone(1, models.ZoneUpdate{Active: &inactive})
	require.NoError(t, err)

	w = s.upload("test.parquet", data, map[string]string{"mode": "update"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &summary)
	assert.Equal(t, 3, summary.ZonesUpdated)
	assert.Equal(t, 5, summary.RoutesUpdated)
	assert.Equal(t, 0, summary.RoutesCreated)

	z, err := s.store.GetZone(1)
	require.NoError(t, err)
	assert.True(t, z.Active)

	// Records written by ingestion are visible through the CRUD endpoints.
	var routes []models.Route
	decode(t, s.do(http.MethodGet, "/routes?pickup_zone_id=1&dropoff_zone_id=2", nil), &routes)
	require.Len(t, routes, 1)
	assert.Equal(t, "Route 1 to 2", routes[0].Name)
}

func TestUploadFailures(t *testing.T) {
	valid := ingesttest.Parquet(t, ingesttest.Trips([2]int64{1, 2})...)

	for name, tc := range map[string]struct {
		filename string
		data     []byte
		fields   map[string]string
		contains string
	}{
		"invalid mode": {
			filename: "test.parquet", data: valid,
			fields:   map[string]string{"mode": "invalid_mode"},
			contains: "mode must be",
		},
		"missing mode": {
			filename: "test.parquet", data: valid,
			contains: "mode must be",
		},
		"not parquet": {
			filename: "test.txt", data: []byte("This is not a parquet file"),
			fields:   map[string]string{"mode": "create"},
			contains: "parquet",
		},
		"missing columns": {
			filename: "test.parquet",
			data: ingesttest.Parquet(t,
				ingesttest.Int64("column1", 1, 2, 3),
				ingesttest.Int64("column2", 4, 5, 6),
			),
			fields:   map[string]string{"mode": "create"},
			contains: "Missing required columns",
		},
		"bad limit": {
			filename: "test.parquet", data: valid,
			fields:   map[string]string{"mode": "create", "limit_rows": "many"},
			contains: "limit_rows",
		},
	} {
		t.Run(name, func(t *testing.T) {
			s := newServer(t)
			w := s.upload(tc.filename, tc.data, tc.fields)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, errorOf(t, w), tc.contains)
			zones, routes := s.store.Counts()
			assert.Zero(t, zones)
			assert.Zero(t, routes)
		})
	}
}

func TestUploadFiltersSelfLoops(t *testing.T) {
	s := newServer(t)
	data := ingesttest.Parquet(t,
		ingesttest.Int64("PULocationID", 1, 2, 3, 1, 1),
		ingesttest.Int64("DOLocationID", 1, 2, 3, 2, 1),
	)
	w := s.upload("test.parquet", data, map[string]string{"mode": "create"})
	require.Equal(t, http.StatusOK, w.Code)
	var summary ingest.Summary
	decode(t, w, &summary)
	assert.Equal(t, 1, summary.RoutesDetected)
}

func TestUploadTooLarge(t *testing.T) {
	s := store.New()
	log, _ := test.NewNullLogger()
	upload := config.UploadConfig{MaxBytes: 16, DefaultLimitRows: 10, DefaultTopN: 10}
	srv := &server{t: t, r: SetupRouter(controllers.New(s, ingest.New(s, log), upload), Options{MaxUploadBytes: 1 << 20}), store: s}

	w := srv.upload("test.parquet", ingesttest.Parquet(t, ingesttest.Trips([2]int64{1, 2})...), map[string]string{"mode": "create"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "maximum upload size")
}

func TestUploadBodyIsBounded(t *testing.T) {
	s := store.New()
	log, _ := test.NewNullLogger()
	upload := config.UploadConfig{MaxBytes: 1024, DefaultLimitRows: 10, DefaultTopN: 10}
	srv := &server{t: t, r: SetupRouter(controllers.New(s, ingest.New(s, log), upload), Options{MaxUploadBytes: 1024}), store: s}
	big := bytes.Repeat([]byte("x"), 1<<20)

	// Declared length over the limit is refused before the body is read.
	w := srv.upload("big.parquet", big, map[string]string{"mode": "create"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File exceeds maximum upload size of 1024 bytes", errorOf(t, w))

	// Without a declared length the reader stops at the limit.
	req := srv.uploadRequest("big.parquet", big, map[string]string{"mode": "create"})
	req.ContentLength = -1
	w = srv.serve(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File exceeds maximum upload size of 1024 bytes", errorOf(t, w))

	zones, routes := s.Counts()
	assert.Zero(t, zones)
	assert.Zero(t, routes)
}

func TestUploadChecksModeFirst(t *testing.T) {
	s := newServer(t)
	w := s.upload("trips.csv", []byte("not parquet"), map[string]string{"mode": "delete", "limit_rows": "abc", "top_n_routes": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error    string `json:"error"`
		Category string `json:"category"`
	}
	decode(t, w, &body)
	assert.Equal(t, "mode must be 'create' or 'update'", body.Error)
	assert.Equal(t, string(ingest.CategoryInvalidPolicy), body.Category)
}

func TestUploadRejectsParquetNameWithoutParquetContent(t *testing.T) {
	s := newServer(t)
	w := s.upload("trips.parquet", []byte("This is not a parquet file"), map[string]string{"mode": "create"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error    string `json:"error"`
		Category string `json:"category"`
	}
	decode(t, w, &body)
	assert.Equal(t, "File must be a .parquet file", body.Error)
	assert.Equal(t, string(ingest.CategoryWrongFormat), body.Category)
}

func TestCORSAllowedOrigins(t *testing.T) {
	s := store.New()
	log, _ := test.NewNullLogger()
	upload := config.Default().Upload
	ctl := controllers.New(s, ingest.New(s, log), upload)
	r := SetupRouter(ctl, Options{MaxUploadBytes: upload.MaxBytes, AllowedOrigins: []string{"http://localhost:8501"}})

	for origin, want := range map[string]string{
		"http://localhost:8501": "http://localhost:8501",
		"http://elsewhere":      "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/zones", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, w.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}
