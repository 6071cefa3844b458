package osrmbulk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/osrm-bulk/config"
	"github.com/theoremus-urban-solutions/osrm-bulk/fetch"
	"github.com/theoremus-urban-solutions/osrm-bulk/osrm"
	"github.com/theoremus-urban-solutions/osrm-bulk/points"
)

// fakeOSRM answers match requests with one matching whose distance is the
// number of coordinates. A first longitude of 13 yields a non-JSON body and
// 66 stalls until the client gives up.
type fakeOSRM struct {
	*httptest.Server
	mu   sync.Mutex
	seen []*url.URL
}

func newFakeOSRM(t *testing.T) *fakeOSRM {
	t.Helper()
	f := &fakeOSRM{}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOSRM) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		return
	}
	f.mu.Lock()
	f.seen = append(f.seen, r.URL)
	f.mu.Unlock()

	parts := strings.Split(r.URL.Path, "/")
	if len(parts) != 5 {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"InvalidUrl"}`))
		return
	}
	coords := strings.Split(parts[4], ";")
	switch {
	case strings.HasPrefix(coords[0], "13,"):
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
		return
	case strings.HasPrefix(coords[0], "66,"):
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		return
	}
	_, _ = fmt.Fprintf(w, `{"code":"Ok","matchings":[{"confidence":0.5,"distance":%d},{"confidence":0.8,"distance":%d,"geometry":"_p~iF~ps|U"}]}`,
		-1, len(coords))
}

func (f *fakeOSRM) requests() []*url.URL {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*url.URL(nil), f.seen...)
}

// rawParam reads a query parameter without url.ParseQuery, which drops
// pairs containing ";".
func rawParam(u *url.URL, name string) string {
	for _, kv := range strings.Split(u.RawQuery, "&") {
		if k, v, ok := strings.Cut(kv, "="); ok && k == name {
			return v
		}
	}
	return ""
}

func (f *fakeOSRM) client(t *testing.T, opts ...ClientOption) *Client {
	t.Helper()
	u, err := url.Parse(f.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	c, err := NewClient(u.Hostname(), port, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func tripTable(t *testing.T, trips ...string) *points.Table {
	t.Helper()
	tbl := points.NewTable("trip_id", "latitude", "longitude", "collect_time")
	for i, trip := range trips {
		lon := float64(i + 20)
		if trip == "C" {
			lon = 13
		}
		if trip == "S" {
			lon = 66
		}
		require.NoError(t, tbl.Append(trip, 42.0+float64(i)/100, lon, int64(1700000000-i)))
	}
	return tbl
}

var renames = map[string]string{"latitude": "lat", "longitude": "lon", "collect_time": "timestamp"}

func TestMatchTable_TwoTrips(t *testing.T) {
	srv := newFakeOSRM(t)
	c := srv.client(t)

	tbl := tripTable(t, "A", "B", "A", "B", "A", "B", "A", "B", "A", "B")
	res, err := c.MatchTable(context.Background(), tbl, MatchRequest{GroupColumn: "trip_id", Renames: renames})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, res.Keys())
	assert.True(t, res.Grouped())
	assert.Empty(t, res.Failed())

	seen := srv.requests()
	require.Len(t, seen, 2)
	for _, u := range seen {
		assert.True(t, strings.HasPrefix(u.Path, "/match/v1/driving/"))
		ts := strings.Split(rawParam(u, "timestamps"), ";")
		require.Len(t, ts, 5)
		for i := 1; i < len(ts); i++ {
			assert.Less(t, ts[i-1], ts[i], "timestamps ascend within a group")
		}
		assert.Equal(t, "polyline", rawParam(u, "geometries"))
	}

	resp, err := res.Response("A")
	require.NoError(t, err)
	assert.Equal(t, "Ok", resp["code"])

	fr := res.Flatten([]string{"distance", "confidence"})
	assert.Equal(t, []any{5.0, 5.0}, fr.Column("distance"))
	assert.Equal(t, []any{0.8, 0.8}, fr.Column("confidence"))

	_, err = res.Single()
	assert.ErrorIs(t, err, ErrGrouped)
	v, _ := tbl.Value(0, "collect_time")
	assert.Equal(t, int64(1700000000), v, "input table untouched")
	assert.Equal(t, []string{"trip_id", "latitude", "longitude", "collect_time"}, tbl.Columns())
}

func TestMatchTable_SingleKeyStaysGrouped(t *testing.T) {
	srv := newFakeOSRM(t)
	c := srv.client(t)

	res, err := c.MatchTable(context.Background(), tripTable(t, "A", "A", "A"), MatchRequest{GroupColumn: "trip_id", Renames: renames})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.Keys())
	assert.True(t, res.Grouped())
}

func TestMatchTable_Ungrouped(t *testing.T) {
	srv := newFakeOSRM(t)
	c := srv.client(t)

	res, err := c.MatchTable(context.Background(), tripTable(t, "A", "B", "A"), MatchRequest{Renames: renames})
	require.NoError(t, err)
	assert.False(t, res.Grouped())
	resp, err := res.Single()
	require.NoError(t, err)
	assert.Equal(t, "Ok", resp["code"])
	require.Len(t, srv.requests(), 1)
}

func TestMatchTable_PartialFailure(t *testing.T) {
	srv := newFakeOSRM(t)
	cfg := fetch.DefaultConfig()
	cfg.BatchTimeout = 100 * time.Millisecond
	c := srv.client(t, WithFetchConfig(cfg))

	res, err := c.MatchTable(context.Background(), tripTable(t, "A", "C", "S", "A"), MatchRequest{GroupColumn: "trip_id", Renames: renames})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "C", "S"}, res.Keys())
	assert.Equal(t, []string{"C", "S"}, res.Failed())

	a, ok := res.Get("A")
	require.True(t, ok)
	assert.NoError(t, a.Err)
	assert.Equal(t, http.StatusOK, a.Status)

	cEntry, _ := res.Get("C")
	assert.True(t, errors.Is(cEntry.Err, fetch.ErrTransport))
	sEntry, _ := res.Get("S")
	assert.True(t, errors.Is(sEntry.Err, fetch.ErrTimeout))

	fr := res.Flatten([]string{"distance"})
	assert.Equal(t, []any{2.0, nil, nil}, fr.Column("distance"))
}

func TestMatchTable_InputErrorsSendNothing(t *testing.T) {
	srv := newFakeOSRM(t)
	c := srv.client(t)

	_, err := c.MatchTable(context.Background(), tripTable(t, "A"), MatchRequest{GroupColumn: "trip_id"})
	assert.ErrorIs(t, err, points.ErrSchema, "lat/lon missing without renames")

	_, err = c.MatchTable(context.Background(), tripTable(t, "A"), MatchRequest{GroupColumn: "vehicle", Renames: renames})
	assert.ErrorIs(t, err, points.ErrSchema)

	assert.Empty(t, srv.requests())
}

func TestAssemble(t *testing.T) {
	groups := []points.Group{{Key: "A"}, {Key: "B"}}
	outcomes := []fetch.Outcome{
		{Index: 0, Payload: map[string]any{"code": "Ok"}, Status: 200},
		{Index: 1, Err: &fetch.RequestError{Kind: fetch.KindTimeout, URL: "u", Err: context.DeadlineExceeded}},
	}
	res, err := Assemble(groups, outcomes)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Len())
	assert.Equal(t, []string{"B"}, res.Failed())

	_, err = Assemble(groups, outcomes[:1])
	var ae *AssemblyError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 2, ae.Groups)
	assert.Equal(t, 1, ae.Outcomes)

	_, err = Assemble([]points.Group{{Key: "A"}, {Key: "A"}}, outcomes)
	assert.True(t, errors.As(err, &ae))
}

func TestAssemble_UngroupedSingle(t *testing.T) {
	groups := []points.Group{{Key: points.Ungrouped}}
	res, err := Assemble(groups, []fetch.Outcome{{Index: 0, Payload: map[string]any{"code": "Ok"}, Status: 200}})
	require.NoError(t, err)
	assert.False(t, res.Grouped())
	resp, err := res.Single()
	require.NoError(t, err)
	assert.Equal(t, "Ok", resp["code"])

	res, err = Assemble(groups, []fetch.Outcome{{Index: 0, Err: &fetch.RequestError{Kind: fetch.KindTimeout, URL: "u", Err: context.DeadlineExceeded}}})
	require.NoError(t, err)
	_, err = res.Single()
	assert.ErrorIs(t, err, fetch.ErrTimeout)

	res, err = Assemble([]points.Group{{Key: "A"}}, []fetch.Outcome{{Payload: map[string]any{}}})
	require.NoError(t, err)
	_, err = res.Single()
	assert.ErrorIs(t, err, ErrGrouped)
}

func TestClient_SingleCalls(t *testing.T) {
	var got []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.URL.String())
		mu.Unlock()
		_, _ = w.Write([]byte(`{"code":"Ok"}`))
	}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	c, err := NewClient(u.Hostname(), port)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	coords := []osrm.Coordinate{{Lon: 1, Lat: 2}, {Lon: 3, Lat: 4}}
	_, err = c.Route(context.Background(), coords, osrm.RouteOptions{Steps: true})
	require.NoError(t, err)
	_, err = c.Table(context.Background(), coords, osrm.TableOptions{Sources: []int{0}})
	require.NoError(t, err)
	_, err = c.Match(context.Background(), []points.Point{{Lat: 2, Lon: 1}, {Lat: 4, Lon: 3}}, osrm.MatchOptions{})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "/route/v1/driving/1,2;3,4?steps=true&geometries=polyline&annotations=duration", got[0])
	assert.Equal(t, "/table/v1/driving/1,2;3,4?sources=0&annotations=duration", got[1])
	assert.True(t, strings.HasPrefix(got[2], "/match/v1/driving/1,2;3,4?"))

	_, err = c.Table(context.Background(), coords, osrm.TableOptions{Mode: "boat"})
	assert.ErrorIs(t, err, osrm.ErrInvalidOption)
	assert.True(t, c.Ping(context.Background()))
}

func TestServer(t *testing.T) {
	osrmSrv := newFakeOSRM(t)
	reg := prometheus.NewRegistry()
	c := osrmSrv.client(t, WithFetchOptions(fetch.WithRegisterer(reg, "osrm_bulk")))

	cfg, err := config.Parse([]byte("match:\n  groupColumn: trip_id\n"))
	require.NoError(t, err)
	api := httptest.NewServer(NewServer(c, cfg, reg).Handler())
	defer api.Close()

	body := "trip_id,lat,lon,timestamp\nA,42.1,23.1,100\nB,42.2,23.2,100\nA,42.3,23.3,110\n"

	resp, err := http.Post(api.URL+"/api/match", "text/csv", strings.NewReader(body))
	require.NoError(t, err)
	var grouped map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&grouped))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, grouped, 2)
	assert.Equal(t, "Ok", grouped["A"]["code"])

	resp, err = http.Post(api.URL+"/api/match?fields=distance&format=csv", "text/csv", strings.NewReader(body))
	require.NoError(t, err)
	out, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "group,distance\nA,2\nB,1\n", string(out))

	resp, err = http.Post(api.URL+"/api/match?mode=boat", "text/csv", strings.NewReader(body))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(api.URL+"/api/match?group=route", "text/csv", strings.NewReader(body))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(api.URL + "/api/match")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(api.URL + "/api/health")
	require.NoError(t, err)
	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.OSRMReachable)
	assert.Equal(t, int64(4), health.RequestsTotal)

	resp, err = http.Get(api.URL + "/metrics")
	require.NoError(t, err)
	metrics, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(metrics), `osrm_bulk_requests_total{outcome="ok"} 4`)
}
