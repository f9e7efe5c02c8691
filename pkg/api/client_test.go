package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/re-tools/re-healthcheck/pkg/api"
	"github.com/re-tools/re-healthcheck/pkg/metrics"

	. "github.com/onsi/gomega"
)

type fakeCluster struct {
	server *httptest.Server
	hits   sync.Map
	total  atomic.Int64
	delay  time.Duration
}

//nolint:gochecknoglobals
var topics = map[string]any{
	"/v1/cluster": map[string]any{"name": "cluster.local", "alert_settings": map[string]any{"node_memory": map[string]any{"enabled": true}}},
	"/v1/nodes": []any{
		map[string]any{"uid": 1, "addr": "10.0.0.1", "cores": 8, "total_memory": 32 * 1024 * 1024 * 1024, "software_version": "6.2.10-96"},
		map[string]any{"uid": 2, "addr": "10.0.0.2", "cores": 8, "total_memory": 32 * 1024 * 1024 * 1024, "software_version": "6.2.10-96"},
		map[string]any{"uid": 3, "addr": "10.0.0.3", "cores": 16, "total_memory": 64 * 1024 * 1024 * 1024, "software_version": "6.2.10-96"},
	},
	"/v1/bdbs/stats/1": map[string]any{
		"uid":       "1",
		"intervals": []any{map[string]any{"total_req": 1000.0}, map[string]any{"total_req": 3000.0}},
	},
}

func newFakeCluster(t *testing.T) *fakeCluster {
	t.Helper()

	fc := &fakeCluster{}
	fc.server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fc.total.Add(1)
		n, _ := fc.hits.LoadOrStore(r.URL.Path, new(atomic.Int64))
		n.(*atomic.Int64).Add(1)

		if fc.delay > 0 {
			time.Sleep(fc.delay)
		}

		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin@cluster.local" || pass != "secret" {
			http.Error(w, `{"error_code":"unauthorized"}`, http.StatusUnauthorized)

			return
		}

		body, ok := topics[r.URL.Path]
		if !ok {
			http.Error(w, `{"error_code":"not_found"}`, http.StatusNotFound)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(fc.server.Close)

	return fc
}

func (fc *fakeCluster) hitsFor(path string) int64 {
	n, ok := fc.hits.Load(path)
	if !ok {
		return 0
	}

	return n.(*atomic.Int64).Load()
}

func (fc *fakeCluster) client(t *testing.T, user string, opts ...api.Option) *api.Client {
	t.Helper()

	u, err := url.Parse(fc.server.URL)
	if err != nil {
		t.Fatal(err)
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}

	c, err := api.NewClient(api.Config{
		FQDN:     u.Hostname(),
		Port:     port,
		User:     user,
		Password: "secret",
		Insecure: true,
	}, opts...)
	if err != nil {
		t.Fatal(err)
	}

	return c
}

func TestNewClient_RequiresFQDN(t *testing.T) {
	g := NewWithT(t)

	_, err := api.NewClient(api.Config{})
	g.Expect(err).To(HaveOccurred())
}

func TestClient_GetIsCachedPerTopic(t *testing.T) {
	g := NewWithT(t)

	fc := newFakeCluster(t)
	c := fc.client(t, "admin@cluster.local")
	ctx := t.Context()

	first, err := c.Get(ctx, "nodes")
	g.Expect(err).ToNot(HaveOccurred())

	second, err := c.Get(ctx, "/nodes/")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(second).To(Equal(first))
	g.Expect(fc.hitsFor("/v1/nodes")).To(Equal(int64(1)))

	_, err = c.Get(ctx, "cluster")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(fc.hitsFor("/v1/cluster")).To(Equal(int64(1)))
	g.Expect(c.RequestCount()).To(Equal(int64(2)))
}

func TestClient_ConcurrentFirstAccessIssuesOneRequest(t *testing.T) {
	g := NewWithT(t)

	fc := newFakeCluster(t)
	fc.delay = 50 * time.Millisecond
	c := fc.client(t, "admin@cluster.local")
	ctx := t.Context()

	var wg sync.WaitGroup
	errs := make(chan error, 8)

	for range 8 {
		wg.Go(func() {
			_, err := c.Get(ctx, "nodes")
			errs <- err
		})
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		g.Expect(err).ToNot(HaveOccurred())
	}

	g.Expect(fc.hitsFor("/v1/nodes")).To(Equal(int64(1)))
}

func TestClient_CallerDeadlineDoesNotFailSharedRequest(t *testing.T) {
	g := NewWithT(t)

	fc := newFakeCluster(t)
	fc.delay = 300 * time.Millisecond
	c := fc.client(t, "admin@cluster.local")

	short, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	shortErr := make(chan error, 1)
	go func() {
		_, err := c.Get(short, "nodes")
		shortErr <- err
	}()

	// join the request started above while it is in flight
	time.Sleep(20 * time.Millisecond)

	nodes, err := c.Get(t.Context(), "nodes")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(nodes).To(HaveLen(3))

	g.Expect(<-shortErr).To(MatchError(context.DeadlineExceeded))
	g.Expect(fc.hitsFor("/v1/nodes")).To(Equal(int64(1)))
}

func TestClient_CanceledCallerStopsWaiting(t *testing.T) {
	g := NewWithT(t)

	fc := newFakeCluster(t)
	fc.delay = 300 * time.Millisecond
	c := fc.client(t, "admin@cluster.local")

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Get(ctx, "cluster")
	g.Expect(err).To(MatchError(context.DeadlineExceeded))
	g.Expect(time.Since(start)).To(BeNumerically("<", 250*time.Millisecond))

	// the detached request still fills the cache
	g.Eventually(func() int64 { return c.RequestCount() }).Should(Equal(int64(1)))

	_, err = c.Get(t.Context(), "cluster")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(fc.hitsFor("/v1/cluster")).To(Equal(int64(1)))
}

func TestClient_StatusErrorIsNotCached(t *testing.T) {
	g := NewWithT(t)

	fc := newFakeCluster(t)
	m := metrics.New()
	c := fc.client(t, "admin@cluster.local", api.WithMetrics(m))
	ctx := t.Context()

	_, err := c.Get(ctx, "bogus")
	g.Expect(err).To(HaveOccurred())

	var se *api.StatusError
	g.Expect(err).To(BeAssignableToTypeOf(se))
	g.Expect(api.IsNotFound(err)).To(BeTrue())
	g.Expect(err.Error()).To(ContainSubstring("return code 404"))
	g.Expect(err.Error()).To(ContainSubstring("not_found"))

	_, err = c.Get(ctx, "bogus")
	g.Expect(err).To(HaveOccurred())
	g.Expect(fc.hitsFor("/v1/bogus")).To(Equal(int64(2)))
}

func TestClient_Unauthorized(t *testing.T) {
	g := NewWithT(t)

	fc := newFakeCluster(t)
	c := fc.client(t, "intruder")

	_, err := c.CheckConnection(t.Context())
	g.Expect(err).To(HaveOccurred())
	g.Expect(api.IsUnauthorized(err)).To(BeTrue())
}

func TestClient_CheckConnection(t *testing.T) {
	g := NewWithT(t)

	fc := newFakeCluster(t)
	c := fc.client(t, "admin@cluster.local")

	name, err := c.CheckConnection(t.Context())
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(name).To(Equal("cluster.local"))
}

func TestClient_ValueHelpers(t *testing.T) {
	g := NewWithT(t)

	fc := newFakeCluster(t)
	c := fc.client(t, "admin@cluster.local")
	ctx := t.Context()

	n, err := c.GetNumberOfValues(ctx, "nodes")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(n).To(Equal(3))

	cores, err := c.GetSumOfValues(ctx, "nodes", "cores")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(cores).To(Equal(32.0))

	versions, err := c.GetValues(ctx, "nodes", "software_version")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(versions).To(HaveLen(3))
	g.Expect(versions[0]).To(Equal("6.2.10-96"))

	alerts, err := c.GetValue(ctx, "cluster", "alert_settings")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(alerts).To(HaveKey("node_memory"))

	_, err = c.GetValue(ctx, "cluster", "missing")
	g.Expect(err).To(MatchError(api.ErrNotFound))

	_, err = c.GetValues(ctx, "cluster", "name")
	g.Expect(err).To(MatchError(api.ErrUnexpectedShape))

	big, err := c.GetWithValue(ctx, "nodes", "cores", 16)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(big).To(HaveLen(1))
	g.Expect(big[0]["addr"]).To(Equal("10.0.0.3"))

	uid, err := c.UID(ctx, "10.0.0.2")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(uid).To(Equal("2"))

	_, err = c.UID(ctx, "10.9.9.9")
	g.Expect(api.IsNotFound(err)).To(BeTrue())

	// all of the above is served by two requests
	g.Expect(c.RequestCount()).To(Equal(int64(2)))
}

func TestQueryAndDecode(t *testing.T) {
	g := NewWithT(t)

	fc := newFakeCluster(t)
	c := fc.client(t, "admin@cluster.local")
	ctx := t.Context()

	maxCores, err := api.Query[int](ctx, c, "nodes", "map(.cores) | max")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(maxCores).To(Equal(16))

	type interval struct {
		TotalReq float64 `json:"total_req"`
	}

	type stats struct {
		UID       int        `json:"uid"`
		Intervals []interval `json:"intervals"`
	}

	s, err := api.Decode[stats](ctx, c, "bdbs/stats/1")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(s.UID).To(Equal(1))
	g.Expect(s.Intervals).To(HaveLen(2))
	g.Expect(s.Intervals[1].TotalReq).To(Equal(3000.0))
}
