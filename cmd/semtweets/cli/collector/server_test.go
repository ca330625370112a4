package collector

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/semtweets/cli/cmd/semtweets/cli/config"
	"github.com/semtweets/cli/cmd/semtweets/cli/db"
	"go.uber.org/zap"
)

var tweets = []string{
	`{"text": "the cat sat on the warm mat purring"}`,
	`{"text": "my cat loves the warm sunny mat"}`,
	`{"text": "a cat and a kitten nap on the mat"}`,
	`{"text": "stock market prices fell sharply today"}`,
	`{"text": "investors sold stock as market prices dropped"}`,
	`{"text": "market analysts expect stock prices to recover"}`,
}

func newTestServer(t *testing.T) (*Server, *sql.DB) {
	t.Helper()

	d, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.InitSchema(d); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Collector.Addr = "127.0.0.1:0"
	return NewServer(d, cfg, zap.NewNop()), d
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleIngest_NDJSONAndDuplicates(t *testing.T) {
	srv, d := newTestServer(t)
	h := srv.Router()

	body := strings.Join(tweets[:3], "\n") + "\n" + tweets[0] + "\n"
	w := do(t, h, http.MethodPost, "/api/v1/tweets", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out ingestResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Received != 4 || out.Inserted != 3 || out.Duplicates != 1 || len(out.IDs) != 3 {
		t.Errorf("unexpected response: %+v", out)
	}

	n, err := db.CountTweets(d)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("stored %d tweets, want 3", n)
	}
}

func TestHandleIngest_ArrayAndObject(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	w := do(t, h, http.MethodPost, "/api/v1/tweets", "["+strings.Join(tweets[3:], ",")+"]")
	if w.Code != http.StatusOK {
		t.Fatalf("array status: got %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/v1/tweets", `{"text": "single tweet", "user": {"screen_name": "bob"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("object status: got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/v1/tweets/count", "")
	var out struct {
		Tweets int `json:"tweets"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Tweets != 4 {
		t.Errorf("count: got %d, want 4", out.Tweets)
	}
}

func TestHandleIngest_BadBody(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"text": `, http.StatusBadRequest},
		{"empty", "", http.StatusBadRequest},
		{"no text", `{"id": 1}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := do(t, h, http.MethodPost, "/api/v1/tweets", tt.body)
		if w.Code != tt.want {
			t.Errorf("%s: status %d, want %d", tt.name, w.Code, tt.want)
		}
	}
}

func TestHandleIngest_TooLarge(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.config.Collector.MaxBodyBytes = 16
	h := srv.Router()

	w := do(t, h, http.MethodPost, "/api/v1/tweets", `{"text": "this body is longer than sixteen bytes"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status: got %d, want 413", w.Code)
	}
}

func TestHandleCluster(t *testing.T) {
	srv, d := newTestServer(t)
	h := srv.Router()

	w := do(t, h, http.MethodPost, "/api/v1/tweets", strings.Join(tweets, "\n"))
	if w.Code != http.StatusOK {
		t.Fatalf("ingest status: %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/v1/clusters",
		`{"latent_dims": 2, "clusters": 2, "max_iterations": 10, "seed": 1, "store": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("cluster status: got %d, body %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Run-ID") == "" {
		t.Error("stored run should set X-Run-ID")
	}

	var out struct {
		Seed     int64 `json:"seed"`
		Clusters []struct {
			Size   int `json:"size"`
			Tweets []struct {
				ID string `json:"id"`
			} `json:"tweets"`
		} `json:"clusters"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Seed != 1 {
		t.Errorf("seed = %d, want 1", out.Seed)
	}
	if len(out.Clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(out.Clusters))
	}
	total := 0
	for _, c := range out.Clusters {
		total += c.Size
		for _, tw := range c.Tweets {
			if tw.ID == "" {
				t.Error("clustered tweet should carry its store id")
			}
		}
	}
	if total != len(tweets) {
		t.Errorf("clusters hold %d tweets, want %d", total, len(tweets))
	}
	if out.Clusters[0].Size < out.Clusters[1].Size {
		t.Error("clusters should be sorted by size")
	}

	runs, err := db.QueryRuns(d, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Source != Source {
		t.Errorf("runs = %+v", runs)
	}
}

func TestHandleCluster_InvalidParameters(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	// Empty store.
	w := do(t, h, http.MethodPost, "/api/v1/clusters", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty store: status %d, want 422", w.Code)
	}

	do(t, h, http.MethodPost, "/api/v1/tweets", strings.Join(tweets, "\n"))
	w = do(t, h, http.MethodPost, "/api/v1/clusters", `{"latent_dims": 2, "clusters": 99}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("too many clusters: status %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "99") {
		t.Errorf("error should name the cluster count: %s", w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/api/v1/clusters", `{"latent_dims": 1000, "clusters": 2}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("rank too large: status %d, want 422", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/v1/clusters", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body: status %d, want 400", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	w := do(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "semtweets_tweets_rejected_total") {
		t.Error("metrics should expose semtweets collectors")
	}
}

func TestStartStop(t *testing.T) {
	srv, _ := newTestServer(t)

	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- srv.Start(ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("Start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Post("http://"+addr+"/api/v1/tweets", "application/json", bytes.NewBufferString(tweets[0]))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Start returned: %v", err)
	}
}
