package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nikolayk812/cartstore/internal/cart"
	"github.com/nikolayk812/cartstore/internal/config"
	"github.com/nikolayk812/cartstore/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t       *testing.T
	config  string
	storage string
	metrics string
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	dir := t.TempDir()
	c := &cli{
		t:       t,
		config:  filepath.Join(dir, "absent.yaml"),
		storage: filepath.Join(dir, "storage.db"),
		metrics: filepath.Join(dir, "metrics", "cartctl.prom"),
	}

	t.Setenv("CARTSTORE_SQLITE_PATH", c.storage)
	t.Setenv("CARTSTORE_METRICS_FILE", c.metrics)
	t.Setenv("CARTSTORE_LOG_LEVEL", "error")

	return c
}

func (c *cli) run(args ...string) (string, string, error) {
	c.t.Helper()

	var out, errOut bytes.Buffer
	err := run(c.t.Context(), append([]string{"--config", c.config, "--backend", "sqlite"}, args...), &out, &errOut)
	return out.String(), errOut.String(), err
}

func (c *cli) mustRun(args ...string) (string, string) {
	c.t.Helper()

	out, errOut, err := c.run(args...)
	require.NoError(c.t, err, "cartctl %s", strings.Join(args, " "))
	return out, errOut
}

func TestCartLifecycle(t *testing.T) {
	c := newCLI(t)

	_, notes := c.mustRun("add", "12", "--name", "Black abaya", "--price", "10", "--qty", "2")
	assert.Contains(t, notes, "Product added to cart")

	c.mustRun("add", "13", "--name", "Scarf", "--price", "5", "--qty", "3")
	out, _ := c.mustRun("add", "12", "--name", "Black abaya", "--price", "10")
	assert.Contains(t, out, "cart: 2")

	out, _ = c.mustRun("total")
	assert.Equal(t, "45.00 SAR\n", out)

	out, _ = c.mustRun("update", "1", "--delta=-5")
	assert.Contains(t, out, "Black abaya")

	out, _ = c.mustRun("total")
	assert.Equal(t, "25.00 SAR\n", out)

	c.mustRun("update", "2", "--set", "1")
	out, _ = c.mustRun("total")
	assert.Equal(t, "15.00 SAR\n", out)

	_, notes = c.mustRun("remove", "7")
	assert.Contains(t, notes, "Cart item not found")

	_, notes = c.mustRun("remove", "1")
	assert.Contains(t, notes, "Product removed from cart")

	out, _ = c.mustRun("count")
	assert.Equal(t, "cart: 1\n", out)

	out, _ = c.mustRun("list")
	assert.Contains(t, out, "Scarf")
	assert.NotContains(t, out, "Black abaya")

	c.mustRun("clear")
	out, _ = c.mustRun("list")
	assert.Contains(t, out, "Your cart is empty.")
}

func TestUpdateByLine(t *testing.T) {
	c := newCLI(t)

	c.mustRun("add", "12", "--name", "Abaya", "--price", "10")
	out, _ := c.mustRun("list", "--lines")

	var lineID string
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Split(line, "\t"); len(fields) == 3 && fields[2] == "12" {
			lineID = fields[1]
		}
	}
	require.NotEmpty(t, lineID)

	c.mustRun("update", "--line", lineID, "--set", "4")
	out, _ = c.mustRun("total")
	assert.Equal(t, "40.00 SAR\n", out)

	c.mustRun("remove", "--line", lineID)
	out, _ = c.mustRun("count")
	assert.Equal(t, "cart: 0\n", out)
}

func TestUpdateByLine_StoredWithoutLineIDs(t *testing.T) {
	c := newCLI(t)

	storage, err := sqlite.Open(c.storage, "default")
	require.NoError(t, err)
	require.NoError(t, storage.Set(t.Context(), cart.ItemsKey,
		[]byte(`[{"id":12,"name":"Black abaya","price":10,"image":"abaya.jpg","quantity":2}]`)))
	require.NoError(t, storage.Close())

	out, _ := c.mustRun("list", "--lines")

	var lineID string
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Split(line, "\t"); len(fields) == 3 && fields[2] == "12" {
			lineID = fields[1]
		}
	}
	require.NotEmpty(t, lineID)

	_, notes := c.mustRun("update", "--line", lineID, "--set", "7")
	assert.NotContains(t, notes, "Cart item not found")

	out, _ = c.mustRun("total")
	assert.Equal(t, "70.00 SAR\n", out)
}

func TestMetricsTextfile(t *testing.T) {
	c := newCLI(t)

	c.mustRun("add", "12", "--price", "10")

	data, err := os.ReadFile(c.metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `cartstore_cart_operations_total{op="add",result="ok"} 1`)

	// a failing command still closes the app and rewrites the file
	require.NoError(t, os.Remove(c.metrics))
	_, _, err = c.run("update", "x")
	require.Error(t, err)

	_, err = os.Stat(c.metrics)
	require.NoError(t, err)
}

func TestConfigInit(t *testing.T) {
	c := newCLI(t)

	out, _ := c.mustRun("config", "init", "--profile", "work")
	assert.Equal(t, c.config+"\n", out)

	cfg, err := config.Load(c.config)
	require.NoError(t, err)
	assert.Equal(t, "work", cfg.Profile)
	assert.Equal(t, config.BackendSQLite, cfg.Storage.Backend)

	_, _, err = c.run("config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	c.mustRun("config", "init", "--force")

	_, err = os.Stat(c.storage)
	assert.True(t, os.IsNotExist(err), "config init opens no storage")
}

func TestWishlist(t *testing.T) {
	c := newCLI(t)

	_, notes := c.mustRun("wishlist", "add", "12")
	assert.Contains(t, notes, "Product added to wishlist")

	_, notes = c.mustRun("wishlist", "add", "12")
	assert.Contains(t, notes, "Product already in wishlist")

	out, _ := c.mustRun("wishlist", "list")
	assert.Equal(t, "12\n", out)
}

func TestShare(t *testing.T) {
	c := newCLI(t)

	out, _ := c.mustRun("share", "12", "--platform", "twitter")
	assert.Equal(t, "https://twitter.com/intent/tweet?url=http%3A%2F%2Flocalhost%3A5000%2Fproduct%2F12\n", out)
}

func TestSuggest(t *testing.T) {
	c := newCLI(t)

	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("q"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":12,"name":"Abaya","price":"10","image":"a.jpg"}]`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("CARTSTORE_SEARCH_URL", srv.URL)

	out, _ := c.mustRun("suggest", "black", "abaya")
	assert.Equal(t, "12\tAbaya\t10.00 SAR\n", out)

	out, _ = c.mustRun("suggest")
	assert.Equal(t, "12\tAbaya\t10.00 SAR\n", out)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"black abaya", "black abaya"}, queries)
}

func TestErrors(t *testing.T) {
	c := newCLI(t)

	tests := []struct {
		name      string
		args      []string
		wantError string
	}{
		{name: "bad price", args: []string{"add", "1", "--price", "abc"}, wantError: "price[abc] is not valid"},
		{name: "negative price", args: []string{"add", "1", "--price=-1"}, wantError: "price is negative"},
		{name: "no position", args: []string{"remove"}, wantError: "either <position> or --line is required"},
		{name: "bad position", args: []string{"update", "x"}, wantError: "position[x] is not a number"},
		{name: "bad line", args: []string{"remove", "--line", "nope"}, wantError: "line[nope] is not valid"},
		{name: "short query", args: []string{"suggest", "ab"}, wantError: "query must be at least 3 characters"},
		{name: "no previous search", args: []string{"suggest"}, wantError: "no previous search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.run(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}
