package integration

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourname/devfiles/internal/app/devhttp"
	"github.com/yourname/devfiles/internal/config"
)

func startDisk(t *testing.T, mutate func(*config.Config)) (string, string, *devhttp.Server) {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Root = root
	if mutate != nil {
		mutate(&cfg)
	}

	handler, srv, err := devhttp.NewServer(context.Background(), &cfg, devhttp.Deps{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return root, ts.URL, srv
}

func get(t *testing.T, url string, header ...string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, b
}

func Test_Serve_RangesAndConditionals(t *testing.T) {
	root, url, _ := startDisk(t, nil)

	payload := bytes.Repeat([]byte("0123456789abcdef"), 8*1024) // 128 KiB, больше окна чтения
	if err := os.WriteFile(filepath.Join(root, "bundle.js"), payload, 0o644); err != nil {
		t.Fatal(err)
	}

	resp, body := get(t, url+"/bundle.js")
	if resp.StatusCode != http.StatusOK || !bytes.Equal(body, payload) {
		t.Fatalf("full get: status %d, %d bytes", resp.StatusCode, len(body))
	}
	etag := resp.Header.Get("ETag")

	resp, body = get(t, url+"/bundle.js", "Range", "bytes=65530-65545")
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("range status %d", resp.StatusCode)
	}
	if !bytes.Equal(body, payload[65530:65546]) {
		t.Fatalf("range body %q", body)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 65530-65545/131072" {
		t.Fatalf("content-range %q", got)
	}

	resp, body = get(t, url+"/bundle.js", "Range", "bytes=0-3,-4", "If-Range", etag)
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("multipart status %d", resp.StatusCode)
	}
	if cl, _ := strconv.Atoi(resp.Header.Get("Content-Length")); cl != len(body) {
		t.Fatalf("content-length %d, body %d", cl, len(body))
	}
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		t.Fatal(err)
	}
	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	var parts []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		b, _ := io.ReadAll(p)
		parts = append(parts, string(b))
	}
	if len(parts) != 2 || parts[0] != "0123" || parts[1] != "cdef" {
		t.Fatalf("parts %q", parts)
	}

	resp, body = get(t, url+"/bundle.js", "If-None-Match", etag)
	if resp.StatusCode != http.StatusNotModified || len(body) != 0 {
		t.Fatalf("conditional get: status %d, %d bytes", resp.StatusCode, len(body))
	}

	resp, _ = get(t, url+"/bundle.js", "Range", "bytes=1000000-2000000")
	if resp.StatusCode != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("unsatisfiable status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes */131072" {
		t.Fatalf("unsatisfiable content-range %q", got)
	}
}

func Test_Serve_HeadAndTraversal(t *testing.T) {
	root, url, _ := startDisk(t, nil)
	if err := os.WriteFile(filepath.Join(root, "a.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(filepath.Dir(root), "secret.txt")
	if err := os.WriteFile(secret, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(secret) })

	resp, err := http.Head(url + "/a.css")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.ContentLength != 6 {
		t.Fatalf("head: status %d, length %d", resp.StatusCode, resp.ContentLength)
	}

	for _, p := range []string{"/../secret.txt", `/..\secret.txt`, "/%2e%2e/secret.txt"} {
		resp, _ := get(t, url+p)
		if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: status %d", p, resp.StatusCode)
		}
	}
}

func Test_Serve_WatchGatesRequests(t *testing.T) {
	root, url, srv := startDisk(t, func(c *config.Config) {
		c.Watch = true
		c.WatchSettle = 100 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- srv.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-stopped; err != nil {
			t.Errorf("watch: %v", err)
		}
	})

	deadline := time.Now().Add(3 * time.Second)
	for srv.State.Valid() {
		if time.Now().After(deadline) {
			t.Fatal("watcher did not notice the write")
		}
		if err := os.WriteFile(filepath.Join(root, "out.js"), []byte("v2"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// запрос во время сборки дожидается её конца
	resp, body := get(t, url+"/out.js")
	if resp.StatusCode != http.StatusOK || string(body) != "v2" {
		t.Fatalf("gated get: status %d, body %q", resp.StatusCode, body)
	}
	if !srv.State.Valid() {
		t.Fatal("state must be valid after response")
	}
}

func Test_Serve_CachedSourceSeesRebuild(t *testing.T) {
	root, url, _ := startDisk(t, func(c *config.Config) {
		c.Source = "cached"
		c.CacheTTL = time.Hour
	})
	name := filepath.Join(root, "main.js")
	built := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

	if err := os.WriteFile(name, []byte("build-1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(name, built, built); err != nil {
		t.Fatal(err)
	}

	resp, body := get(t, url+"/main.js")
	if string(body) != "build-1" {
		t.Fatalf("first get: %q", body)
	}
	oldTag := resp.Header.Get("ETag")

	if err := os.WriteFile(name, []byte("build-2!!"), 0o644); err != nil {
		t.Fatal(err)
	}
	rebuilt := built.Add(time.Second)
	if err := os.Chtimes(name, rebuilt, rebuilt); err != nil {
		t.Fatal(err)
	}

	resp, body = get(t, url+"/main.js", "If-None-Match", oldTag)
	if resp.StatusCode != http.StatusOK || string(body) != "build-2!!" {
		t.Fatalf("after rebuild: status %d, body %q", resp.StatusCode, body)
	}
	if resp.Header.Get("ETag") == oldTag {
		t.Fatalf("etag not refreshed: %s", oldTag)
	}

	if err := os.Remove(name); err != nil {
		t.Fatal(err)
	}
	resp, _ = get(t, url+"/main.js")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted file: status %d", resp.StatusCode)
	}
}
