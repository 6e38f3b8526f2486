package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>示例博客</title>
    <item><title>第一篇</title><link>https://blog.example.com/1</link></item>
    <item><title></title><link>https://blog.example.com/2</link></item>
    <item><title>第三篇</title><link>https://blog.example.com/3</link></item>
  </channel>
</rss>`

func rssRegistry(t *testing.T, feedURL string) *Registry {
	t.Helper()
	r, err := NewRegistry([]Feed{{Key: "myblog", Name: "示例博客", URL: feedURL}})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

func TestRSSClientFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewRSSClient(rssRegistry(t, srv.URL), time.Second, 0)
	parsed, err := c.Fetch(context.Background(), "myblog")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if parsed.Name != "示例博客" || parsed.Status != "success" {
		t.Fatalf("parsed header = %+v", parsed)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("got %d items, want 2 (untitled entry skipped)", len(parsed.Items))
	}
	if parsed.Items[0].URL != "https://blog.example.com/1" {
		t.Errorf("link = %q", parsed.Items[0].URL)
	}
	if parsed.Items[1].Rank != 3 {
		t.Errorf("rank = %d, want feed position kept", parsed.Items[1].Rank)
	}
}

func TestRSSClientMaxItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewRSSClient(rssRegistry(t, srv.URL), time.Second, 1)
	parsed, err := c.Fetch(context.Background(), "myblog")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(parsed.Items) != 1 {
		t.Fatalf("got %d items, want max_items cap applied", len(parsed.Items))
	}
}

func TestRSSClientRejectsNonFeedKey(t *testing.T) {
	t.Parallel()

	c := NewRSSClient(rssRegistry(t, "https://unused"), time.Second, 0)
	if _, err := c.Fetch(context.Background(), "zhihu"); err == nil {
		t.Fatal("api source key must be rejected by the rss client")
	}
}
