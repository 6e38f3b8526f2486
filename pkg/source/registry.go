package source

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind distinguishes how a source is fetched.
type Kind string

const (
	KindAPI Kind = "api" // keyed NewsNow-style JSON endpoint
	KindRSS Kind = "rss" // RSS/Atom feed
)

// Entry describes one registered source.
type Entry struct {
	Key     string
	Name    string
	Kind    Kind
	FeedURL string // RSS sources only
}

// builtinSources are the API platforms supported out of the box.
var builtinSources = map[string]string{
	// general news
	"toutiao":       "今日头条",
	"baidu":         "百度热搜",
	"thepaper":      "澎湃新闻",
	"ifeng":         "凤凰网",
	"cankaoxiaoxi":  "参考消息",
	"sputniknewscn": "卫星通讯社",
	"zaobao":        "联合早报",
	"kaopu":         "靠谱新闻",
	"tencent-hot":   "腾讯新闻",

	// finance
	"wallstreetcn-hot":  "华尔街见闻 最热",
	"wallstreetcn-news": "华尔街见闻 最新",
	"cls-hot":           "财联社热门",
	"cls-telegraph":     "财联社 电报",
	"gelonghui":         "格隆汇",
	"jin10":             "金十数据",

	// social / entertainment
	"weibo":               "微博",
	"douyin":              "抖音",
	"bilibili-hot-search": "bilibili 热搜",
	"tieba":               "贴吧",
	"zhihu":               "知乎",
	"hupu":                "虎扑",

	// tech
	"ithome":      "IT之家",
	"juejin":      "掘金",
	"hackernews":  "Hacker News",
	"solidot":     "Solidot",
	"v2ex":        "V2EX",
	"sspai":       "少数派",
	"producthunt": "ProductHunt",
}

// ErrUnknownSource is returned when a requested key is not registered.
var ErrUnknownSource = errors.New("unknown source key")

// Feed is one configured RSS source.
type Feed struct {
	Key  string
	Name string
	URL  string
}

// Registry maps source keys to entries. Built once at startup.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry builds a registry from the builtin API sources plus any
// configured RSS feeds. An RSS feed may not shadow a builtin key.
func NewRegistry(feeds []Feed) (*Registry, error) {
	entries := make(map[string]Entry, len(builtinSources)+len(feeds))
	for key, name := range builtinSources {
		entries[key] = Entry{Key: key, Name: name, Kind: KindAPI}
	}
	for _, f := range feeds {
		if f.Key == "" || f.URL == "" {
			return nil, fmt.Errorf("rss feed needs key and url, got %+v", f)
		}
		if _, exists := entries[f.Key]; exists {
			return nil, fmt.Errorf("rss feed key %q collides with an existing source", f.Key)
		}
		name := f.Name
		if name == "" {
			name = f.Key
		}
		entries[f.Key] = Entry{Key: f.Key, Name: name, Kind: KindRSS, FeedURL: f.URL}
	}
	return &Registry{entries: entries}, nil
}

// Lookup returns the entry for a key.
func (r *Registry) Lookup(key string) (Entry, bool) {
	e, ok := r.entries[key]
	return e, ok
}

// Name returns the display name for a key, falling back to the key itself.
func (r *Registry) Name(key string) string {
	if e, ok := r.entries[key]; ok {
		return e.Name
	}
	return key
}

// Keys returns all registered keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that every requested key is registered. Unknown keys are a
// configuration error and abort the run before any fetch is dispatched.
func (r *Registry) Validate(keys []string) error {
	var unknown []string
	for _, k := range keys {
		if _, ok := r.entries[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s (valid keys: %s)",
			ErrUnknownSource, strings.Join(unknown, ", "), strings.Join(r.Keys(), ", "))
	}
	return nil
}
