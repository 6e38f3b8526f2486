package store

import (
	"net/url"
	"strings"
)

// commonTrackingParams are stripped from every source's URLs. Deliberately
// conservative: only parameters that are tracking tokens everywhere.
var commonTrackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"utm_id":       true,
	"utm_division": true,
	"fbclid":       true,
	"gclid":        true,
	"igshid":       true,
	"spm":          true,
	"share_token":  true,
	"share_source": true,
	"share_medium": true,
	"refer":        true,
	"ref":          true,
}

// normRule is the per-source normalization rule. When keep is non-empty only
// those parameters survive; dropAll removes the whole query; drop lists
// extra parameters removed on top of the common set.
type normRule struct {
	keep    []string
	drop    []string
	dropAll bool
}

// sourceRules enumerates per-source volatile-parameter handling. Sources not
// listed here get the common tracking strip only; that is a documented
// limitation, not a guess at universal behavior.
var sourceRules = map[string]normRule{
	"weibo":               {keep: []string{"q"}},                 // s.weibo.com/weibo?q=...&t=...&band_rank=...
	"baidu":               {keep: []string{"wd"}},                // baidu.com/s?wd=...&sa=fyb_news&rsv_dl=...
	"tieba":               {keep: []string{"topic_id", "kw"}},    // hottopic/browse?topic_id=...&fr=...
	"douyin":              {dropAll: true},                       // douyin.com/hot/<id>?log_pb=...
	"toutiao":             {dropAll: true},                       // toutiao.com/trending/<id>/?...
	"thepaper":            {dropAll: true},                       // thepaper.cn/newsDetail_forward_<id>
	"bilibili-hot-search": {drop: []string{"spm_id_from", "from_source", "from_spmid", "seid"}},
	"zhihu":               {drop: []string{"utm_psn"}},
	"juejin":              {drop: []string{"from"}},
	"ithome":              {drop: []string{"from"}},
}

// NormalizeURL canonicalizes a source URL into the stable dedup key. It is
// pure and idempotent: the same raw URL and source key always produce the
// same result, and normalizing an already-normalized URL is a no-op. An
// empty input normalizes to the empty string, which the store treats as
// "not deduplicable".
func NormalizeURL(raw, sourceKey string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		// Not a parseable absolute URL; the raw string itself is the key.
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	rule := sourceRules[sourceKey]
	switch {
	case rule.dropAll:
		u.RawQuery = ""
	case len(rule.keep) > 0:
		q := u.Query()
		kept := url.Values{}
		for _, k := range rule.keep {
			if vs, ok := q[k]; ok {
				kept[k] = vs
			}
		}
		u.RawQuery = kept.Encode()
	default:
		q := u.Query()
		for k := range q {
			if commonTrackingParams[k] || isDropped(rule.drop, k) {
				q.Del(k)
			}
		}
		// Encode sorts keys, keeping the key stable regardless of the
		// original parameter order.
		u.RawQuery = q.Encode()
	}

	return u.String()
}

func isDropped(drop []string, key string) bool {
	for _, d := range drop {
		if d == key {
			return true
		}
	}
	return false
}
