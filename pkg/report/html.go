// Package report renders merged distillation results for downstream
// consumers: a mobile-friendly HTML page and a plain-text summary suitable
// for chat notifications.
package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/MilesGuan/NewsDistill/pkg/distill"
)

const pageStyle = `body{margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,"Helvetica Neue",Arial,"Noto Sans","PingFang SC","Hiragino Sans GB","Microsoft YaHei",sans-serif;background:#f5f7fb;color:#222;font-size:15px;line-height:1.6;}` +
	`.page{max-width:720px;margin:0 auto;padding:10px 12px 28px;}` +
	`.digest{margin:12px 0 4px;padding:8px 12px;background:#fff;border-radius:10px;font-weight:600;}` +
	`.category{margin:14px 0 4px;}` +
	`.category-title{font-size:15px;font-weight:600;margin:8px 0 6px;padding:5px 10px;border-radius:999px;display:inline-block;background:#fff3e0;border:1px solid #fed7aa;color:#c05621;}` +
	`.news-list{list-style:none;margin:4px 0 0;padding:0;}` +
	`.news-item{background:#ffffff;border-radius:10px;padding:8px 10px;margin:6px 0;box-shadow:0 1px 3px rgba(15,23,42,0.05);}` +
	`.news-title{font-size:15px;font-weight:500;margin:0;word-break:break-all;}` +
	`.sources{display:inline;}` +
	`.source-tag{font-size:12px;padding:2px 7px;border-radius:999px;background:#e5f1ff;color:#1d4ed8;text-decoration:none;margin-left:4px;}` +
	`a{color:inherit;}`

// HTML renders the result as a standalone mobile-friendly page.
func HTML(result *distill.Result, title string) string {
	if title == "" {
		title = "新闻精读"
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html lang="zh-CN"><head><meta charset="utf-8">`)
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1, maximum-scale=1, minimum-scale=1, viewport-fit=cover">`)
	fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(title))
	fmt.Fprintf(&b, "<style>%s</style>", pageStyle)
	b.WriteString(`</head><body><div class="page">`)

	if result.Digest != "" {
		fmt.Fprintf(&b, `<div class="digest">%s</div>`, html.EscapeString(result.Digest))
	}

	for _, cat := range result.Categories {
		b.WriteString(`<div class="category">`)
		fmt.Fprintf(&b, `<div class="category-title">%s</div>`, html.EscapeString(cat.Category))
		b.WriteString(`<ul class="news-list">`)
		for _, merged := range cat.Items {
			b.WriteString(`<li class="news-item"><p class="news-title">`)
			b.WriteString(`<span class="news-text">` + html.EscapeString(merged.Title) + `</span>`)
			b.WriteString(`<span class="sources">`)
			for _, it := range merged.Items {
				label := "【" + it.SourceName + "】"
				url := it.MobileURL
				if url == "" {
					url = it.URL
				}
				if url != "" {
					fmt.Fprintf(&b, `<a class="source-tag" href="%s">%s</a>`,
						html.EscapeString(url), html.EscapeString(label))
				} else {
					fmt.Fprintf(&b, `<span class="source-tag">%s</span>`, html.EscapeString(label))
				}
			}
			b.WriteString(`</span></p></li>`)
		}
		b.WriteString(`</ul></div>`)
	}

	b.WriteString(`</div></body></html>`)
	return b.String()
}
