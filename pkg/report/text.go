package report

import (
	"fmt"
	"strings"

	"github.com/MilesGuan/NewsDistill/pkg/distill"
	"github.com/MilesGuan/NewsDistill/pkg/source"
)

// Text renders the result as a compact text message: digest on top, then one
// block per category, one line per merged story with linked source labels.
// Links use markdown syntax, which Feishu text messages understand.
func Text(result *distill.Result, title string) string {
	var lines []string

	if title != "" {
		lines = append(lines, title, "")
	}
	if result.Digest != "" {
		lines = append(lines, result.Digest, "")
	}

	for _, cat := range result.Categories {
		if cat.Category == "" || len(cat.Items) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s**", cat.Category))
		for _, merged := range cat.Items {
			if merged.Title == "" {
				continue
			}
			line := merged.Title
			if tags := sourceTags(merged.Items); tags != "" {
				line += " " + tags
			}
			lines = append(lines, "  - "+line)
		}
		lines = append(lines, "")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// CrawlSummary renders a short fetch overview: success/failure counts and
// the names of failed sources.
func CrawlSummary(snap *source.Snapshot) string {
	total := len(snap.Items) + len(snap.Failed)
	var lines []string
	lines = append(lines, fmt.Sprintf("本次抓取平台：%d/%d 成功，%d 失败",
		len(snap.Items), total, len(snap.Failed)))
	if len(snap.Failed) > 0 {
		names := make([]string, 0, len(snap.Failed))
		for _, f := range snap.Failed {
			names = append(names, f.Name)
		}
		lines = append(lines, "失败平台："+strings.Join(names, ", "))
	}
	return strings.Join(lines, "\n")
}

func sourceTags(items []source.Item) string {
	var b strings.Builder
	for _, it := range items {
		name := it.SourceName
		if name == "" {
			name = it.SourceKey
		}
		if name == "" {
			continue
		}
		label := "【" + name + "】"
		url := it.MobileURL
		if url == "" {
			url = it.URL
		}
		if url != "" {
			fmt.Fprintf(&b, "[%s](%s)", label, url)
		} else {
			b.WriteString(label)
		}
	}
	return b.String()
}
