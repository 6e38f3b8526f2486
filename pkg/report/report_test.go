package report

import (
	"strings"
	"testing"
	"time"

	"github.com/MilesGuan/NewsDistill/pkg/distill"
	"github.com/MilesGuan/NewsDistill/pkg/source"
)

func sampleResult() *distill.Result {
	return &distill.Result{
		Digest: "今日要点摘要",
		Categories: []distill.MergedCategory{
			{
				Category: "科技",
				Items: []distill.MergedItem{
					{
						Title: "新模型发布",
						Items: []source.Item{
							{SourceName: "知乎", URL: "https://z/1", MobileURL: "https://m.z/1"},
							{SourceName: "微博", URL: "https://w/1"},
						},
					},
				},
			},
		},
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	out := Text(sampleResult(), "新闻精读 2026-08-25 10:30")

	for _, want := range []string{
		"新闻精读 2026-08-25 10:30",
		"今日要点摘要",
		"**科技**",
		"  - 新模型发布",
		"[【知乎】](https://m.z/1)", // mobile url preferred
		"[【微博】](https://w/1)",   // falls back to plain url
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHTMLEscapesAndLinks(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	res.Categories[0].Items[0].Title = `新模型发布 <script>`

	out := HTML(res, "测试页")

	if !strings.Contains(out, "新模型发布 &lt;script&gt;") {
		t.Error("title not escaped")
	}
	if strings.Contains(out, "<script>") {
		t.Error("raw markup leaked into the page")
	}
	for _, want := range []string{
		`<title>测试页</title>`,
		`class="digest"`,
		`href="https://m.z/1"`,
		`【知乎】`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestCrawlSummary(t *testing.T) {
	t.Parallel()

	snap := source.NewSnapshot(time.Now())
	snap.Items["zhihu"] = []source.Item{{Title: "a"}}
	snap.Items["weibo"] = []source.Item{{Title: "b"}}
	snap.Failed = append(snap.Failed, source.Failure{Key: "douyin", Name: "抖音"})

	out := CrawlSummary(snap)
	if !strings.Contains(out, "2/3 成功") {
		t.Errorf("summary counts wrong:\n%s", out)
	}
	if !strings.Contains(out, "抖音") {
		t.Errorf("failed platform name missing:\n%s", out)
	}
}
