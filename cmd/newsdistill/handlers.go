package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/MilesGuan/NewsDistill/internal/config"
	"github.com/MilesGuan/NewsDistill/internal/logging"
	"github.com/MilesGuan/NewsDistill/internal/pipeline"
	"github.com/MilesGuan/NewsDistill/internal/scheduler"
	"github.com/MilesGuan/NewsDistill/pkg/alert"
	"github.com/MilesGuan/NewsDistill/pkg/distill"
	"github.com/MilesGuan/NewsDistill/pkg/report"
	"github.com/MilesGuan/NewsDistill/pkg/server"
	"github.com/MilesGuan/NewsDistill/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

type app struct {
	cfg       *config.Config
	log       *slog.Logger
	registry  *source.Registry
	runner    *pipeline.Runner
	distiller *distill.Pipeline
}

func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Log.Level)

	feeds := make([]source.Feed, 0, len(cfg.RSS.Feeds))
	for _, f := range cfg.RSS.Feeds {
		feeds = append(feeds, source.Feed{Key: f.Key, Name: f.Name, URL: f.URL})
	}
	registry, err := source.NewRegistry(feeds)
	if err != nil {
		return nil, err
	}

	api := source.NewClient(registry, source.ClientOpts{
		APIURL:     cfg.Crawler.APIURL,
		Timeout:    cfg.Crawler.ParseTimeout(),
		MaxRetries: cfg.Crawler.MaxRetries,
	})
	var rss *source.RSSClient
	if len(feeds) > 0 {
		rss = source.NewRSSClient(registry, cfg.Crawler.ParseTimeout(), cfg.RSS.MaxItems)
	}
	fetcher := source.NewFetcher(registry, api, rss, log)

	distiller, err := buildDistiller(cfg, log)
	if err != nil {
		return nil, err
	}

	runner := pipeline.NewRunner(cfg, fetcher,
		source.NewFilter(cfg.Filter.Include, cfg.Filter.Exclude),
		distiller, buildAlerts(cfg), log)

	return &app{cfg: cfg, log: log, registry: registry, runner: runner, distiller: distiller}, nil
}

var errNoBackends = errors.New("no model backend has an api key; set one inline or via api_key_env (e.g. DEEPSEEK_API_KEY)")

// requireDistiller rejects runs that need model backends. Crawling tolerates
// missing credentials; distilling cannot.
func (a *app) requireDistiller() error {
	if a.distiller == nil {
		return errNoBackends
	}
	return nil
}

func buildDistiller(cfg *config.Config, log *slog.Logger) (*distill.Pipeline, error) {
	var backends []distill.Backend
	for _, b := range cfg.Distill.Backends {
		if b.APIKey == "" {
			log.Warn("backend has no api key; skipping", "backend", b.Name)
			continue
		}
		switch b.Provider {
		case "anthropic":
			backends = append(backends, distill.NewAnthropicBackend(b.Name, b.Model, b.BaseURL, b.APIKey))
		default:
			backends = append(backends, distill.NewOpenAIBackend(b.Name, b.Model, b.BaseURL, b.APIKey))
		}
	}
	if len(backends) == 0 {
		// Crawl-only mode still works without any model credentials.
		return nil, nil
	}
	return distill.NewPipeline(backends, distill.PipelineOpts{
		FilterPromptPath:   cfg.Distill.FilterPromptPath,
		CategoryPromptPath: cfg.Distill.CategoryPromptPath,
		Logger:             log,
	})
}

func buildAlerts(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier
	if cfg.Alerts.Feishu.Enabled && cfg.Alerts.Feishu.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewFeishu(cfg.Alerts.Feishu.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}
	if cfg.Alerts.Email.Enabled {
		notifiers = append(notifiers, alert.NewEmail(alert.EmailOpts{
			Host:     cfg.Alerts.Email.Host,
			Port:     cfg.Alerts.Email.Port,
			Username: cfg.Alerts.Email.Username,
			Password: cfg.Alerts.Email.Password,
			From:     cfg.Alerts.Email.From,
			FromName: cfg.Alerts.Email.FromName,
			To:       cfg.Alerts.Email.To,
		}))
	}
	return alert.NewManager(notifiers)
}

func runCrawl(sources []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	if len(sources) > 0 {
		a.cfg.Crawler.Sources = sources
	}

	ctx := signalContext()
	snap, increment, rep, err := a.runner.Crawl(ctx)
	if err != nil {
		return err
	}

	fmt.Println(report.CrawlSummary(snap))
	fmt.Printf("共 %d 条，新增 %d 条，更新 %d 条\n", rep.TotalItems, rep.NewItems, rep.UpdatedItems)
	if increment != nil {
		fmt.Printf("本次增量 %d 条\n", increment.TotalItems())
	}
	return nil
}

func runDistill(htmlOut string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	if err := a.requireDistiller(); err != nil {
		return err
	}

	ctx := signalContext()
	rep, err := a.runner.RunOnce(ctx)
	if err != nil {
		var exhausted *distill.ExhaustedError
		if errors.As(err, &exhausted) {
			fmt.Fprintf(os.Stderr, "所有模型调用失败（阶段 %s）：\n", exhausted.Stage)
			for _, msg := range exhausted.Messages {
				fmt.Fprintln(os.Stderr, "  "+msg)
			}
		}
		return err
	}

	if !rep.Distilled {
		fmt.Println("本次没有可供分类的新增新闻")
		return nil
	}

	title := fmt.Sprintf("新闻精读 %s %s", rep.Date, rep.FetchedAt)
	fmt.Println(report.Text(rep.Result, title))
	fmt.Printf("\n(backend: %s)\n", rep.Result.Backend)

	if htmlOut != "" {
		if err := os.WriteFile(htmlOut, []byte(report.HTML(rep.Result, title)), 0o644); err != nil {
			return fmt.Errorf("write html report: %w", err)
		}
		fmt.Printf("HTML 已写入 %s\n", htmlOut)
	}
	return nil
}

func runSources() error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tKIND")
	for _, key := range a.registry.Keys() {
		entry, _ := a.registry.Lookup(key)
		fmt.Fprintf(w, "%s\t%s\t%s\n", entry.Key, entry.Name, entry.Kind)
	}
	return w.Flush()
}

func runServe(port int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	if port == 0 {
		port = a.cfg.Server.Port
	}
	return server.New(a.cfg, a.runner, a.registry, port, a.log).ListenAndServe()
}

func runDaemon(port int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	if port == 0 {
		port = a.cfg.Server.Port
	}

	ctx := signalContext()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.New(a.cfg, a.runner, a.registry, port, a.log).ListenAndServe()
	}()

	sched := scheduler.New(a.runner, a.cfg.Schedule.ParseInterval(), a.log)
	go func() {
		errCh <- sched.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx
}
