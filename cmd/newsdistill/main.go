package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "newsdistill",
		Short: "Fetch trending feeds, dedupe against history and distill the rest into a categorized briefing",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(crawlCmd())
	root.AddCommand(distillCmd())
	root.AddCommand(sourcesCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func crawlCmd() *cobra.Command {
	var sources []string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch configured sources and ingest into today's store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(sources)
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "specific source keys to fetch (e.g., zhihu,weibo)")
	return cmd
}

func distillCmd() *cobra.Command {
	var htmlOut string

	cmd := &cobra.Command{
		Use:   "distill",
		Short: "Run the full pipeline once: crawl, dedupe, distill, notify",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDistill(htmlOut)
		},
	}

	cmd.Flags().StringVar(&htmlOut, "html", "", "also write the rendered HTML report to this file")
	return cmd
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List registered source keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources()
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
