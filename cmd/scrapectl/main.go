// cmd/scrapectl/main.go
//
// One-shot debug CLI: run the scrape pipeline once against a single
// product URL and print the resulting JSON (or error) to stdout.
//
// Flags:
//
//	--headless   override the configured headless mode
//	--proxy      proxy URL override
//	--timeout    overall command timeout (default 60s)
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/scrapehub/scrapehub/internal/config"
	"github.com/scrapehub/scrapehub/internal/engine"
	"github.com/scrapehub/scrapehub/internal/scrape"
)

func main() {
	headless := flag.Bool("headless", true, "run the browser headless (overrides the configured mode when set)")
	proxy := flag.String("proxy", "", "proxy URL override")
	timeout := flag.Duration("timeout", 60*time.Second, "overall command timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scrapectl [flags] <product-url>")
		os.Exit(2)
	}
	productURL := flag.Arg(0)

	cfg, findings, err := config.Load(viper.GetViper())
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	for _, finding := range findings {
		fmt.Fprintln(os.Stderr, "config finding:", finding)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	eng := engine.New(cfg, logger)
	defer eng.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var headlessOverride *bool
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			headlessOverride = headless
		}
	})
	record, err := eng.Scrape(ctx, scrape.Request{
		URL:              productURL,
		HeadlessOverride: headlessOverride,
		ProxyOverride:    *proxy,
	})
	if err != nil {
		encoded, _ := json.MarshalIndent(map[string]string{"error": err.Error()}, "", "  ")
		fmt.Println(string(encoded))
		os.Exit(1)
	}

	encoded, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode error:", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))
}
