package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"SwingScanner/internal/cache"
	"SwingScanner/internal/chart"
	"SwingScanner/internal/collector"
	"SwingScanner/internal/config"
	"SwingScanner/internal/metrics"
	"SwingScanner/internal/notifier"
	"SwingScanner/internal/scanner"
	"SwingScanner/internal/scheduler"
	"SwingScanner/internal/server"
)

func main() {
	once := flag.Bool("once", false, "run a single scan, deliver the report and exit")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] SwingScanner starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	reg := prometheus.DefaultRegisterer
	m := metrics.New(reg)

	// Init provider chain: source -> breaker -> cache
	var provider collector.Provider
	switch cfg.Provider.Name {
	case "rest":
		provider = collector.NewRESTProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Proxy)
	case "csv":
		provider = &collector.CSVProvider{Dir: cfg.Provider.CSVDir}
	case "mock":
		provider = &collector.MockProvider{Price: 100, Bars: 260}
	default:
		provider = collector.NewYahooProvider(cfg.Proxy)
	}
	log.Printf("[INFO] data source: %s", provider.Name())

	if cfg.Provider.Breaker.Enabled {
		s := collector.DefaultBreakerSettings()
		s.ConsecutiveFailures = cfg.Provider.Breaker.ConsecutiveFailures
		s.OpenTimeout = cfg.Provider.Breaker.OpenTimeout
		provider = collector.NewBreakerProvider(provider, s, m.BreakerStateChange)
	}

	var store cache.Store = cache.NewNoopStore()
	if cfg.Cache.SQLitePath != "" {
		ss, err := cache.NewSQLiteStore(cfg.Cache.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite cache failed, using noop: %v", err)
		} else {
			store = ss
			if n, err := ss.Prune(context.Background()); err != nil {
				log.Printf("[WARN] prune cache: %v", err)
			} else if n > 0 {
				log.Printf("[INFO] pruned %d expired cache entries", n)
			}
		}
	}
	defer store.Close()
	provider = collector.NewCachedProvider(provider, store, cfg.Cache.TTL)

	// Init scanner
	sc, err := scanner.New(provider, scanner.Options{
		Symbols:        cfg.Scan.Instruments,
		Lookback:       cfg.Scan.Lookback,
		Interval:       cfg.Scan.Interval,
		Params:         cfg.Params(),
		Policy:         cfg.Policy(),
		StopLossWindow: cfg.Scan.StopLossWindow,
		Concurrency:    cfg.Scan.Concurrency,
		FetchTimeout:   cfg.Scan.FetchTimeout,
	}, m)
	if err != nil {
		log.Fatalf("[FATAL] init scanner: %v", err)
	}
	log.Printf("[INFO] universe: %v", sc.Symbols())

	// Init sinks
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	sink := &notifier.MultiSink{Sinks: []notifier.Sink{tn}, Metrics: m}
	if cfg.Notify.WebhookURL != "" {
		sink.Sinks = append(sink.Sinks, notifier.NewWebhookNotifier(cfg.Notify.WebhookURL))
	}
	if len(cfg.Notify.Kafka.Brokers) > 0 {
		kn, err := notifier.NewKafkaNotifier(cfg.Notify.Kafka.Brokers, cfg.Notify.Kafka.Topic)
		if err != nil {
			log.Printf("[WARN] init kafka notifier failed, skipping: %v", err)
		} else {
			sink.Sinks = append(sink.Sinks, kn)
			defer kn.Close()
		}
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, sc, sink, chart.NewRenderer(cfg.Chart.Dir))
	sched.Report = notifier.ReportOptions{
		Header:   cfg.Report.Header,
		NoSetups: cfg.Report.NoSetups,
		Currency: cfg.Report.Currency,
	}
	sched.SendEmpty = cfg.Report.SendEmpty

	if *once {
		res := sched.RunNow()
		log.Printf("[INFO] scan %s finished: %d signals, %d failed", res.ScanID, len(res.Signals), res.Failed)
		return
	}

	if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if cfg.Telegram.Polling && tn.Enabled() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Println("[INFO] RUN_ON_START enabled, executing scan now")
		go sched.RunNow()
	}

	var srv *http.Server
	if cfg.Server.Addr != "" {
		srv = &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           server.NewRouter(server.NewHandler(sched, prometheus.DefaultGatherer, cfg.Chart.Dir)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("[INFO] HTTP server listening on %s", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[ERROR] HTTP server: %v", err)
			}
		}()
	}

	log.Println("[INFO] SwingScanner is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] HTTP server shutdown: %v", err)
		}
		done()
	}
	cancel()
	log.Println("[INFO] SwingScanner stopped")
}
