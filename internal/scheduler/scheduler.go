package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"SwingScanner/internal/chart"
	"SwingScanner/internal/model"
	"SwingScanner/internal/notifier"
	"SwingScanner/internal/scanner"
)

// Scheduler runs scans on a cron schedule and on demand, then delivers the report.
type Scheduler struct {
	Cron      *cron.Cron
	Scanner   *scanner.Scanner
	Sink      notifier.Sink
	Charts    *chart.Renderer
	Report    notifier.ReportOptions
	SendEmpty bool
	Ctx       context.Context

	runMu  sync.Mutex // one scan at a time
	lastMu sync.RWMutex
	last   *model.BatchResult
}

// NewScheduler creates a new Scheduler. charts may be nil.
func NewScheduler(ctx context.Context, sc *scanner.Scanner, sink notifier.Sink, charts *chart.Renderer) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Scanner: sc,
		Sink:    sink,
		Charts:  charts,
		Ctx:     ctx,
	}
}

// Register adds the scan job.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, func() { s.RunNow() }); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes a scan immediately (cron, RUN_ON_START, /scan, HTTP).
func (s *Scheduler) RunNow() *model.BatchResult {
	res, _, _ := s.run(s.Ctx)
	return res
}

// Last returns the most recent completed scan, or nil.
func (s *Scheduler) Last() *model.BatchResult {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

// run scans, renders charts for qualifying instruments and delivers the report.
// It reports whether the report was handed to the sink.
func (s *Scheduler) run(ctx context.Context) (*model.BatchResult, string, bool) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	log.Println("[INFO] running scan task")
	if s.Charts.Enabled() {
		if n, err := s.Charts.Cleanup(); err != nil {
			log.Printf("[WARN] chart cleanup: %v", err)
		} else if n > 0 {
			log.Printf("[INFO] removed %d stale charts", n)
		}
	}

	res := s.Scanner.Scan(ctx)

	if s.Charts.Enabled() {
		for _, o := range res.Outcomes {
			if o.Status != model.StatusQualified {
				continue
			}
			path, err := s.Charts.Render(o.Frame, o.Signal)
			if err != nil {
				log.Printf("[WARN] chart %s: %v", o.Symbol, err)
				continue
			}
			log.Printf("[INFO] chart written: %s", path)
		}
	}

	s.lastMu.Lock()
	s.last = res
	s.lastMu.Unlock()

	report := notifier.FormatScanReport(res, s.Report)
	if len(res.Signals) == 0 && !s.SendEmpty {
		log.Println("[INFO] no qualifying instruments, report not sent")
		return res, report, false
	}
	s.trySend(ctx, report)
	return res, report, true
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch normalizeCommand(command) {
	case "/scan":
		_, report, sent := s.run(ctx)
		if sent {
			return ""
		}
		return report
	case "/status":
		return notifier.FormatStatus(s.Last())
	default:
		return notifier.FormatHelp()
	}
}

// normalizeCommand strips arguments and a "@BotName" suffix.
func normalizeCommand(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd)
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Sink == nil {
		return
	}
	if err := s.Sink.Send(ctx, text); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
