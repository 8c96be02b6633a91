package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"SwingScanner/internal/model"
)

// ReportOptions controls the report text. Zero fields take the defaults below.
type ReportOptions struct {
	Header   string
	NoSetups string
	Currency string
}

const (
	DefaultReportHeader = "🚀 Market Scan Results:"
	DefaultNoSetups     = "No confluence setups found."
	DefaultCurrency     = "₹"
)

func (o ReportOptions) withDefaults() ReportOptions {
	if o.Header == "" {
		o.Header = DefaultReportHeader
	}
	if o.NoSetups == "" {
		o.NoSetups = DefaultNoSetups
	}
	if o.Currency == "" {
		o.Currency = DefaultCurrency
	}
	return o
}

// FormatScanReport renders the qualifying signals of a batch, in batch order.
//
//	🚀 Market Scan Results:
//
//	✅ RELIANCE.NS: Score 3/3 @ ₹2456.10 | SL ₹2390.00
//
// With no qualifying signals the no-setups message is returned verbatim, unless some
// instruments failed, in which case a failure count line follows either form.
func FormatScanReport(res *model.BatchResult, opts ReportOptions) string {
	o := opts.withDefaults()
	var b strings.Builder

	if res == nil || len(res.Signals) == 0 {
		b.WriteString(o.NoSetups)
	} else {
		b.WriteString(o.Header)
		b.WriteString("\n")
		for _, s := range res.Signals {
			b.WriteString("\n")
			b.WriteString(FormatSignalLine(s, o.Currency))
		}
	}

	if res != nil && res.Failed > 0 {
		fmt.Fprintf(&b, "\n\nScan could not evaluate %d of %d instruments.", res.Failed, res.Processed)
	}
	return b.String()
}

// FormatSignalLine renders one qualifying instrument.
func FormatSignalLine(s model.Signal, currency string) string {
	return fmt.Sprintf("✅ %s: Score %d/%d @ %s%s | SL %s%s",
		s.Symbol, s.Score, s.MaxScore, currency, price(s.Close), currency, price(s.StopLoss))
}

func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatStatus summarizes the most recent scan for /status and the HTTP API.
func FormatStatus(res *model.BatchResult) string {
	if res == nil {
		return "📦 No scan has run yet."
	}
	var b strings.Builder
	b.WriteString("📦 Last scan\n\n")
	fmt.Fprintf(&b, "ID: %s\n", res.ScanID)
	fmt.Fprintf(&b, "Started: %s\n", res.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Duration: %s\n", res.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Processed: %d | Failed: %d | Signals: %d", res.Processed, res.Failed, len(res.Signals))
	for _, o := range res.Failures() {
		fmt.Fprintf(&b, "\n• %s: %s", o.Symbol, o.Kind)
	}
	return b.String()
}

// FormatHelp lists the supported chat commands.
func FormatHelp() string {
	return "Commands:\n/scan - run a scan now\n/status - last scan summary"
}
