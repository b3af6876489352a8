// Package cleanup provides ascii reporter
package cleanup

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/types"
)

const (
	cyan        = "\033[38;2;86;182;194m"  // One Dark Cyan: #56B6C2
	cyanBright  = "\033[38;2;97;228;240m"  // Brighter Cyan: #61E4F0
	dimCyan     = "\033[38;2;47;91;102m"   // Dim Cyan: #2F5B66
	grey        = "\033[38;2;110;118;129m" // Brighter Grey: #6E7681
	dimGrey     = "\033[38;2;75;82;99m"    // Darker Grey: #4B5263
	success     = "\033[38;2;62;130;144m"  // Dim Cyan: #3E8290
	warning     = "\033[38;2;229;192;123m" // One Dark Yellow: #E5C07B
	errorRed    = "\033[38;2;224;108;117m" // One Dark Red: #E06C75
	white       = "\033[38;2;171;178;191m" // One Dark Foreground: #ABB2BF
	whiteBright = "\033[38;2;220;225;230m" // Brighter White
	purple      = "\033[38;2;198;120;221m" // One Dark Purple: #C678DD
	dimPurple   = "\033[38;2;142;87;158m"  // Dim Purple: #8E579E
	reset       = "\033[0m"
	bold        = "\033[1m"
)

type Reporter struct {
	out io.Writer
}

func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

func (r *Reporter) LogHeader(title string) {
	fmt.Fprintf(r.out, "%s%s✓ %s %s\n", bold, cyan, strings.ToUpper(title), reset)
}

func (r *Reporter) LogSubHeader(text string) {
	fmt.Fprintf(r.out, "%s%s░▒▓ %s %s\n", bold, dimCyan, text, reset)
}

func (r *Reporter) LogStepSuccess(message string, args ...any) {
	fmt.Fprintf(r.out, "%s⚡ %s%s...%s\n", dimGrey, grey, fmt.Sprintf(message, args...), reset)
}

func (r *Reporter) LogStage(message string, args ...any) {
	fmt.Fprintf(r.out, "%s%s✦ %s%s%s\n", success, bold, grey, fmt.Sprintf(message, args...), reset)
}

func (r *Reporter) LogSuccess(message string, args ...any) {
	fmt.Fprintf(r.out, "%s%s✦ %s%s%s\n", success, bold, white, fmt.Sprintf(message, args...), reset)
}

func (r *Reporter) LogError(message string, err error) {
	fmt.Fprintf(r.out, "%s%s✖ ERROR: %s%s: %v%s\n", bold, errorRed, grey, message, err, reset)
}

func (r *Reporter) LogWarning(message string, args ...any) {
	fmt.Fprintf(r.out, "%s%s⚠ WARNING: %s%s%s\n", bold, warning, grey, fmt.Sprintf(message, args...), reset)
}

func (r *Reporter) LogInfo(message string, args ...any) {
	fmt.Fprintf(r.out, "%s▶ %s%s%s\n", dimGrey, grey, fmt.Sprintf(message, args...), reset)
}

// WriteCacheReport prints a three-line summary of content cache state.
func (r *Reporter) WriteCacheReport(stats types.CacheStats) {
	var report strings.Builder
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 MST")

	report.WriteString(fmt.Sprintf("%s%s▓ %s | %scontent cache%s\n", bold, dimCyan, timestamp, whiteBright, reset))

	formatItem := func(label string, count int64, colour string) string {
		if count > 0 {
			return fmt.Sprintf(" %s%s:%s%d", dimCyan, label, colour, count)
		}
		return fmt.Sprintf(" %s%s:%s--", dimGrey, label, dimGrey)
	}

	var entries strings.Builder
	entries.WriteString(fmt.Sprintf("%s✦ entries:%s", cyanBright, reset))
	entries.WriteString(formatItem("cached", int64(stats.Entries), cyan))
	entries.WriteString(formatItem("stale", int64(stats.StaleEntries), warning))
	entries.WriteString(formatItem("pending-writes", int64(stats.PendingWrites), cyan))
	entries.WriteString(formatItem("pending-refresh", int64(stats.PendingRefresh), cyan))
	report.WriteString(entries.String() + "\n")

	var activity strings.Builder
	activity.WriteString(fmt.Sprintf("%s✦ activity:%s", purple, reset))
	activity.WriteString(formatItem("hits", stats.Hits, white))
	activity.WriteString(formatItem("misses", stats.Misses, white))
	activity.WriteString(formatItem("expired", stats.Expirations, white))
	activity.WriteString(formatItem("refreshes", stats.Refreshes, white))
	activity.WriteString(formatItem("refresh-failures", stats.RefreshFailures, errorRed))
	activity.WriteString(fmt.Sprintf(" %shit-ratio:%s%.0f%%%s", dimPurple, white, stats.HitRatio()*100, reset))
	report.WriteString(activity.String() + "\n")

	io.WriteString(r.out, report.String())
}
