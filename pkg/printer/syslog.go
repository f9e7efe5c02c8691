package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
	"github.com/re-tools/re-healthcheck/pkg/healthcheck/stats"
)

const (
	syslogFacilityUser  = 1
	syslogSeverityError = 3
	syslogSeverityInfo  = 6
	syslogVersion       = 1
	syslogApp           = "healthcheck"
	syslogTimestamp     = "2006-01-02T15:04:05.000000Z07:00"
)

// SyslogRenderer writes RFC 5424 formatted lines to the output stream.
type SyslogRenderer struct {
	out  io.Writer
	now  func() time.Time
	host string
	pid  int
}

func newSyslogRenderer(opts Options) *SyslogRenderer {
	return &SyslogRenderer{
		out:  opts.out(),
		now:  opts.now,
		host: hostname(opts),
		pid:  pid(opts),
	}
}

func severity(v check.Verdict) int {
	if v.IsProblem() {
		return syslogSeverityError
	}

	return syslogSeverityInfo
}

func (r *SyslogRenderer) write(sev int, msg string) error {
	// <PRI>VERSION TIMESTAMP HOSTNAME APP-NAME PROCID MSGID STRUCTURED-DATA MSG
	_, err := fmt.Fprintf(r.out, "<%d>%d %s %s %s %d - - %s\n",
		syslogFacilityUser*8+sev,
		syslogVersion,
		r.now().Format(syslogTimestamp),
		r.host,
		syslogApp,
		r.pid,
		msg,
	)
	if err != nil {
		return fmt.Errorf("writing syslog line: %w", err)
	}

	return nil
}

func (r *SyslogRenderer) RenderResult(result *check.Result) error {
	msg := fmt.Sprintf("%s [%s] {%s}", describe(result), result.Verdict, FormatDetails(result.Details))
	if result.Verdict == check.VerdictFailed && result.Remedy != "" {
		msg += " Remedy: " + result.Remedy
	}

	return r.write(severity(result.Verdict), msg)
}

func (r *SyslogRenderer) RenderStats(s stats.Stats) error {
	data, err := json.Marshal(newSummary(s))
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}

	return r.write(syslogSeverityInfo, string(data))
}
