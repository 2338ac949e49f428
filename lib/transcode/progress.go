package transcode

import (
	"math"
	"regexp"
	"sync"

	"github.com/go-rod/screenrec/lib/utils"
)

// ProgressSource turns codec output into a conversion percentage.
// It is best-effort telemetry: a source may never report anything, callers must not depend on it
// to detect completion.
type ProgressSource interface {
	// Feed a log line, returns the percent in [0, 99] when the line carries progress
	Feed(line string) (percent int, ok bool)

	// Reset the state before a new conversion
	Reset()
}

var (
	regDuration = regexp.MustCompile(`Duration: (\d{2}):(\d{2}):(\d{2})`)
	regTime     = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2})`)
)

// LogProgress scrapes the human readable ffmpeg log, the format is owned by ffmpeg and
// may change between versions.
type LogProgress struct {
	duration int
}

var _ ProgressSource = &LogProgress{}

// NewLogProgress source
func NewLogProgress() *LogProgress {
	return &LogProgress{}
}

// Feed interface
func (p *LogProgress) Feed(line string) (int, bool) {
	if m := regDuration.FindStringSubmatch(line); m != nil {
		if d := utils.HMS(m[1], m[2], m[3]); d > 0 {
			p.duration = d
		}
		return 0, false
	}

	m := regTime.FindStringSubmatch(line)
	if m == nil || p.duration <= 0 {
		return 0, false
	}

	current := utils.HMS(m[1], m[2], m[3])
	percent := int(math.Round(float64(current) / float64(p.duration) * 100))
	if percent > 99 {
		percent = 99
	}
	if percent < 0 {
		percent = 0
	}
	return percent, true
}

// Reset interface
func (p *LogProgress) Reset() {
	p.duration = 0
}

// Duration announced by the log, in seconds
func (p *LogProgress) Duration() int {
	return p.duration
}

// Progress of a conversion
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// Stages of a conversion
const (
	StagePrepare  = "preparing"
	StageRead     = "reading video data"
	StageWrite    = "writing source file"
	StageAnalyze  = "analyzing video"
	StageConvert  = "converting"
	StageOutput   = "processing converted file"
	StageFinalize = "generating final file"
	StageDone     = "done"
)

// tracker makes the reported percent monotonic and keeps it in [0, 100]
type tracker struct {
	lock    sync.Mutex
	percent int
	stage   string
	report  func(Progress)
}

func newTracker(report func(Progress)) *tracker {
	if report == nil {
		report = func(Progress) {}
	}
	return &tracker{report: report}
}

func (t *tracker) set(stage string, percent int) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if percent > 100 {
		percent = 100
	}

	changed := false
	if percent > t.percent {
		t.percent = percent
		changed = true
	}
	if stage != "" && stage != t.stage {
		t.stage = stage
		changed = true
	}

	if changed {
		t.report(Progress{Stage: t.stage, Percent: t.percent})
	}
}
