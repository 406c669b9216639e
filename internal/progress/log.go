package progress

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ezpbars/internal/shared"
)

// LogView writes progress as log lines. Updates are buffered per message and flushed when the step remaining ETA, the
// last field of each update, arrives.
type LogView struct {
	logger  *log.Logger
	pending Snapshot
}

var _ View = (*LogView)(nil)

// NewLogView creates a [LogView] writing through logger.
func NewLogView(logger *log.Logger) *LogView {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LogView{logger: logger}
}

func (v *LogView) SetOverallEtaSeconds(eta float64)     { v.pending.OverallEtaSeconds = eta }
func (v *LogView) SetRemainingEtaSeconds(eta float64)   { v.pending.RemainingEtaSeconds = eta }
func (v *LogView) SetStepName(name string)              { v.pending.StepName = name }
func (v *LogView) SetStepOverallEtaSeconds(eta float64) { v.pending.StepOverallEtaSeconds = eta }

func (v *LogView) SetStepRemainingEtaSeconds(eta float64) {
	v.pending.StepRemainingEtaSeconds = eta
	v.flush()
}

func (v *LogView) OnError(err error) {
	v.logger.Error("trace failed", "error", err)
}

func (v *LogView) flush() {
	s := v.pending
	v.logger.Info("progress",
		"step", s.StepName,
		"remaining", shared.FormatETA(s.RemainingEtaSeconds),
		"overall", shared.FormatETA(s.OverallEtaSeconds),
		"step_remaining", shared.FormatETA(s.StepRemainingEtaSeconds),
	)
}
