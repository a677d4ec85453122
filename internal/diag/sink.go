// Package diag is the diagnostics sink threaded through the recovery
// orchestrator and the schema decoders. It logs through an injected logrus
// logger and records every recoverable problem in a types.Report.
package diag

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/joshuapare/amcachekit/pkg/types"
)

// Sink pairs a logger with the report of one parse.
type Sink struct {
	log    logrus.FieldLogger
	report *types.Report
}

// New returns a sink writing to log. A nil logger discards output.
func New(log logrus.FieldLogger) *Sink {
	if log == nil {
		log = Discard()
	}
	return &Sink{log: log, report: types.NewReport()}
}

// Discard returns a logger that drops everything.
func Discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// Log returns the underlying logger.
func (s *Sink) Log() logrus.FieldLogger { return s.log }

// Report returns the issues recorded so far.
func (s *Sink) Report() *types.Report { return s.report }

// With returns a sink sharing the same report whose logger carries fields.
func (s *Sink) With(fields logrus.Fields) *Sink {
	return &Sink{log: s.log.WithFields(fields), report: s.report}
}

// Malformed records a sub-key that failed to decode and was skipped.
func (s *Sink) Malformed(path string, err error) {
	s.report.Add(types.Issue{Kind: types.IssueMalformedRecord, Path: path, Message: err.Error()})
	s.log.WithFields(logrus.Fields{"path": path}).WithError(err).Error("skipping malformed record")
}

// UnknownField records a value name outside the known schema.
func (s *Sink) UnknownField(path, value string) {
	s.report.Add(types.Issue{Kind: types.IssueUnknownFieldName, Path: path, Field: value, Message: "unknown value name"})
	s.log.WithFields(logrus.Fields{"path": path, "value": value}).Warn("unknown value name")
}

// MissingSubtree records an absent key that carries inventory data.
func (s *Sink) MissingSubtree(path string) {
	s.report.Add(types.Issue{Kind: types.IssueMissingPrimarySubtree, Path: path, Message: "key not present"})
	s.log.WithField("path", path).Warn("inventory key not present")
}

// IncompleteHive records a dirty hive parsed without replaying logs.
func (s *Sink) IncompleteHive(hive, reason string) {
	s.report.Add(types.Issue{Kind: types.IssueIncompleteHive, Path: hive, Message: reason})
	s.log.WithField("hive", hive).Warn("hive is dirty, data may be incomplete: " + reason)
}

// LogReplay records a transaction log problem that stopped or limited replay.
func (s *Sink) LogReplay(log string, msg string) {
	s.report.Add(types.Issue{Kind: types.IssueLogReplay, Path: log, Message: msg})
	s.log.WithField("log", log).Warn(msg)
}

// Conversion notes a value that could not be converted and was left absent.
// It is not an issue; the field is simply empty.
func (s *Sink) Conversion(path, value, data string) {
	s.log.WithFields(logrus.Fields{"path": path, "value": value, "data": data}).Debug("value left absent")
}
