package amcache

import (
	"github.com/sirupsen/logrus"

	"github.com/joshuapare/amcachekit/internal/recovery"
	"github.com/joshuapare/amcachekit/internal/txlog"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// Options controls a reconstruction. A nil *Options is the zero value.
type Options struct {
	// RecoverDeleted includes keys recovered from free cells.
	RecoverDeleted bool

	// SkipTransactionLogs parses a dirty hive as found on disk. The result
	// carries an IncompleteHive issue.
	SkipTransactionLogs bool

	// AllowDirtyWithoutLogs parses a dirty hive that has no transaction logs
	// instead of failing with types.ErrDirtyHiveNoLogs.
	AllowDirtyWithoutLogs bool

	// StrictLogReplay fails the parse on the first log entry that cannot be
	// applied. By default replay stops there and records a LogReplay issue.
	StrictLogReplay bool

	// Logger receives progress and diagnostics. Nil discards them.
	Logger logrus.FieldLogger
}

func (o *Options) orDefault() Options {
	if o == nil {
		return Options{}
	}
	return *o
}

func (o Options) recovery() recovery.Options {
	return recovery.Options{
		RecoverDeleted:        o.RecoverDeleted,
		SkipTransactionLogs:   o.SkipTransactionLogs,
		AllowDirtyWithoutLogs: o.AllowDirtyWithoutLogs,
		StrictLogReplay:       o.StrictLogReplay,
	}
}

// Log is a transaction log supplied to ReconstructBytes.
type Log = txlog.Log

// Result is the outcome of one reconstruction (re-exported for convenience).
type Result = types.Result

// Generation tags (re-exported for convenience).
const (
	GenerationNone   = types.GenerationNone
	GenerationLegacy = types.GenerationLegacy
	GenerationModern = types.GenerationModern
)
