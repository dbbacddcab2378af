// Package gcglog provides the structured, leveled logger used for
// host-visible lifecycle events: pricing rounds, column-pool state, positive
// Chvátal-Gomory cut duals in emc, and the demo CLI's solve summary. EMC
// Apply/Undo and the branching packages do not log.
//
// The teacher library (katalvlaran/lvlath) is a pure, logging-free
// algorithms library. This core is a long-running solver component, so it
// adopts the pack's richest stack for structured logging instead of
// fmt.Println: github.com/sirupsen/logrus, as used throughout the
// erigon-derived example repos.
package gcglog

import "github.com/sirupsen/logrus"

// logger is the package-level sink every component logs through. Defaults
// to logrus's standard logger so the host gets sensible output with zero
// configuration; SetLogger lets the host redirect output (e.g. into its own
// structured log pipeline) without every component taking a dependency on
// *logrus.Logger directly.
var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger overrides the package-level logger. Passing nil restores the
// default standard logger.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		logger = logrus.StandardLogger()

		return
	}
	logger = l
}

// Logger returns the active logger, for components that want to attach
// additional fields before logging (e.g. Logger().WithField("node_id", id)).
func Logger() logrus.FieldLogger {
	return logger
}

// Round builds a logger scoped to a single pricing round.
func Round(nodeID int64, round int) logrus.FieldLogger {
	return logger.WithFields(logrus.Fields{
		"node_id": nodeID,
		"round":   round,
	})
}
