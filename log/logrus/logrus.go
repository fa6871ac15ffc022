// Package logrus adapts a *logrus.Entry to the boundcache.Logger interface.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/boundcache"
)

type LogrusLogger struct{ E *logrus.Entry }

var _ boundcache.Logger = LogrusLogger{}

func (l LogrusLogger) Debug(msg string, f boundcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f boundcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Info(msg)
}
func (l LogrusLogger) Warn(msg string, f boundcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Warn(msg)
}
func (l LogrusLogger) Error(msg string, f boundcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
