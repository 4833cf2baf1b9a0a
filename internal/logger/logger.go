// Package logger holds the process-wide zap logger shared by the HTTP
// handlers, the submission services and the notifier workers. InitLogger
// runs once at startup, before the first request or stream consumer.
package logger

import (
	"go.uber.org/zap"
)

var Log *zap.Logger

func InitLogger() {
	var err error
	Log, err = zap.NewDevelopment()
	if err != nil {
		panic("Failed to init logger: " + err.Error())
	}
}

func SyncLogger() {
	_ = Log.Sync()
}
