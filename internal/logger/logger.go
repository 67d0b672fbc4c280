package logger

import (
	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// Init инициализирует структурированный логгер.
// JSON формат для production, text — для development.
func Init(level string, development bool) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if development {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		Log.SetFormatter(&logrus.JSONFormatter{})
	}
}

// WithOrder возвращает entry с полем order_id — единый способ
// привязать запись лога к заказу.
func WithOrder(orderID interface{}) *logrus.Entry {
	if Log == nil {
		Init("info", false)
	}
	return Log.WithField("order_id", orderID)
}
