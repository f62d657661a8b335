package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:	Package wide logger.
 *
 * Description:	Everything in here logs thru one charmbracelet logger
 *		so a main program can adjust the level or send it
 *		somewhere else.  Key and PTT changes are logged at
 *		debug level, transmissions at info.
 *
 *------------------------------------------------------------------*/

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{ //nolint:exhaustruct
	ReportTimestamp: true,
	TimeFormat:      time.TimeOnly,
	Prefix:          "cwkey",
})

func Logger() *log.Logger {
	return logger
}

func SetLogger(l *log.Logger) {
	logger = l
}

// SetLogLevel accepts debug, info, warn, error or fatal.
func SetLogLevel(level string) error {
	var lvl, err = log.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}

// timestampPrefix formats now with a strftime style format, with a
// leading space, or returns "" when no format was configured.
func timestampPrefix(format string, now time.Time) string {
	if format == "" {
		return ""
	}

	var formatted, err = strftime.Format(format, now)
	if err != nil {
		logger.Warn("bad timestamp format", "format", format, "err", err)
		return ""
	}

	return " " + formatted
}
