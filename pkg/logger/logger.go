package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

const modulePath = "github.com/THPTUHA/pushchan/"

var ginOnce sync.Once

type Options struct {
	Level string
	Node  string
	// Format is FormatText (default) or FormatJSON.
	Format string
	// Out defaults to os.Stderr.
	Out io.Writer
}

// InitLogger builds a text logger on stderr tagged with the given node name.
func InitLogger(logLevel string, node string) *logrus.Entry {
	return New(Options{Level: logLevel, Node: node})
}

// New builds a logger from opts. An unparsable level falls back to info.
func New(opts Options) *logrus.Entry {
	l := logrus.New()
	l.Out = opts.Out
	if l.Out == nil {
		l.Out = os.Stderr
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		logrus.WithError(err).Error("Error parsing log level, using: info")
		level = logrus.InfoLevel
	}
	l.Level = level
	l.SetReportCaller(true)

	switch opts.Format {
	case FormatJSON:
		l.Formatter = &logrus.JSONFormatter{CallerPrettyfier: prettyCaller}
	default:
		l.Formatter = &logrus.TextFormatter{FullTimestamp: true, CallerPrettyfier: prettyCaller}
	}

	log := logrus.NewEntry(l).WithField("node", opts.Node)
	ginOnce.Do(func() {
		if level == logrus.DebugLevel {
			gin.DefaultWriter = log.Writer()
			gin.SetMode(gin.DebugMode)
		} else {
			gin.DefaultWriter = io.Discard
			gin.SetMode(gin.ReleaseMode)
		}
	})
	return log
}

// prettyCaller shortens the function to its package and the file to its
// path inside the module.
func prettyCaller(f *runtime.Frame) (string, string) {
	file := f.File
	if i := strings.LastIndex(file, modulePath); i >= 0 {
		file = file[i+len(modulePath):]
	} else {
		file = path.Base(file)
	}
	return fmt.Sprintf("%s()", path.Base(f.Function)), fmt.Sprintf("%s:%d", file, f.Line)
}
