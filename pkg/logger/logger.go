package logger

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
)

var (
	once        sync.Once
	initialized = false
	appName     = ""

	// output is where console logs go. Stdout is kept for the one-line
	// stage confirmations, so logs default to stderr.
	output io.Writer = os.Stderr
)

// Init initializes the logger by fetching the log level and app name from the app configuration
func Init(cfg *config.Configs) {
	appName = cfg.AppName
	logLevel := cfg.LogLevel

	if len(appName) == 0 {
		appName = "tourism-mlops"
	}
	if len(logLevel) == 0 {
		logLevel = "INFO"
	}
	initLogger(appName, logLevel)
}

func initLogger(appName, logLevel string) {
	if initialized {
		log.Debug().Msgf("Logger already initialized!")
		return
	}
	once.Do(func() {
		setLogLevel(logLevel)
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "02-01-2006 15:04:05.000",
			FormatLevel: func(i interface{}) string {
				return strings.ToUpper(fmt.Sprintf("%-6s", i))
			},
			FieldsExclude: []string{
				"applicationName",
			},
			PartsOrder: []string{
				"applicationName",
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				zerolog.CallerFieldName,
				zerolog.MessageFieldName,
			},
		}).With().Timestamp().Caller().Str("applicationName", appName).Logger()

		// customise caller
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			lineNum := strconv.Itoa(line)
			parts := strings.Split(file, "/")
			return parts[len(parts)-1] + ":" + lineNum
		}

		initialized = true
		log.Debug().Msg("Logger initialized!")
	})
}

// ParseLevel maps the upper-case level names used in configuration.
func ParseLevel(logLevel string) (zerolog.Level, error) {
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "INFO":
		return zerolog.InfoLevel, nil
	case "WARN":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "FATAL":
		return zerolog.FatalLevel, nil
	case "PANIC":
		return zerolog.PanicLevel, nil
	case "DISABLED":
		return zerolog.Disabled, nil
	}
	return zerolog.NoLevel, fmt.Errorf("logger: incorrect log level %q", logLevel)
}

// Sets the log level
func setLogLevel(logLevel string) {
	level, err := ParseLevel(logLevel)
	if err != nil {
		log.Warn().Err(err).Msg("Falling back to INFO")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
