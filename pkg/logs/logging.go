package logs

import (
	"os"

	"github.com/op/go-logging"
)

var Logger, _ = GetLogger("")

const defLevel = "INFO"

// InitLogger configures the process-wide go-logging backend. The level string
// is parsed by go-logging; an unknown level returns an error and leaves the
// previous backend in place.
func InitLogger(logLevel string) error {
	backend := logging.NewLogBackend(os.Stdout, "", 0)
	format := logging.MustStringFormatter(
		"%{color}%{time:2006-01-02 15:04:05.000} %{level:.5s} %{pid}] %{shortpkg}.%{shortfunc}%{color:reset} %{message}",
	)
	formatted := logging.NewBackendFormatter(backend, format)

	leveled := logging.AddModuleLevel(formatted)
	if logLevel == "" {
		logLevel = defLevel
	}

	level, err := logging.LogLevel(logLevel)
	if err != nil {
		return err
	}
	leveled.SetLevel(level, "")

	logging.SetBackend(leveled)
	return nil
}

func GetLogger(module string) (*logging.Logger, error) {
	return logging.GetLogger(module)
}
