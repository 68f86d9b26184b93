package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// ServiceName tags every log line and the health/info payloads.
const ServiceName = "bondaccess-api"

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest emits a structured JSON log line. The service name is stamped on
// every line, and a timestamp is added when the caller did not set one.
func LogRequest(entry map[string]any) {
	entry["service"] = ServiceName
	if _, ok := entry["ts"]; !ok {
		entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"ts":"error","level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
