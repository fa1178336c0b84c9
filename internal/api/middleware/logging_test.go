package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func loggedOutput(t *testing.T, path string, status int) string {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	return buf.String()
}

func TestRequestLogger_LogsRequest(t *testing.T) {
	out := loggedOutput(t, "/api/v1/sectors", http.StatusOK)

	if !strings.Contains(out, `"path":"/api/v1/sectors"`) {
		t.Errorf("запрос не залогирован: %s", out)
	}
	if !strings.Contains(out, `"status":200`) {
		t.Errorf("нет статуса в записи: %s", out)
	}
}

func TestRequestLogger_ErrorLevel(t *testing.T) {
	out := loggedOutput(t, "/api/v1/sectors", http.StatusInternalServerError)

	if !strings.Contains(out, `"level":"ERROR"`) {
		t.Errorf("5xx должен логироваться уровнем ERROR: %s", out)
	}
}

func TestRequestLogger_QuietProbePaths(t *testing.T) {
	// Успешные пробы не логируются, ошибки по тем же путям — логируются.
	if out := loggedOutput(t, "/health/live", http.StatusOK); out != "" {
		t.Errorf("успешная проба не должна логироваться: %s", out)
	}
	if out := loggedOutput(t, "/metrics", http.StatusOK); out != "" {
		t.Errorf("скрейпинг метрик не должен логироваться: %s", out)
	}
	if out := loggedOutput(t, "/health/ready", http.StatusServiceUnavailable); out == "" {
		t.Error("ошибка readiness-пробы должна логироваться")
	}
}
