package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dataeng-tools/airmeta/faults"
)

func classifyStatusError(method string, requestPath string, status int, body []byte) error {
	message := fmt.Sprintf("%s %s returned status %d", method, requestPath, status)
	if detail := bodySnippet(body); detail != "" {
		message += ": " + detail
	}

	if status == http.StatusNotFound {
		return faults.NewTypedError(faults.NotFoundError, message, nil)
	}
	return faults.NewTypedError(faults.RemoteError, message, nil)
}

func bodySnippet(body []byte) string {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}
	return snippet
}

func configError(message string, cause error) error {
	return faults.NewTypedError(faults.ConfigError, message, cause)
}

func remoteError(message string, cause error) error {
	return faults.NewTypedError(faults.RemoteError, message, cause)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
