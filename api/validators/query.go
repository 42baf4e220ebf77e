package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
)

// ParseQueryEnum returns the query value for key, or defaultVal when absent.
// Values outside allowed are rejected.
func ParseQueryEnum(r *http.Request, key, defaultVal string, allowed []string) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	if raw == "" {
		return defaultVal, nil
	}
	for _, candidate := range allowed {
		if raw == candidate {
			return raw, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter").
		WithDetails(map[string]any{"field": key, "allowed": allowed})
}
