package web

import (
	"net/http"
	"net/url"

	"github.com/JonMunkholm/dados/internal/access"
	"github.com/JonMunkholm/dados/internal/core"
)

// sessionFrom returns the session BasicAuth stored for r. Routes outside the
// auth group get the zero session, which holds no capabilities.
func sessionFrom(r *http.Request) access.Session {
	sess, _ := access.SessionFromContext(r.Context())
	return sess
}

// filterFromQuery builds a FilterSpec from query parameters, one column per
// key. Unknown keys are kept so ValidateFilter can reject them.
func filterFromQuery(q url.Values) core.FilterSpec {
	if len(q) == 0 {
		return nil
	}
	spec := make(core.FilterSpec, len(q))
	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		spec[key] = values[0]
	}
	return spec
}
