package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// identity resolves the caller identity: the identity header if present,
// otherwise Basic auth credentials checked against the tenant's configured
// login endpoints. Token validation itself happens upstream; this service
// only consumes the result.
func (h *Handler) identity(r *http.Request, tenantName string, loginURLs []string) string {
	if id := r.Header.Get(h.identityHeader); id != "" {
		return id
	}
	if len(loginURLs) == 0 {
		return ""
	}
	username, password, ok := r.BasicAuth()
	if !ok {
		return ""
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	for _, loginURL := range loginURLs {
		h.log.Debug().Str("url", loginURL).Msg("checking basic auth via login service")
		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, loginURL, strings.NewReader(form.Encode()))
		if err != nil {
			continue
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set(h.tenantHeader, tenantName)

		resp, err := h.loginClient.Do(req)
		if err != nil {
			h.log.Warn().Err(err).Str("url", loginURL).Msg("basic auth login failed")
			continue
		}
		id := decodeLoginIdentity(resp)
		if id != "" {
			return id
		}
	}
	return ""
}

func decodeLoginIdentity(resp *http.Response) string {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}
	var body struct {
		Identity string `json:"identity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ""
	}
	return body.Identity
}
