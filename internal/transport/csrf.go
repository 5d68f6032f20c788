// Copyright (c) 2026 Howkings. All rights reserved.

package transport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/howkings/howkings-go/internal/platform/constants"
)

// PrimeCSRF asks the backend to set the XSRF-TOKEN cookie.
//
// Call it once before the first state-changing request. The cookie lands in
// the client's jar and every subsequent request echoes its value back in the
// X-CSRF-TOKEN header. Priming is best-effort: a backend without CSRF
// protection simply leaves the jar empty.
func (client *Client) PrimeCSRF(ctx context.Context) error {
	_, err := client.Do(WithoutReauth(ctx), http.MethodGet, "/api/csrf-token", nil)
	return err
}

// csrfCookie returns the current XSRF-TOKEN cookie value, or "".
func (client *Client) csrfCookie() string {
	base, err := url.Parse(client.baseURL)
	if err != nil {
		return ""
	}

	for _, cookie := range client.http.Jar.Cookies(base) {
		if cookie.Name == constants.CSRFCookieName {
			return cookie.Value
		}
	}
	return ""
}
