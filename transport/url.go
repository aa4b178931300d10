package transport

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	embedPath     = "/embed"
	authorizePath = "/authorize"

	// Secondary window dimensions are fixed; the surface page centers
	// itself using these hints.
	popupWidth  = 480
	popupHeight = 720
)

func baseQuery(p Params) url.Values {
	q := url.Values{}
	q.Set("appId", p.AppID)
	q.Set("scopes", strings.Join(p.Scopes, ","))
	q.Set("origin", p.HostOrigin)
	return q
}

// embedURL is the websocket endpoint of the embedded surface.
func embedURL(p Params) string {
	u, err := url.Parse(p.SurfaceOrigin)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = embedPath
	u.RawQuery = baseQuery(p).Encode()
	return u.String()
}

// authorizeURL is the page opened in the secondary browser window.
// callback is the loopback websocket the popup page reports back to.
func authorizeURL(p Params, callback string) string {
	u, err := url.Parse(p.SurfaceOrigin)
	if err != nil {
		return ""
	}
	u.Path = authorizePath
	q := baseQuery(p)
	q.Set("mode", "popup")
	q.Set("callback", callback)
	q.Set("w", strconv.Itoa(popupWidth))
	q.Set("h", strconv.Itoa(popupHeight))
	u.RawQuery = q.Encode()
	return u.String()
}
