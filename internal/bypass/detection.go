package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Page is the part of a search response the detectors look at.
type Page struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	// FinalURL is the URL after redirects, if known.
	FinalURL string
}

// Detector examines a page to determine whether a bot protection mechanism
// blocked or challenged the request.
type Detector func(p *Page) (detected bool, source string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectGoogle,
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// Analyze runs the page through the detectors and returns the first source
// that triggered, or "" if none did.
func Analyze(p *Page, detectors []Detector) (bool, string) {
	if p == nil {
		return false, ""
	}
	for _, d := range detectors {
		if detected, source := d(p); detected {
			return true, source
		}
	}
	return false, ""
}

func getHeader(headers http.Header, key string) string {
	if vals, ok := headers[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	// Case-insensitive fallback for hand-built header maps
	lowerKey := strings.ToLower(key)
	for k, vals := range headers {
		if strings.ToLower(k) == lowerKey && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// detectGoogle looks for Google's "unusual traffic" interstitial. It is served
// as a 429, or as a 200 after a redirect to /sorry/, so the status alone is
// not enough.
func detectGoogle(p *Page) (bool, string) {
	if strings.Contains(p.FinalURL, "/sorry/") {
		return true, "Google"
	}
	if p.StatusCode == http.StatusTooManyRequests {
		return true, "Google"
	}
	if bytes.Contains(p.Body, []byte("unusual traffic from your computer network")) ||
		bytes.Contains(p.Body, []byte(`id="captcha-form"`)) ||
		bytes.Contains(p.Body, []byte("www.google.com/sorry/")) {
		return true, "Google"
	}
	return false, ""
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(p *Page) (bool, string) {
	if p.StatusCode == http.StatusForbidden || p.StatusCode == http.StatusServiceUnavailable {
		server := strings.ToLower(getHeader(p.Headers, "Server"))
		if strings.Contains(server, "cloudflare") {
			return true, "Cloudflare"
		}

		if bytes.Contains(p.Body, []byte("cf-browser-verification")) ||
			bytes.Contains(p.Body, []byte("cloudflare-nginx")) ||
			bytes.Contains(p.Body, []byte("cf-turnstile")) ||
			bytes.Contains(p.Body, []byte("Attention Required! | Cloudflare")) {
			return true, "Cloudflare"
		}
	}
	return false, ""
}

// detectAkamai looks for Akamai Bot Manager signatures.
func detectAkamai(p *Page) (bool, string) {
	if p.StatusCode == http.StatusForbidden {
		server := strings.ToLower(getHeader(p.Headers, "Server"))
		if strings.Contains(server, "akamai") {
			return true, "Akamai"
		}

		// Akamai often returns a generic "Reference #" block page
		if bytes.Contains(p.Body, []byte("Reference #")) && bytes.Contains(p.Body, []byte("Access Denied")) {
			return true, "Akamai"
		}
	}
	return false, ""
}

// detectDataDome looks for DataDome challenge/block signatures.
func detectDataDome(p *Page) (bool, string) {
	if p.StatusCode == http.StatusForbidden {
		server := strings.ToLower(getHeader(p.Headers, "Server"))
		if strings.Contains(server, "datadome") {
			return true, "DataDome"
		}

		if getHeader(p.Headers, "X-DataDome") != "" || getHeader(p.Headers, "X-DataDome-Response") != "" {
			return true, "DataDome"
		}

		if bytes.Contains(p.Body, []byte("geo.captcha-delivery.com")) || bytes.Contains(p.Body, []byte("datadome")) {
			return true, "DataDome"
		}
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(p *Page) (bool, string) {
	if p.StatusCode == http.StatusForbidden {
		if getHeader(p.Headers, "X-Px-Captcha") != "" {
			return true, "PerimeterX"
		}

		if bytes.Contains(p.Body, []byte("client.perimeterx.net")) ||
			bytes.Contains(p.Body, []byte("px-captcha")) ||
			bytes.Contains(p.Body, []byte("_pxBlock")) {
			return true, "PerimeterX"
		}
	}
	return false, ""
}
