// Package detect decides whether a URL is a supported HireJobs job posting
// and keeps the shared job context in sync with browser tab events.
package detect

import (
	"net/url"
	"regexp"
	"strings"
)

var jobPathPattern = regexp.MustCompile(`^/jobs/[a-zA-Z0-9]+$`)

// IsJobURL reports whether raw is a HireJobs job posting URL: the host must
// be hirejobs.in (with or without www.) and the path must be /jobs/<id>.
// Anything that fails to parse is simply not a job URL; never panics.
func IsJobURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host != "hirejobs.in" && host != "www.hirejobs.in" {
		return false
	}
	return jobPathPattern.MatchString(u.Path)
}

// ExtractJobID returns the job id from a HireJobs job URL, or "" when the
// URL does not carry one.
func ExtractJobID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !strings.HasPrefix(u.Path, "/jobs/") {
		return ""
	}
	parts := strings.Split(u.Path, "/")
	return parts[len(parts)-1]
}
