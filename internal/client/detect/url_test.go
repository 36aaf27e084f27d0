package detect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsJobURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "plain host", url: "https://hirejobs.in/jobs/xyz9", want: true},
		{name: "www host", url: "https://www.hirejobs.in/jobs/abc123", want: true},
		{name: "mixed case id", url: "https://hirejobs.in/jobs/aB3", want: true},
		{name: "missing id", url: "https://hirejobs.in/jobs/", want: false},
		{name: "nested path", url: "https://hirejobs.in/jobs/abc/apply", want: false},
		{name: "id with dash", url: "https://hirejobs.in/jobs/ab-12", want: false},
		{name: "wrong host", url: "https://linkedin.com/jobs/abc", want: false},
		{name: "subdomain", url: "https://app.hirejobs.in/jobs/abc", want: false},
		{name: "not a url", url: "not a url", want: false},
		{name: "empty", url: "", want: false},
		{name: "garbage scheme", url: "::::", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				require.Equal(t, tt.want, IsJobURL(tt.url))
			})
		})
	}
}

func TestExtractJobID(t *testing.T) {
	require.Equal(t, "abc123", ExtractJobID("https://hirejobs.in/jobs/abc123"))
	require.Equal(t, "", ExtractJobID("https://hirejobs.in/about"))
	require.Equal(t, "", ExtractJobID("::::"))
}
