package middleware

import (
	"strings"
	"testing"
)

func TestRedactQueryString(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  string
	}{
		{"empty", "", ""},
		{"no sensitive params", "page=2&search=db", "page=2&search=db"},
		{"token redacted", "token=abc123", "token=%5BREDACTED%5D"},
		{"mixed case", "TOKEN=abc123", "TOKEN=%5BREDACTED%5D"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := redactQueryString(tc.query)
			if got != tc.want {
				t.Errorf("redactQueryString(%q) = %q, want %q", tc.query, got, tc.want)
			}
		})
	}
}

func TestRedactQueryStringNeverLeaksSecret(t *testing.T) {
	got := redactQueryString("api_key=vh_deadbeef&page=1")
	if strings.Contains(got, "vh_deadbeef") {
		t.Errorf("secret leaked into log query string: %q", got)
	}
}
