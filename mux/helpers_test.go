package mux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: "/"},
		{name: "already clean", input: "/a/b", expected: "/a/b"},
		{name: "missing leading slash", input: "a/b", expected: "/a/b"},
		{name: "dot segment", input: "/a/./b", expected: "/a/b"},
		{name: "dot dot segment", input: "/a/../b", expected: "/b"},
		{name: "double slash", input: "/a//b", expected: "/a/b"},
		{name: "keeps trailing slash", input: "/a/b/", expected: "/a/b/"},
		{name: "root", input: "/", expected: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanPath(tt.input))
		})
	}
}

func TestHostWithoutPort(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare host", input: "example.com", expected: "example.com"},
		{name: "with port", input: "example.com:8080", expected: "example.com"},
		{name: "uppercase", input: "Example.COM", expected: "example.com"},
		{name: "ipv6 with port", input: "[::1]:8080", expected: "[::1]"},
		{name: "ipv6 without port", input: "[::1]", expected: "[::1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, hostWithoutPort(tt.input))
		})
	}
}

func TestIsValidMethodToken(t *testing.T) {
	valid := []string{"GET", "POST", "PURGE", "M-SEARCH", "X_CUSTOM"}
	for _, m := range valid {
		assert.True(t, isValidMethodToken(m), m)
	}

	invalid := []string{"", "GE T", "GET,POST", "GET/1", "G\tT", "GET{"}
	for _, m := range invalid {
		assert.False(t, isValidMethodToken(m), m)
	}
}

func TestIsValidHeaderValue(t *testing.T) {
	assert.True(t, isValidHeaderValue("GET, HEAD, POST"))
	assert.True(t, isValidHeaderValue("with\thtab"))
	assert.False(t, isValidHeaderValue("line\nbreak"))
	assert.False(t, isValidHeaderValue("del\x7fchar"))
}

func TestRenderAllowedMethods(t *testing.T) {
	t.Run("sorted and comma separated", func(t *testing.T) {
		assert.Equal(t, "DELETE, GET, HEAD, POST", renderAllowedMethods([]string{"POST", "GET", "DELETE", "HEAD"}))
	})

	t.Run("implies HEAD from GET", func(t *testing.T) {
		assert.Equal(t, "GET, HEAD", renderAllowedMethods([]string{"GET"}))
	})

	t.Run("no implied HEAD without GET", func(t *testing.T) {
		assert.Equal(t, "POST", renderAllowedMethods([]string{"POST"}))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", renderAllowedMethods(nil))
	})
}
