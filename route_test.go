package hxview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileRoute(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		fragment string
		match    bool
		params   []string
	}{
		{"static", "users", "users", true, []string{}},
		{"static mismatch", "users", "users/1", false, nil},
		{"empty", "", "", true, []string{}},
		{"named", "users/:id", "users/42", true, []string{"42"}},
		{"named spans one segment", "users/:id", "users/42/edit", false, nil},
		{"two named", "users/:id/posts/:post", "users/1/posts/9", true, []string{"1", "9"}},
		{"unescaped", "search/:q", "search/a%20b", true, []string{"a b"}},
		{"splat", "files/*path", "files/a/b/c.txt", true, []string{"a/b/c.txt"}},
		{"optional present", "docs(/:section)", "docs/intro", true, []string{"intro"}},
		{"optional absent", "docs(/:section)", "docs", true, []string{""}},
		{"dots escaped", "file.txt", "fileXtxt", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := compileRoute(tt.pattern)
			require.NoError(t, err)

			params, ok := extractParams(re, tt.fragment)
			assert.Equal(t, tt.match, ok)
			if tt.match {
				assert.Equal(t, tt.params, params)
			}
		})
	}
}

func TestNormalizeFragment(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"users/1", "users/1"},
		{"#users/1", "users/1"},
		{"/users/1", "users/1"},
		{"/users/1?tab=posts", "users/1"},
		{"users/1  ", "users/1"},
		{"/", ""},
		{"//users", "/users"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.out, normalizeFragment(tt.in))
		})
	}
}

func TestBuildFragment(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		params  []string
		expect  string
		wantErr bool
	}{
		{"static", "users", nil, "users", false},
		{"named", "users/:id", []string{"42"}, "users/42", false},
		{"escaped", "search/:q", []string{"a b"}, "search/a%20b", false},
		{"splat", "files/*path", []string{"a/b"}, "files/a/b", false},
		{"optional kept", "docs(/:section)", []string{"intro"}, "docs/intro", false},
		{"optional dropped", "docs(/:section)", []string{""}, "docs", false},
		{"optional omitted", "docs(/:section)", nil, "docs", false},
		{"missing", "users/:id", nil, "", true},
		{"too many", "users", []string{"1"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildFragment(tt.pattern, tt.params)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}
