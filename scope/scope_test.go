package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		required string
		granted  []string
		want     bool
	}{
		{name: "exact match", required: "gatekeeper.client.create", granted: []string{"gatekeeper.client.create"}, want: true},
		{name: "exact mismatch", required: "gatekeeper.client.create", granted: []string{"gatekeeper.client.delete"}, want: false},
		{name: "glob tail", required: "gatekeeper.client.create", granted: []string{"gatekeeper.client.*"}, want: true},
		{name: "glob middle", required: "gatekeeper.client.create", granted: []string{"gatekeeper.*.create"}, want: true},
		{name: "glob star is not dot-crossing", required: "a.b.c", granted: []string{"a.*"}, want: true},
		{name: "superuser wildcard", required: "anything.at.all", granted: []string{"*"}, want: true},
		{name: "empty granted set", required: "gatekeeper.client.create", granted: nil, want: false},
		{name: "empty granted slice", required: "x", granted: []string{}, want: false},
		{name: "short-circuit on first match", required: "a", granted: []string{"a", "["}, want: true},
		{name: "malformed glob never matches", required: "a", granted: []string{"["}, want: false},
		{name: "second entry matches", required: "b", granted: []string{"a", "b"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.required, tt.granted))
		})
	}
}

func TestUnion(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Union([]string{"a", "b"}, []string{"b", "c"}))
	assert.Equal(t, []string{"a"}, Union([]string{"a"}, nil))
	assert.Nil(t, Union(nil, nil))
}

func TestMatchesAll(t *testing.T) {
	granted := []string{"gatekeeper.client.*", "gatekeeper.account.read"}

	assert.True(t, MatchesAll(nil, granted))
	assert.True(t, MatchesAll([]string{"gatekeeper.client.create", "gatekeeper.account.read"}, granted))
	assert.False(t, MatchesAll([]string{"gatekeeper.client.create", "gatekeeper.account.write"}, granted))
	assert.True(t, MatchesAll([]string{"one", "two"}, []string{Superuser}))
}
