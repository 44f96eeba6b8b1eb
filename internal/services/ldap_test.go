package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viprasethu/backend/internal/config"
	"github.com/viprasethu/backend/pkg/response"
)

func TestLDAPService_Disabled(t *testing.T) {
	svc := NewLDAPService(&config.LDAPConfig{Enabled: false})
	assert.False(t, svc.IsEnabled())

	_, err := svc.Authenticate("a@example.com", "secret")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, response.StatusOf(err))

	assert.False(t, NewLDAPService(nil).IsEnabled())
}

func TestLDAPService_EmptyPassword(t *testing.T) {
	svc := NewLDAPService(&config.LDAPConfig{Enabled: true, Host: "127.0.0.1", Port: 1})

	_, err := svc.Authenticate("a@example.com", "")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, response.StatusOf(err))
}

func TestLDAPService_FilterEscapesEmail(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		email  string
		want   string
	}{
		{"default filter", "", "a@example.com", "(mail=a@example.com)"},
		{"custom filter", "(&(objectClass=person)(uid=%s))", "bob", "(&(objectClass=person)(uid=bob))"},
		{"escapes wildcard", "", "*)(uid=*", `(mail=\2a\29\28uid=\2a)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewLDAPService(&config.LDAPConfig{Enabled: true, UserFilter: tt.filter})
			assert.Equal(t, tt.want, svc.filterFor(tt.email))
		})
	}
}

func TestNoopCache(t *testing.T) {
	var c Cache = NoopCache{}
	ctx := t.Context()

	require.NoError(t, c.Set(ctx, "k", map[string]string{"a": "b"}, 0))
	var dest map[string]string
	found, err := c.Get(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Delete(ctx, "k"))
}
