package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginAllowlist(t *testing.T) {
	o, err := NewOriginAllowlist([]string{"localhost:*", "*.example.com"})
	require.NoError(t, err)

	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{origin: "http://localhost:3000", want: true},
		{origin: "https://app.example.com", want: true},
		{origin: "https://example.com.evil.io", want: false},
		{origin: "https://localhost.evil.io", want: false},
		{host: "localhost:8080", want: true},
		{host: "10.0.0.1:8080", want: false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, o.Allowed(r), "origin=%q host=%q", tt.origin, tt.host)
	}
}

func TestEmptyAllowlistAdmitsAll(t *testing.T) {
	o, err := NewOriginAllowlist(nil)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://anything")
	assert.True(t, o.Allowed(r))
}

func TestClientLimiterPerKey(t *testing.T) {
	l := NewClientLimiter(1, 1)
	now := time.Now()
	assert.True(t, l.Allow("ip:a", now))
	assert.False(t, l.Allow("ip:a", now))
	assert.True(t, l.Allow("ip:b", now))
	assert.True(t, l.Allow("ip:a", now.Add(time.Second)))

	var nilLimiter *ClientLimiter
	assert.True(t, nilLimiter.Allow("ip:a", now))
	assert.Nil(t, NewClientLimiter(0, 5))
}
