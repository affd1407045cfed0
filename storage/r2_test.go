package storage

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base string
		key  string
		want string
	}{
		{"https://cdn.example.com", "logos/a.png", "https://cdn.example.com/logos/a.png"},
		{"https://cdn.example.com/", "/logos/a.png", "https://cdn.example.com/logos/a.png"},
		{"https://cdn.example.com/assets", "logos/a.png", "https://cdn.example.com/assets/logos/a.png"},
		{"https://cdn.example.com", "", ""},
	}

	for _, tt := range tests {
		base, err := url.Parse(tt.base)
		require.NoError(t, err)
		assert.Equal(t, tt.want, PublicURL(base, tt.key), "base=%s key=%s", tt.base, tt.key)
	}
	assert.Empty(t, PublicURL(nil, "logos/a.png"))
}

func TestNewCloudflareR2UploaderRequiresAllFields(t *testing.T) {
	_, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{AccountID: "acc"})
	assert.ErrorIs(t, err, ErrInvalidR2Config)
}
