package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dailycrypto/config"
	"dailycrypto/internal/cms"
)

func TestCMSConfig(t *testing.T) {
	c := config.Default().CMS
	c.ProjectID = "proj"
	c.Token = "secret"
	c.UseCDN = true

	got := cmsConfig(c)
	assert.Equal(t, "proj", got.ProjectID)
	assert.Equal(t, "production", got.Dataset)
	assert.Equal(t, "2024-01-01", got.APIVersion)
	assert.Equal(t, "secret", got.Token)
	assert.Equal(t, "published", got.Perspective)
	assert.True(t, got.UseCDN)
	assert.Equal(t, 10*time.Second, got.Timeout)
}

func TestDefaultFreshness(t *testing.T) {
	assert.Equal(t, cms.Revalidate(time.Minute), defaultFreshness(time.Minute))
	assert.Equal(t, cms.NoStore(), defaultFreshness(0))
}
