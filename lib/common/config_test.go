package common

import (
	"path/filepath"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreConfigDefaults(t *testing.T) {
	t.Parallel()

	c := DefaultStoreConfig("db", []byte("k"))
	assert.Equal(t, DefaultFileName, c.FileName)
	assert.Equal(t, DefaultSignature, c.Signature)
	assert.Equal(t, "legacy", c.KDF)
	assert.Equal(t, DefaultFileMode, c.FileMode)
	assert.NotNil(t, c.Serializer)
	assert.Equal(t, filepath.Join("db", "data.sdb"), c.FilePath())
	assert.Equal(t, filepath.Join("db", "data.sdb.lock"), c.LockPath())
	require.NoError(t, c.Validate())
}

func TestStoreConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(c *StoreConfig)
	}{
		{"no dir", func(c *StoreConfig) { c.Dir = "" }},
		{"no secret", func(c *StoreConfig) { c.Secret = nil }},
		{"file name with separator", func(c *StoreConfig) { c.FileName = "a/b" }},
		{"dot file name", func(c *StoreConfig) { c.FileName = ".." }},
		{"unknown kdf", func(c *StoreConfig) { c.KDF = "md5" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := DefaultStoreConfig("db", []byte("k"))
			tt.modify(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestStoreConfigStringHidesSecret(t *testing.T) {
	t.Parallel()

	c := DefaultStoreConfig("db", []byte("super-secret"))
	out := c.String()
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, "<12 bytes>")
	assert.Contains(t, out, DefaultSignature)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	} {
		got, err := ParseLogLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
	assert.Error(t, InitLoggers("verbose"))
}
