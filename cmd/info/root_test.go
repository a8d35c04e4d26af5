package info

import (
	"testing"
	"time"

	"github.com/ValentinKolb/sDB/lib/store"
	"github.com/ValentinKolb/sDB/lib/util"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatBytes(0))
	assert.Equal(t, "1023 B", formatBytes(1023))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 MiB", formatBytes(3*1024*1024/2))
}

func TestFormatInfo(t *testing.T) {
	color.NoColor = true

	out := FormatInfo(store.Info{
		Path:          "db/data.sdb",
		Collections:   2,
		Documents:     5,
		FileSizeBytes: 2048,
		Checksum:      "0123456789abcdef",
		DocumentSizes: util.SizeSummary{Count: 5, Total: 500, Average: 100, P50: 96, P95: 160, Max: 180},
		LastPersist:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	assert.Contains(t, out, "db/data.sdb")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "2024-01-02T03:04:05Z")
	assert.Contains(t, out, "500 B")
}
