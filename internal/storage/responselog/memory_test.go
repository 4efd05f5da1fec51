// --- File: internal/storage/responselog/memory_test.go ---
package responselog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinywideclouds/callwake-middleware/internal/storage/responselog"
	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
)

func TestMemoryWriter_CollectsEntries(t *testing.T) {
	w := responselog.NewMemoryWriter()
	ctx := context.Background()

	w.Write(ctx, responselog.Entry{Platform: calldevice.PlatformAPNS, RoundtripSecs: 1.5, Available: true})
	w.Write(ctx, responselog.Entry{Platform: calldevice.PlatformAndroid, RoundtripSecs: 0.4, Available: false})

	entries := w.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, calldevice.PlatformAPNS, entries[0].Platform)
	assert.False(t, entries[1].Available)
}
