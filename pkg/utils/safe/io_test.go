package safe_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/unread-lab/catchup/pkg/utils/safe"
)

func TestRemove(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "leftover.tmp")
	gt.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	safe.Remove(ctx, path)
	_, err := os.Stat(path)
	gt.True(t, os.IsNotExist(err))

	// Removing an already-missing file is silent
	safe.Remove(ctx, path)
}

func TestCloseNil(t *testing.T) {
	safe.Close(context.Background(), nil)
}
