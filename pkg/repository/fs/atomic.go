package fs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/utils/safe"
)

// writeFileAtomic writes data to path via a temporary file in the same
// directory followed by a rename, so a crash mid-write never leaves a
// truncated file visible to readers.
func writeFileAtomic(ctx context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file", goerr.V("dir", dir))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		safe.Close(ctx, tmp)
		safe.Remove(ctx, tmpName)
		return goerr.Wrap(err, "failed to write temp file", goerr.V("path", tmpName))
	}
	if err := tmp.Close(); err != nil {
		safe.Remove(ctx, tmpName)
		return goerr.Wrap(err, "failed to close temp file", goerr.V("path", tmpName))
	}

	if err := os.Rename(tmpName, path); err != nil {
		safe.Remove(ctx, tmpName)
		return goerr.Wrap(err, "failed to rename temp file", goerr.V("path", path))
	}
	return nil
}
