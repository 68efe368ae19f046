// SPDX-License-Identifier: MIT

package epg

import (
	"fmt"

	"github.com/google/renameio/v2"
)

// OutputMode is the permission of files written by WriteFile.
const OutputMode = 0o644

// WriteFile encodes tv into path. Readers of path see either the previous
// document or the complete new one, never a partial write.
func WriteFile(path string, tv *TV) (err error) {
	f, err := renameio.NewPendingFile(path, renameio.WithPermissions(OutputMode))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Cleanup(); err == nil && cerr != nil {
			err = fmt.Errorf("clean up %s: %w", path, cerr)
		}
	}()

	if err = Encode(f, tv); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err = f.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
