// SPDX-License-Identifier: MIT

package epg

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/json2xmltv/internal/feed"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var update = flag.Bool("update", false, "rewrite golden files")

func TestGolden(t *testing.T) {
	for _, name := range []string{"two_channels", "empty"} {
		name := name
		t.Run(name, func(t *testing.T) {
			input := []byte("[]")
			if src := filepath.Join("testdata", name+".json"); fileExists(src) {
				var err error
				input, err = os.ReadFile(src)
				require.NoError(t, err)
			}
			channels, err := feed.Decode(input)
			require.NoError(t, err)

			tv, _ := NewConverter(DefaultOptions()).Convert(channels)
			got, err := Marshal(tv)
			require.NoError(t, err)

			golden := filepath.Join("testdata", name+".golden.xml")
			if *update {
				require.NoError(t, os.WriteFile(golden, got, 0o600))
			}
			want, err := os.ReadFile(golden)
			require.NoError(t, err)

			if diff := cmp.Diff(contentLines(want), contentLines(got)); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", golden, diff)
			}
		})
	}
}

// contentLines drops indentation and blank lines.
func contentLines(doc []byte) []string {
	var out []string
	for _, line := range strings.Split(string(doc), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
