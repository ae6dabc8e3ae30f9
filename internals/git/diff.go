package git

import (
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

type FileStat struct {
	Path    string
	Added   int
	Deleted int
}

// ParseDiffStats returns per-file line counts for a unified multi-file diff.
// A modified line counts as one addition and one deletion.
func ParseDiffStats(text string) ([]FileStat, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	fileDiffs, err := diff.ParseMultiFileDiff([]byte(text))
	if err != nil {
		return nil, err
	}

	out := make([]FileStat, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		st := fd.Stat()
		out = append(out, FileStat{
			Path:    filePath(fd),
			Added:   int(st.Added + st.Changed),
			Deleted: int(st.Deleted + st.Changed),
		})
	}
	return out, nil
}

func filePath(fd *diff.FileDiff) string {
	// b/{file_name} is the file on the right side
	if fd.NewName != "" && fd.NewName != "/dev/null" {
		return strings.TrimPrefix(fd.NewName, "b/")
	}
	return strings.TrimPrefix(fd.OrigName, "a/")
}
