package source

import (
	"os"
	"path/filepath"

	"telcodw/internal/config"
)

// ExtractAll loads every configured source under dir.
//
// Missing or unreadable files are never fatal: they degrade to an empty
// RecordSet with a logged warning, because most exports are optional and
// the transform layer decides what is actually required.
//
// Every loaded set gets its column names edge-trimmed before being handed
// downstream, so later stages can assume headers carry no stray whitespace.
func ExtractAll(logf func(format string, v ...any), dir string, files map[string]string, opt config.Options) map[string]*RecordSet {
	data := make(map[string]*RecordSet, len(files))

	for name, file := range files {
		path := filepath.Join(dir, file)
		rs, err := LoadCSV(path, opt)
		if err != nil {
			if os.IsNotExist(err) {
				logf("stage=extract source=%s status=missing path=%s", name, path)
			} else {
				logf("stage=extract source=%s status=warn err=%v", name, err)
			}
			data[name] = &RecordSet{}
			continue
		}
		logf("stage=extract source=%s rows=%d", name, rs.NumRows())
		data[name] = rs
	}

	// Source sets are reassigned by key, never mutated behind the map's back.
	for name, rs := range data {
		if rs.Empty() {
			continue
		}
		rs.TrimColumnNames()
		data[name] = rs
	}

	return data
}
