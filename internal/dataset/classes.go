package dataset

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/fsutil"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/monitoring"
)

// ExtractClasses scans every annotation JSON file under dir and returns
// the sorted set of unique class titles. Files that fail to decode are
// logged and skipped; a single corrupt export should not hide the classes
// present in the rest of the directory.
func ExtractClasses(fsys fsutil.FileSystem, dir string) ([]string, error) {
	files, err := fsys.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no annotation files found in %s", dir)
	}

	titles := make(map[string]bool)
	for _, path := range files {
		data, err := fsys.ReadFile(path)
		if err != nil {
			monitoring.Logf("skipping unreadable annotation %s: %v", path, err)
			continue
		}

		var ann Annotation
		if err := json.Unmarshal(data, &ann); err != nil {
			monitoring.Logf("skipping undecodable annotation %s: %v", path, err)
			continue
		}

		for _, obj := range ann.Objects {
			if obj.ClassTitle != "" {
				titles[obj.ClassTitle] = true
			}
		}
	}

	result := make([]string, 0, len(titles))
	for title := range titles {
		result = append(result, title)
	}
	sort.Strings(result)
	return result, nil
}
