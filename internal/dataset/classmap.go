package dataset

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/fsutil"
)

// ClassMap maps annotation class titles to YOLO class IDs. Titles absent
// from the map are skipped during conversion rather than treated as
// errors, which is how the DontCare regions in the KITTI export are
// excluded.
type ClassMap map[string]int

// DefaultClassMap returns the mapping used for the KITTI export. The
// "person sitting" title folds into the pedestrian class.
func DefaultClassMap() ClassMap {
	return ClassMap{
		"car":            0,
		"pedestrian":     1,
		"person sitting": 1,
		"cyclist":        2,
		"truck":          3,
		"van":            4,
	}
}

// LoadClassMap reads a class map from a JSON file of the form
// {"car": 0, "pedestrian": 1, ...}.
func LoadClassMap(fsys fsutil.FileSystem, path string) (ClassMap, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class map %s: %w", path, err)
	}

	var cm ClassMap
	if err := json.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("parse class map %s: %w", path, err)
	}
	if len(cm) == 0 {
		return nil, fmt.Errorf("class map %s is empty", path)
	}

	for title, id := range cm {
		if id < 0 {
			return nil, fmt.Errorf("class map %s: class %q has negative ID %d", path, title, id)
		}
	}

	return cm, nil
}

// Names returns class names indexed by class ID. Where several titles
// share an ID (e.g. pedestrian and "person sitting"), the
// lexicographically smallest title wins so the result is deterministic.
func (cm ClassMap) Names() map[int]string {
	names := make(map[int]string)

	titles := make([]string, 0, len(cm))
	for title := range cm {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	for _, title := range titles {
		id := cm[title]
		if _, ok := names[id]; !ok {
			names[id] = title
		}
	}
	return names
}
