package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/fsutil"
)

func TestExtractClasses(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()

	docs := map[string]string{
		"ann/a.json": `{"size":{"width":10,"height":10},"objects":[
			{"classTitle":"car","points":{"exterior":[[0,0],[1,1]]}},
			{"classTitle":"pedestrian","points":{"exterior":[[0,0],[1,1]]}}]}`,
		"ann/b.json": `{"size":{"width":10,"height":10},"objects":[
			{"classTitle":"car","points":{"exterior":[[0,0],[1,1]]}},
			{"classTitle":"cyclist","points":{"exterior":[[0,0],[1,1]]}}]}`,
		"ann/c.json": `{"size":{"width":10,"height":10},"objects":[]}`,
	}
	for path, doc := range docs {
		if err := m.WriteFile(path, []byte(doc), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	classes, err := ExtractClasses(m, "ann")
	if err != nil {
		t.Fatalf("ExtractClasses failed: %v", err)
	}

	want := []string{"car", "cyclist", "pedestrian"}
	if diff := cmp.Diff(want, classes); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractClassesSkipsUndecodable(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()
	if err := m.WriteFile("ann/good.json", []byte(`{"size":{"width":10,"height":10},"objects":[{"classTitle":"van","points":{"exterior":[[0,0],[1,1]]}}]}`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := m.WriteFile("ann/bad.json", []byte("{broken"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	classes, err := ExtractClasses(m, "ann")
	if err != nil {
		t.Fatalf("ExtractClasses failed: %v", err)
	}
	if len(classes) != 1 || classes[0] != "van" {
		t.Errorf("classes = %v, want [van]", classes)
	}
}

func TestExtractClassesEmptyDir(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()
	if _, err := ExtractClasses(m, "ann"); err == nil {
		t.Fatal("expected error for directory with no annotations")
	}
}

func TestClassMapNames(t *testing.T) {
	names := DefaultClassMap().Names()

	if names[0] != "car" {
		t.Errorf("names[0] = %q, want car", names[0])
	}
	// pedestrian and "person sitting" share ID 1; lexicographically
	// smaller title wins.
	if names[1] != "pedestrian" {
		t.Errorf("names[1] = %q, want pedestrian", names[1])
	}
	if names[4] != "van" {
		t.Errorf("names[4] = %q, want van", names[4])
	}
}

func TestLoadClassMap(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()
	if err := m.WriteFile("classes.json", []byte(`{"car": 0, "bus": 1}`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cm, err := LoadClassMap(m, "classes.json")
	if err != nil {
		t.Fatalf("LoadClassMap failed: %v", err)
	}
	if cm["bus"] != 1 {
		t.Errorf("bus = %d, want 1", cm["bus"])
	}
}

func TestLoadClassMapRejectsNegativeID(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()
	if err := m.WriteFile("classes.json", []byte(`{"car": -1}`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadClassMap(m, "classes.json"); err == nil {
		t.Fatal("expected error for negative class ID")
	}
}

func TestLoadClassMapEmpty(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()
	if err := m.WriteFile("classes.json", []byte(`{}`), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadClassMap(m, "classes.json"); err == nil {
		t.Fatal("expected error for empty class map")
	}
}
