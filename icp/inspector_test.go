package icp

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNoopInspectorDoesNothing(t *testing.T) {
	var i Inspector = NoopInspector{}
	i.Init()
	i.DumpFilteredReference(DataPoints{})
	i.DumpIteration(0, Identity(2), DataPoints{}, DataPoints{}, Matches{}, OutlierWeights{}, OutlierWeights{}, nil)
	i.Finish(0)
}

func TestFileInspectorWritesCSVAndPolydata(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "inspect.csv")
	fi := &FileInspector{Dir: dir, CSVPath: csvPath}
	fi.Init()

	cloud := makeCloud(t, [][]float64{{0, 0}, {1, 1}})
	fi.DumpFilteredReference(cloud)

	matches := Matches{Dists: mat.NewDense(1, 2, []float64{1, 2}), IDs: [][]int{{0, 1}}}
	fw := NewOutlierWeights(1, 2, 1)
	dw := NewOutlierWeights(1, 2, 0.5)
	fi.DumpIteration(0, Identity(2), cloud, cloud, matches, fw, dw, nil)
	fi.Finish(1)

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("reading inspector CSV: %v", err)
	}
	if len(data) == 0 {
		t.Errorf("expected non-empty CSV output")
	}

	if _, err := os.Stat(filepath.Join(dir, "reference_filtered.vtk")); err != nil {
		t.Errorf("expected a reference_filtered.vtk dump: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "reading_0000.vtk")); err != nil {
		t.Errorf("expected a reading_0000.vtk dump: %v", err)
	}
}

func TestFileInspectorToleratesUnwritablePath(t *testing.T) {
	// Dir is left empty (no VTK dumps attempted) and CSVPath names a
	// directory that was never created, so os.Create fails; Init should
	// log a warning rather than panic.
	fi := &FileInspector{CSVPath: filepath.Join(t.TempDir(), "missing-dir", "inspect.csv")}
	fi.Init()
	fi.DumpIteration(0, Identity(2), DataPoints{}, DataPoints{}, Matches{Dists: &mat.Dense{}}, NewOutlierWeights(0, 0, 0), NewOutlierWeights(0, 0, 0), nil)
	fi.Finish(0)
}
