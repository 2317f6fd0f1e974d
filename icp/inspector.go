package icp

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// Inspector observes the ICP loop for debugging: the filtered reference (once)
// and every iteration's transform, clouds, matches, and outlier weights are
// offered to it, but an Inspector must never affect the algorithm's outcome.
// Errors are logged and discarded, mirroring the teacher's
// log.Printf("Warning: ...") convention for non-fatal I/O failures.
type Inspector interface {
	Init()
	DumpFilteredReference(reference DataPoints)
	DumpIteration(iteration int, t TransformationParameters, refFiltered, readingCurrent DataPoints, matches Matches, fw, dw OutlierWeights, checkers TransformationCheckers)
	Finish(iteration int)
}

// NoopInspector implements Inspector with no side effects, the default when
// a Strategy is not configured with one.
type NoopInspector struct{}

func (NoopInspector) Init()                         {}
func (NoopInspector) DumpFilteredReference(DataPoints) {}
func (NoopInspector) DumpIteration(int, TransformationParameters, DataPoints, DataPoints, Matches, OutlierWeights, OutlierWeights, TransformationCheckers) {
}
func (NoopInspector) Finish(int) {}

// FileInspector writes one legacy-ASCII VTK polydata file per role
// (reference, reading) per iteration under Dir, plus a single CSV of
// per-iteration checker values (mean feature/descriptor outlier weight,
// translation norm, rotation angle) to CSVPath, in the spirit of the
// original library's AbstractVTKInspector/VTKFileInspector. No third-party
// library in this codebase's dependency pack specializes in VTK polydata or
// tabular diagnostic output, so this stage is grounded on the standard
// library (encoding/csv, os, fmt).
type FileInspector struct {
	Dir     string // directory that receives per-iteration "reference_%04d.vtk" / "reading_%04d.vtk" files
	CSVPath string // path to the per-iteration checker-values CSV

	csvFile   *os.File
	csvWriter *csv.Writer
}

func (fi *FileInspector) Init() {
	if fi.Dir != "" {
		if err := os.MkdirAll(fi.Dir, 0755); err != nil {
			log.Printf("Warning: FileInspector: could not create %s: %v", fi.Dir, err)
		}
	}
	if fi.CSVPath == "" {
		return
	}
	f, err := os.Create(fi.CSVPath)
	if err != nil {
		log.Printf("Warning: FileInspector: could not create %s: %v", fi.CSVPath, err)
		return
	}
	fi.csvFile = f
	fi.csvWriter = csv.NewWriter(f)
	header := []string{"iteration", "mean_feature_weight", "mean_descriptor_weight", "rotation_angle", "translation_norm"}
	if err := fi.csvWriter.Write(header); err != nil {
		log.Printf("Warning: FileInspector: could not write header: %v", err)
	}
}

func (fi *FileInspector) DumpFilteredReference(reference DataPoints) {
	fi.dumpCloud("reference_filtered", reference)
}

func (fi *FileInspector) DumpIteration(iteration int, t TransformationParameters, refFiltered, readingCurrent DataPoints, matches Matches, fw, dw OutlierWeights, checkers TransformationCheckers) {
	fi.dumpCloud(fmt.Sprintf("reference_%04d", iteration), refFiltered)
	fi.dumpCloud(fmt.Sprintf("reading_%04d", iteration), readingCurrent)

	if fi.csvWriter == nil {
		return
	}
	rot, trans := rotationTranslation(t)
	angle := quaternionAngle(rotationToQuaternion(rot))
	norm := 0.0
	for _, v := range trans {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	row := []string{
		strconv.Itoa(iteration),
		strconv.FormatFloat(meanWeight(fw), 'g', -1, 64),
		strconv.FormatFloat(meanWeight(dw), 'g', -1, 64),
		strconv.FormatFloat(angle, 'g', -1, 64),
		strconv.FormatFloat(norm, 'g', -1, 64),
	}
	if err := fi.csvWriter.Write(row); err != nil {
		log.Printf("Warning: FileInspector: could not write row: %v", err)
	}
}

func (fi *FileInspector) Finish(iteration int) {
	if fi.csvWriter != nil {
		fi.csvWriter.Flush()
	}
	if fi.csvFile != nil {
		if err := fi.csvFile.Close(); err != nil {
			log.Printf("Warning: FileInspector: error closing %s: %v", fi.CSVPath, err)
		}
	}
}

// dumpCloud writes cloud's geometric points as a legacy ASCII VTK polydata
// file named name+".vtk" under Dir, one vertex cell per point, matching
// original_source/pointmatcher/Inspectors.cpp's dumpDataPoints layout
// (header, POINTS, VERTICES).
func (fi *FileInspector) dumpCloud(name string, cloud DataPoints) {
	if fi.Dir == "" {
		return
	}
	path := filepath.Join(fi.Dir, name+".vtk")
	f, err := os.Create(path)
	if err != nil {
		log.Printf("Warning: FileInspector: could not create %s: %v", path, err)
		return
	}
	defer f.Close()

	dim := cloud.GeometricDim()
	n := cloud.NumPoints()

	fmt.Fprintln(f, "# vtk DataFile Version 3.0")
	fmt.Fprintln(f, "icp inspector dump")
	fmt.Fprintln(f, "ASCII")
	fmt.Fprintln(f, "DATASET POLYDATA")
	fmt.Fprintf(f, "POINTS %d float\n", n)
	for j := 0; j < n; j++ {
		for i := 0; i < dim; i++ {
			if i > 0 {
				fmt.Fprint(f, " ")
			}
			fmt.Fprintf(f, "%g", cloud.Features.At(i, j))
		}
		for i := dim; i < 3; i++ {
			fmt.Fprint(f, " 0")
		}
		fmt.Fprintln(f)
	}
	fmt.Fprintf(f, "VERTICES %d %d\n", n, n*2)
	for j := 0; j < n; j++ {
		fmt.Fprintf(f, "1 %d\n", j)
	}
	if err := f.Sync(); err != nil {
		log.Printf("Warning: FileInspector: error flushing %s: %v", path, err)
	}
}

// meanWeight returns the mean of an OutlierWeights matrix, 0 if empty.
func meanWeight(w OutlierWeights) float64 {
	if w.Weights == nil {
		return 0
	}
	k, n := w.Weights.Dims()
	if k == 0 || n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < k; i++ {
		for j := 0; j < n; j++ {
			sum += w.Weights.At(i, j)
		}
	}
	return sum / float64(k*n)
}
