// Command icpdemo runs a single ICP registration between two point clouds
// loaded from CSV and prints the resulting transform.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/kwv/icpmatcher/icp"
	"gonum.org/v1/gonum/mat"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configFile   = flag.String("config", "", "Path to strategy YAML config (optional; defaults are used if omitted)")
	readingFile  = flag.String("reading", "", "CSV file of reading points, one point per line, D coordinates per row")
	referenceFile = flag.String("reference", "", "CSV file of reference points, one point per line, D coordinates per row")
	dim          = flag.Int("dim", 3, "Point dimension (2 or 3)")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(Version)
		return
	}

	if *readingFile == "" || *referenceFile == "" {
		log.Fatal("both -reading and -reference are required")
	}

	reading, err := loadCloud(*readingFile, *dim)
	if err != nil {
		log.Fatalf("loading reading cloud: %v", err)
	}
	reference, err := loadCloud(*referenceFile, *dim)
	if err != nil {
		log.Fatalf("loading reference cloud: %v", err)
	}

	strategy, err := buildStrategy(*configFile, *dim)
	if err != nil {
		log.Fatalf("building strategy: %v", err)
	}

	t, err := icp.Run(icp.Identity(*dim), reading, reference, strategy)
	if err != nil {
		log.Fatalf("icp.Run: %v", err)
	}

	printTransform(t)
}

func buildStrategy(path string, dim int) (*icp.Strategy, error) {
	if path == "" {
		s := &icp.Strategy{
			Matcher:                 &icp.KDTreeMatcher{KNN: 1},
			FeatureOutlierFilters:   icp.FeatureOutlierFilters{icp.TrimmedDistOutlierFilter{Ratio: 0.8}},
			ErrorMinimizer:          icp.PointToPointErrorMinimizer{},
			Transformations:         icp.Transformations{icp.TransformFeatures{}, icp.TransformDescriptors{}},
			TransformationCheckers:  icp.TransformationCheckers{&icp.CounterTransformationChecker{MaxIterations: 40}},
		}
		s.Validate(dim)
		return s, nil
	}
	cfg, err := icp.LoadStrategyConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg.BuildStrategy()
}

func loadCloud(path string, dim int) (icp.DataPoints, error) {
	f, err := os.Open(path)
	if err != nil {
		return icp.DataPoints{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return icp.DataPoints{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	n := len(rows)
	features := mat.NewDense(dim+1, n, nil)
	for j, row := range rows {
		if len(row) < dim {
			return icp.DataPoints{}, fmt.Errorf("%s row %d: expected %d coordinates, got %d", path, j, dim, len(row))
		}
		for i := 0; i < dim; i++ {
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				return icp.DataPoints{}, fmt.Errorf("%s row %d col %d: %w", path, j, i, err)
			}
			features.Set(i, j, v)
		}
		features.Set(dim, j, 1)
	}

	labels := icp.LabelList{{Text: "coords", Span: dim}, {Text: "pad", Span: 1}}
	return icp.DataPoints{Features: features, FeatureLabels: labels}, nil
}

func printTransform(t icp.TransformationParameters) {
	n, _ := t.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			fmt.Printf("%10.6f ", t.At(i, j))
		}
		fmt.Println()
	}
}
