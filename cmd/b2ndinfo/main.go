// Command b2ndinfo inspects b2nd container files: header and dataset
// metadata, optimized-path eligibility, and optionally the values of a
// slice of one dataset.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"

	"github.com/robert-malhotra/go-b2nd/b2nd"
)

type datasetInfo struct {
	Name        string   `json:"name"`
	Shape       []uint64 `json:"shape"`
	Chunks      []uint64 `json:"chunks,omitempty"`
	ElementSize uint32   `json:"element_size"`
	BigEndian   bool     `json:"big_endian"`
	Filters     []uint16 `json:"filters,omitempty"`
	FastPath    bool     `json:"fast_path"`
	Reason      string   `json:"reason,omitempty"`
}

type fileInfo struct {
	Path     string        `json:"path"`
	Version  int           `json:"version"`
	Datasets []datasetInfo `json:"datasets"`
	Values   any           `json:"values,omitempty"`
	Scalar   bool          `json:"scalar,omitempty"`
}

func main() {
	var (
		dataset     string
		sliceExpr   string
		forceFilter bool
	)
	pflag.StringVarP(&dataset, "dataset", "d", "", "read values of this dataset")
	pflag.StringVarP(&sliceExpr, "slice", "s", "", "slice expression, e.g. 2:4,3:7 or 1,: (with --dataset)")
	pflag.BoolVar(&forceFilter, "force-filter", false, "force the generic filter-pipeline path")
	pflag.Parse()

	if pflag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file.b2nd>\n", os.Args[0])
		pflag.PrintDefaults()
		os.Exit(2)
	}

	if forceFilter {
		b2nd.SetForceFilterPipeline(true)
	}

	if err := run(pflag.Arg(0), dataset, sliceExpr); err != nil {
		fmt.Fprintf(os.Stderr, "b2ndinfo: %v\n", err)
		os.Exit(1)
	}
}

func run(path, dataset, sliceExpr string) error {
	f, err := b2nd.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info := fileInfo{
		Path:    f.Path(),
		Version: f.Version(),
	}

	for _, name := range f.Datasets() {
		ds, err := f.Dataset(name)
		if err != nil {
			return fmt.Errorf("dataset %q: %w", name, err)
		}

		di := datasetInfo{
			Name:        name,
			Shape:       ds.Shape(),
			Chunks:      ds.ChunkShape(),
			ElementSize: ds.ElementSize(),
			BigEndian:   ds.BigEndian(),
			Filters:     ds.Filters(),
		}
		elig, err := ds.FastSliceCheck()
		if err != nil {
			return fmt.Errorf("dataset %q: %w", name, err)
		}
		di.FastPath = elig.Eligible
		if !elig.Eligible {
			di.Reason = elig.Reason.String()
		}
		info.Datasets = append(info.Datasets, di)
	}

	if dataset != "" {
		values, scalar, err := readValues(f, dataset, sliceExpr)
		if err != nil {
			return err
		}
		info.Values = values
		info.Scalar = scalar
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func readValues(f *b2nd.File, name, sliceExpr string) (any, bool, error) {
	ds, err := f.Dataset(name)
	if err != nil {
		return nil, false, err
	}

	dims, err := parseSlice(sliceExpr)
	if err != nil {
		return nil, false, err
	}
	arr, err := ds.Slice(dims...)
	if err != nil {
		return nil, false, err
	}

	var out []float64
	if err := arr.Read(&out); err != nil {
		// Fall back to raw bytes for element types float64 cannot hold.
		return arr.Bytes(), arr.IsScalar(), nil
	}
	return out, arr.IsScalar(), nil
}

// parseSlice turns "2:4,3,:,::2" into Dim selections: lo:hi spans with
// an optional :step suffix, bare integers, and ":" for a whole axis.
func parseSlice(expr string) ([]b2nd.Dim, error) {
	if expr == "" {
		return nil, nil
	}

	var dims []b2nd.Dim
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		d, err := parseDim(part)
		if err != nil {
			return nil, fmt.Errorf("slice component %q: %w", part, err)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

func parseDim(part string) (b2nd.Dim, error) {
	fields := strings.Split(part, ":")
	switch len(fields) {
	case 1:
		i, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return b2nd.Dim{}, err
		}
		return b2nd.At(i), nil

	case 2, 3:
		d := b2nd.All()
		if fields[0] != "" || fields[1] != "" {
			lo := int64(0)
			var err error
			if fields[0] != "" {
				if lo, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
					return b2nd.Dim{}, err
				}
			}
			if fields[1] != "" {
				hi, err := strconv.ParseInt(fields[1], 10, 64)
				if err != nil {
					return b2nd.Dim{}, err
				}
				d = b2nd.Span(lo, hi)
			} else {
				d = b2nd.SpanFrom(lo)
			}
		}
		if len(fields) == 3 && fields[2] != "" {
			step, err := strconv.ParseInt(fields[2], 10, 64)
			if err != nil {
				return b2nd.Dim{}, err
			}
			d = d.Step(step)
		}
		return d, nil

	default:
		return b2nd.Dim{}, fmt.Errorf("too many ':' separators")
	}
}
