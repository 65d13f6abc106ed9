package dataprep

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/data"
)

// InferColumns partitions every non-label column into numeric and categorical
// names using the dataset's inferred column types. Both lists are sorted.
func InferColumns(ds *data.Dataset, label string) (numeric, categorical []string) {
	numeric, categorical = []string{}, []string{}
	for i, c := range ds.Columns {
		if c == label {
			continue
		}
		if ds.Types[i] == data.Numeric {
			numeric = append(numeric, c)
		} else {
			categorical = append(categorical, c)
		}
	}
	sort.Strings(numeric)
	sort.Strings(categorical)

	if overlap := mapset.NewSet(numeric...).Intersect(mapset.NewSet(categorical...)); overlap.Cardinality() > 0 {
		// duplicate header names are the only way to get here
		log.Warn().Strs("columns", overlap.ToSlice()).Msg("Columns typed both numeric and categorical")
	}
	log.Debug().Strs("numeric", numeric).Strs("categorical", categorical).Msg("Inferred column schema")
	return numeric, categorical
}
