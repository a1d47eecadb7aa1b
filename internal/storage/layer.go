package storage

import (
	"fmt"
	"time"
)

// Layer is a pipeline stage classification. The set is closed and ordered:
// bronze holds raw extracts, silver cleaned tables, gold aggregates.
type Layer string

const (
	LayerBronze Layer = "bronze"
	LayerSilver Layer = "silver"
	LayerGold   Layer = "gold"
)

// Valid reports whether l is one of the three known layers.
func (l Layer) Valid() bool {
	switch l {
	case LayerBronze, LayerSilver, LayerGold:
		return true
	}
	return false
}

// ObjectExt is the extension every dataset object carries.
const ObjectExt = ".parquet"

// TimestampFormat is the sortable UTC token embedded in object names.
// Lexicographic order of names equals chronological order of writes,
// which is the only versioning mechanism this layer has.
const TimestampFormat = "20060102T150405Z"

// ObjectName builds the canonical object filename for a dataset:
// <layer>_<dataset>_<YYYYMMDDThhmmssZ>.parquet
func ObjectName(layer Layer, dataset string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%s%s", layer, dataset, ts.UTC().Format(TimestampFormat), ObjectExt)
}

// DatasetPrefix is the listing prefix that matches every version of a
// dataset within its layer.
func DatasetPrefix(layer Layer, dataset string) string {
	return fmt.Sprintf("%s_%s_", layer, dataset)
}
