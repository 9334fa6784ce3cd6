// conf/consts.go enum values shared between configuration and the engines
package conf

// Activity rate reduction methods
const (
	MethodIntervalDedup    = "interval_deduplication"
	MethodTotalDetections  = "total_detections"
	MethodDetectionsPerDay = "detections_per_day"
)

// Abundance aggregation statistics for the diversity matrix
const (
	StatSum    = "sum"
	StatMean   = "mean"
	StatMedian = "median"
	StatMax    = "max"
	StatMin    = "min"
)

// Input dialects for detection tables
const (
	DialectCSV          = "csv"
	DialectTable        = "table"
	DialectAudacity     = "audacity"
	DialectKaleidoscope = "kaleidoscope"
)
