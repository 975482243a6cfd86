package domain

// QualityLabel is the human-readable band of a quality score.
type QualityLabel string

const (
	QualityExcellent QualityLabel = "Excellent"
	QualityGood      QualityLabel = "Good"
	QualityFair      QualityLabel = "Fair"
	QualityPoor      QualityLabel = "Poor"
)

// QualityScore is a self-consistency translation score in [0,100].
type QualityScore struct {
	Value float64
	Label QualityLabel
}
