package services

import (
	"math"
	"sort"
	"time"

	"github.com/aegisai/backend/internal/logger"
	"github.com/aegisai/backend/internal/models"
	"gorm.io/gorm"
)

// Significance level for the KS test.
const ksAlpha = 0.05

// DriftService detects data drift in model inputs using a two-sample
// Kolmogorov-Smirnov test and the Population Stability Index.
type DriftService struct {
	db       *gorm.DB
	baseline map[string][]float64
}

func NewDriftService(db *gorm.DB, baseline map[string][]float64) *DriftService {
	return &DriftService{db: db, baseline: baseline}
}

// CheckDrift runs both tests for one feature and persists the result.
func (s *DriftService) CheckDrift(feature string, training, current []float64) models.DriftLog {
	result := computeDrift(feature, training, current)

	if err := s.db.Create(&result).Error; err != nil {
		logger.Error("Failed to log drift result", map[string]interface{}{
			"feature": feature,
			"error":   err.Error(),
		})
	}
	return result
}

// CheckRecent runs drift checks for all numeric features against the
// predictions made in the last N hours. Returns the results and the number
// of samples analyzed.
func (s *DriftService) CheckRecent(hours int) ([]models.DriftLog, int, error) {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	var predictions []models.Prediction
	if err := s.db.Where("timestamp >= ?", cutoff).Find(&predictions).Error; err != nil {
		return nil, 0, err
	}
	if len(predictions) == 0 {
		return []models.DriftLog{}, 0, nil
	}

	current := map[string][]float64{
		"income":         make([]float64, 0, len(predictions)),
		"age":            make([]float64, 0, len(predictions)),
		"loan_amount":    make([]float64, 0, len(predictions)),
		"existing_debts": make([]float64, 0, len(predictions)),
	}
	for _, p := range predictions {
		current["income"] = append(current["income"], p.Income)
		current["age"] = append(current["age"], float64(p.Age))
		current["loan_amount"] = append(current["loan_amount"], p.LoanAmount)
		current["existing_debts"] = append(current["existing_debts"], p.ExistingDebts)
	}

	results := make([]models.DriftLog, 0, len(DriftFeatures))
	for _, feature := range DriftFeatures {
		training := s.baseline[feature]
		if len(training) == 0 || len(current[feature]) == 0 {
			continue
		}
		results = append(results, s.CheckDrift(feature, training, current[feature]))
	}

	return results, len(predictions), nil
}

// History returns drift checks from the last N hours, newest first.
func (s *DriftService) History(hours int) ([]models.DriftLog, error) {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	var logs []models.DriftLog
	err := s.db.Where("timestamp >= ?", cutoff).
		Order("timestamp DESC").
		Find(&logs).Error
	return logs, err
}

// computeDrift is the pure computation behind CheckDrift.
func computeDrift(feature string, training, current []float64) models.DriftLog {
	ksDrift, ksStat, pValue := ksTest(training, current, ksAlpha)
	psi := calculatePSI(training, current, 10)

	trainingMean := mean(training)
	currentMean := mean(current)
	comparison := map[string]any{
		"training_mean": trainingMean,
		"current_mean":  currentMean,
		"training_std":  stdDev(training),
		"current_std":   stdDev(current),
		"mean_difference_percent": math.Abs(currentMean-trainingMean) /
			(trainingMean + 1e-10) * 100,
	}

	severity := classifyDriftSeverity(psi, ksDrift, ksStat)

	return models.DriftLog{
		Timestamp:     time.Now(),
		Feature:       feature,
		KSStatistic:   ksStat,
		PValue:        pValue,
		PSIScore:      psi,
		DriftDetected: ksDrift || psi > 0.2,
		Severity:      severity,
		Comparison:    comparison,
		Threshold:     ksAlpha,
		TestType:      "ks_test_and_psi",
	}
}

// classifyDriftSeverity applies the fixed severity cutoffs: high when
// PSI > 0.2 or the KS test fires with a statistic above 0.3, moderate when
// PSI > 0.1 or the KS test fires at all.
func classifyDriftSeverity(psi float64, ksDrift bool, ksStat float64) models.DriftSeverity {
	switch {
	case psi > 0.2 || (ksDrift && ksStat > 0.3):
		return models.DriftHighSeverity
	case psi > 0.1 || ksDrift:
		return models.DriftModerateSeverity
	default:
		return models.DriftLowSeverity
	}
}

// calculatePSI computes the Population Stability Index between an expected
// (baseline) and actual (production) sample. Bins are decile breakpoints of
// the expected sample; zero proportions are floored at 0.0001.
//
// Interpretation: < 0.1 no significant change, 0.1-0.2 moderate change,
// > 0.2 significant change.
func calculatePSI(expected, actual []float64, bins int) float64 {
	if len(expected) == 0 || len(actual) == 0 {
		return 0
	}

	breakpoints := uniqueFloats(percentileBreakpoints(expected, bins))
	if len(breakpoints) < 2 {
		return 0
	}

	expectedPct := binProportions(expected, breakpoints)
	actualPct := binProportions(actual, breakpoints)

	psi := 0.0
	for i := range expectedPct {
		e := math.Max(expectedPct[i], 0.0001)
		a := math.Max(actualPct[i], 0.0001)
		psi += (a - e) * math.Log(a/e)
	}

	return math.Abs(psi)
}

// ksTest runs a two-sample Kolmogorov-Smirnov test. Drift is flagged when
// the asymptotic p-value falls below alpha.
func ksTest(training, current []float64, alpha float64) (bool, float64, float64) {
	n1, n2 := len(training), len(current)
	if n1 == 0 || n2 == 0 {
		return false, 0, 1
	}

	a := append([]float64(nil), training...)
	b := append([]float64(nil), current...)
	sort.Float64s(a)
	sort.Float64s(b)

	// Walk both sorted samples tracking the max CDF gap.
	var i, j int
	var stat float64
	for i < n1 && j < n2 {
		d1, d2 := a[i], b[j]
		if d1 <= d2 {
			i++
		}
		if d2 <= d1 {
			j++
		}
		gap := math.Abs(float64(i)/float64(n1) - float64(j)/float64(n2))
		if gap > stat {
			stat = gap
		}
	}

	pValue := ksPValue(stat, n1, n2)
	return pValue < alpha, stat, pValue
}

// ksPValue is the asymptotic Kolmogorov distribution tail probability for a
// two-sample statistic.
func ksPValue(stat float64, n1, n2 int) float64 {
	en := math.Sqrt(float64(n1) * float64(n2) / float64(n1+n2))
	lambda := (en + 0.12 + 0.11/en) * stat

	if lambda <= 0 {
		return 1
	}

	sum := 0.0
	for j := 1; j <= 100; j++ {
		term := 2 * math.Pow(-1, float64(j-1)) * math.Exp(-2*lambda*lambda*float64(j)*float64(j))
		sum += term
		if math.Abs(term) < 1e-10 {
			break
		}
	}

	return math.Max(0, math.Min(1, sum))
}

func percentileBreakpoints(values []float64, bins int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	breakpoints := make([]float64, bins+1)
	for i := 0; i <= bins; i++ {
		breakpoints[i] = percentileOfSorted(sorted, float64(i)*100/float64(bins))
	}
	return breakpoints
}

// percentileOfSorted uses linear interpolation between closest ranks.
func percentileOfSorted(sorted []float64, pct float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := pct / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// binProportions counts values per bin. The final bin includes its upper
// edge so the maximum is not dropped.
func binProportions(values []float64, breakpoints []float64) []float64 {
	counts := make([]float64, len(breakpoints)-1)
	for _, v := range values {
		for i := 0; i < len(breakpoints)-1; i++ {
			last := i == len(breakpoints)-2
			if v >= breakpoints[i] && (v < breakpoints[i+1] || (last && v <= breakpoints[i+1])) {
				counts[i]++
				break
			}
		}
	}
	proportions := make([]float64, len(counts))
	for i, c := range counts {
		proportions[i] = c / float64(len(values))
	}
	return proportions
}

func uniqueFloats(values []float64) []float64 {
	out := values[:0:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)))
}
