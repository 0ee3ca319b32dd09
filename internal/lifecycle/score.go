package lifecycle

import (
	"regexp"
	"strconv"
	"strings"

	"leaseflow/internal/models"
)

// MaxScore is the ceiling of the eligibility score.
const MaxScore = 100

// Sub-score caps. The five caps sum to MaxScore.
const (
	incomeScoreCap        = 25
	creditScoreCap        = 25
	rentalHistoryScoreCap = 20
	employmentScoreCap    = 15
	documentsScoreCap     = 15
)

// Qualitative flags accumulated across the scoring rules.
const (
	FlagLowIncome            = "low_income"
	FlagNoIncomeProvided     = "no_income_provided"
	FlagNoCreditCheck        = "no_credit_check"
	FlagLimitedRentalHistory = "limited_rental_history"
	FlagPreviousEviction     = "previous_eviction"
	FlagUnemployed           = "unemployed"
	FlagMissingDocuments     = "missing_documents"
)

// ScoreResult is the outcome of one scoring pass. TotalScore always
// equals the sum of the breakdown sub-scores and MaxScore is always 100.
type ScoreResult struct {
	TotalScore int                   `json:"totalScore"`
	MaxScore   int                   `json:"maxScore"`
	Breakdown  models.ScoreBreakdown `json:"breakdown"`
}

// CalculateScore derives the applicant eligibility score from
// self-reported data. Pure function of its input: no I/O, deterministic,
// and malformed input degrades to zero values instead of failing.
func CalculateScore(data models.ApplicationData, coApplicants []models.CoApplicant) ScoreResult {
	flags := newFlagSet()

	income := scoreIncome(data, coApplicants, flags)
	credit := scoreCredit(data, flags)
	rental := scoreRentalHistory(data, flags)
	employment := scoreEmployment(data, flags)
	documents := scoreDocuments(data, flags)

	breakdown := models.ScoreBreakdown{
		Income:        income,
		Credit:        credit,
		RentalHistory: rental,
		Employment:    employment,
		Documents:     documents,
		Flags:         flags.values(),
	}

	return ScoreResult{
		TotalScore: breakdown.Sum(),
		MaxScore:   MaxScore,
		Breakdown:  breakdown,
	}
}

// scoreIncome combines the primary applicant's monthly income with the
// sum of all co-applicants' incomes. Max 25 points.
func scoreIncome(data models.ApplicationData, coApplicants []models.CoApplicant, flags *flagSet) int {
	combined := data.MonthlyIncome
	for _, co := range coApplicants {
		combined += co.MonthlyIncome
	}

	switch {
	case combined >= 5000:
		return 25
	case combined >= 4000:
		return 22
	case combined >= 3000:
		return 18
	case combined >= 2000:
		return 12
	case combined > 0:
		flags.add(FlagLowIncome)
		return 5
	default:
		flags.add(FlagNoIncomeProvided)
		return 0
	}
}

// scoreCredit is a placeholder pending real credit-bureau integration:
// presence of an identifier for a credit check scores 20, absence 10.
func scoreCredit(data models.ApplicationData, flags *flagSet) int {
	if strings.TrimSpace(data.SSN) != "" {
		return 20
	}
	flags.add(FlagNoCreditCheck)
	return 10
}

// scoreRentalHistory scores years of renting, max 20 points. An eviction
// on record subtracts 15, floored at 0.
func scoreRentalHistory(data models.ApplicationData, flags *flagSet) int {
	years := ParseDurationYears(data.RentalHistoryDuration)

	var score int
	switch {
	case years >= 3:
		score = 20
	case years >= 2:
		score = 16
	case years >= 1:
		score = 12
	case years > 0:
		score = 8
	default:
		flags.add(FlagLimitedRentalHistory)
		score = 5
	}

	if data.HasEviction {
		flags.add(FlagPreviousEviction)
		score -= 15
		if score < 0 {
			score = 0
		}
	}

	return score
}

// scoreEmployment scores employment tenure, max 15 points. The applicant
// counts as employed unless explicitly marked unemployed.
func scoreEmployment(data models.ApplicationData, flags *flagSet) int {
	employed := !strings.EqualFold(strings.TrimSpace(data.EmploymentStatus), "unemployed")
	if !employed {
		flags.add(FlagUnemployed)
		return 3
	}

	years := ParseDurationYears(data.EmploymentDuration)
	switch {
	case years >= 2:
		return 15
	case years >= 1:
		return 12
	default:
		return 8
	}
}

// scoreDocuments counts the three required document kinds (identity,
// proof of income, employment verification), max 15 points.
func scoreDocuments(data models.ApplicationData, flags *flagSet) int {
	byKind := make(map[models.DocumentKind]string, len(data.Documents))
	for _, doc := range data.Documents {
		// A verified document outranks a merely uploaded duplicate.
		if byKind[doc.Kind] != "verified" {
			byKind[doc.Kind] = doc.Status
		}
	}

	uploaded, verified := 0, 0
	for _, kind := range models.RequiredDocumentKinds {
		switch byKind[kind] {
		case "verified":
			uploaded++
			verified++
		case "uploaded":
			uploaded++
		}
	}

	switch {
	case verified >= 3:
		return 15
	case uploaded >= 3:
		return 12
	case uploaded >= 2:
		return 8
	case uploaded >= 1:
		return 5
	default:
		flags.add(FlagMissingDocuments)
		return 0
	}
}

var (
	yearPattern  = regexp.MustCompile(`(\d+)\s*(?:years?|yrs?)`)
	monthPattern = regexp.MustCompile(`(\d+)\s*(?:months?|mos?)`)
	barePattern  = regexp.MustCompile(`^\s*(\d+)\s*$`)
)

// ParseDurationYears parses a free-text duration such as "3 years" or
// "18 months" into whole years. The year pattern wins over the month
// pattern; months divide by 12 and floor. A bare number without a unit
// counts as years. Absent or non-numeric input is zero duration.
func ParseDurationYears(raw string) int {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0
	}

	if m := yearPattern.FindStringSubmatch(s); m != nil {
		years, err := strconv.Atoi(m[1])
		if err == nil && years >= 0 {
			return years
		}
		return 0
	}

	if m := monthPattern.FindStringSubmatch(s); m != nil {
		months, err := strconv.Atoi(m[1])
		if err == nil && months >= 0 {
			return months / 12
		}
		return 0
	}

	if m := barePattern.FindStringSubmatch(s); m != nil {
		years, err := strconv.Atoi(m[1])
		if err == nil && years >= 0 {
			return years
		}
	}

	return 0
}

// flagSet accumulates flags without duplicates, preserving first-seen
// order so results are deterministic.
type flagSet struct {
	seen  map[string]bool
	order []string
}

func newFlagSet() *flagSet {
	return &flagSet{seen: make(map[string]bool)}
}

func (f *flagSet) add(flag string) {
	if f.seen[flag] {
		return
	}
	f.seen[flag] = true
	f.order = append(f.order, flag)
}

func (f *flagSet) values() []string {
	if len(f.order) == 0 {
		return nil
	}
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}
