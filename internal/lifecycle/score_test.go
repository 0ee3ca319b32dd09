package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaseflow/internal/models"
)

func TestCalculateScore_CombinedIncome(t *testing.T) {
	// 5200 alone is already top tier; the co-applicant confirms the
	// combined rule rather than changing the outcome.
	data := models.ApplicationData{MonthlyIncome: 5200}
	coApplicants := []models.CoApplicant{{MonthlyIncome: 1200}}

	result := CalculateScore(data, coApplicants)
	assert.Equal(t, 25, result.Breakdown.Income)

	// 3200 + 1200 crosses the 4000 tier only when combined.
	data.MonthlyIncome = 3200
	result = CalculateScore(data, coApplicants)
	assert.Equal(t, 22, result.Breakdown.Income)

	alone := CalculateScore(data, nil)
	assert.Equal(t, 18, alone.Breakdown.Income)
}

func TestCalculateScore_IncomeTiers(t *testing.T) {
	tests := []struct {
		name      string
		income    float64
		wantScore int
		wantFlag  string
	}{
		{"top tier", 5000, 25, ""},
		{"second tier", 4999, 22, ""},
		{"third tier", 3000, 18, ""},
		{"fourth tier", 2000, 12, ""},
		{"low income", 1200, 5, FlagLowIncome},
		{"no income", 0, 0, FlagNoIncomeProvided},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateScore(models.ApplicationData{MonthlyIncome: tt.income}, nil)
			assert.Equal(t, tt.wantScore, result.Breakdown.Income)
			if tt.wantFlag != "" {
				assert.Contains(t, result.Breakdown.Flags, tt.wantFlag)
			}
		})
	}
}

func TestCalculateScore_Credit(t *testing.T) {
	withSSN := CalculateScore(models.ApplicationData{MonthlyIncome: 3000, SSN: "123-45-6789"}, nil)
	assert.Equal(t, 20, withSSN.Breakdown.Credit)
	assert.NotContains(t, withSSN.Breakdown.Flags, FlagNoCreditCheck)

	withoutSSN := CalculateScore(models.ApplicationData{MonthlyIncome: 3000}, nil)
	assert.Equal(t, 10, withoutSSN.Breakdown.Credit)
	assert.Contains(t, withoutSSN.Breakdown.Flags, FlagNoCreditCheck)
}

func TestCalculateScore_RentalHistory(t *testing.T) {
	tests := []struct {
		duration  string
		wantScore int
	}{
		{"5 years", 20},
		{"3 years", 20},
		{"2 years", 16},
		{"1 year", 12},
		{"18 months", 12},
		{"", 5},
		{"6 months", 5},
	}

	for _, tt := range tests {
		result := CalculateScore(models.ApplicationData{RentalHistoryDuration: tt.duration}, nil)
		assert.Equalf(t, tt.wantScore, result.Breakdown.RentalHistory, "duration %q", tt.duration)
	}
}

func TestCalculateScore_EvictionPenaltyFlooredAtZero(t *testing.T) {
	long := CalculateScore(models.ApplicationData{RentalHistoryDuration: "4 years", HasEviction: true}, nil)
	assert.Equal(t, 5, long.Breakdown.RentalHistory)
	assert.Contains(t, long.Breakdown.Flags, FlagPreviousEviction)

	short := CalculateScore(models.ApplicationData{RentalHistoryDuration: "1 year", HasEviction: true}, nil)
	assert.Equal(t, 0, short.Breakdown.RentalHistory)
}

func TestCalculateScore_Employment(t *testing.T) {
	// "18 months" is one whole year of tenure.
	result := CalculateScore(models.ApplicationData{
		EmploymentStatus:   "employed",
		EmploymentDuration: "18 months",
	}, nil)
	assert.Equal(t, 12, result.Breakdown.Employment)

	longTenure := CalculateScore(models.ApplicationData{EmploymentDuration: "2 years"}, nil)
	assert.Equal(t, 15, longTenure.Breakdown.Employment)

	// Employed with no stated tenure still scores the base tier.
	fresh := CalculateScore(models.ApplicationData{EmploymentStatus: "self-employed"}, nil)
	assert.Equal(t, 8, fresh.Breakdown.Employment)

	unemployed := CalculateScore(models.ApplicationData{EmploymentStatus: "Unemployed"}, nil)
	assert.Equal(t, 3, unemployed.Breakdown.Employment)
	assert.Contains(t, unemployed.Breakdown.Flags, FlagUnemployed)
}

func TestCalculateScore_Documents(t *testing.T) {
	verified := func(kind models.DocumentKind) models.Document {
		return models.Document{Kind: kind, Status: "verified"}
	}
	uploaded := func(kind models.DocumentKind) models.Document {
		return models.Document{Kind: kind, Status: "uploaded"}
	}

	tests := []struct {
		name      string
		documents []models.Document
		wantScore int
		wantFlag  bool
	}{
		{
			"all verified",
			[]models.Document{
				verified(models.DocumentIdentity),
				verified(models.DocumentProofOfIncome),
				verified(models.DocumentEmploymentVerification),
			},
			15, false,
		},
		{
			"all uploaded",
			[]models.Document{
				uploaded(models.DocumentIdentity),
				uploaded(models.DocumentProofOfIncome),
				uploaded(models.DocumentEmploymentVerification),
			},
			12, false,
		},
		{"two uploaded", []models.Document{uploaded(models.DocumentIdentity), uploaded(models.DocumentProofOfIncome)}, 8, false},
		{"one uploaded", []models.Document{uploaded(models.DocumentIdentity)}, 5, false},
		{"none", nil, 0, true},
		{
			// Duplicate uploads of one kind do not substitute for the
			// other required kinds.
			"duplicates of one kind",
			[]models.Document{uploaded(models.DocumentIdentity), uploaded(models.DocumentIdentity), uploaded(models.DocumentIdentity)},
			5, false,
		},
		{
			// A verified copy outranks an uploaded duplicate of the same kind.
			"verified outranks uploaded",
			[]models.Document{
				uploaded(models.DocumentIdentity),
				verified(models.DocumentIdentity),
				verified(models.DocumentProofOfIncome),
				verified(models.DocumentEmploymentVerification),
			},
			15, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateScore(models.ApplicationData{Documents: tt.documents}, nil)
			assert.Equal(t, tt.wantScore, result.Breakdown.Documents)
			if tt.wantFlag {
				assert.Contains(t, result.Breakdown.Flags, FlagMissingDocuments)
			}
		})
	}
}

func TestCalculateScore_TotalInvariants(t *testing.T) {
	full := CalculateScore(models.ApplicationData{
		MonthlyIncome:         6000,
		SSN:                   "123-45-6789",
		RentalHistoryDuration: "4 years",
		EmploymentStatus:      "employed",
		EmploymentDuration:    "3 years",
		Documents: []models.Document{
			{Kind: models.DocumentIdentity, Status: "verified"},
			{Kind: models.DocumentProofOfIncome, Status: "verified"},
			{Kind: models.DocumentEmploymentVerification, Status: "verified"},
		},
	}, nil)

	assert.Equal(t, full.Breakdown.Sum(), full.TotalScore)
	assert.Equal(t, MaxScore, full.MaxScore)
	assert.LessOrEqual(t, full.TotalScore, MaxScore)
	assert.Empty(t, full.Breakdown.Flags)

	empty := CalculateScore(models.ApplicationData{}, nil)
	assert.Equal(t, empty.Breakdown.Sum(), empty.TotalScore)
	assert.GreaterOrEqual(t, empty.TotalScore, 0)
}

func TestCalculateScore_Deterministic(t *testing.T) {
	data := models.ApplicationData{
		MonthlyIncome:         1500,
		RentalHistoryDuration: "6 months",
		EmploymentStatus:      "unemployed",
	}

	first := CalculateScore(data, nil)
	second := CalculateScore(data, nil)
	require.Equal(t, first, second)
	assert.Equal(t, first.Breakdown.Flags, second.Breakdown.Flags)
}

func TestParseDurationYears(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"3 years", 3},
		{"1 year", 1},
		{"2 yrs", 2},
		{"18 months", 1},
		{"24 months", 2},
		{"6 mos", 0},
		{"4", 4},
		{"  5  ", 5},
		{"", 0},
		{"unknown", 0},
		{"-2 years", 2}, // sign is not part of the pattern; digits win
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, ParseDurationYears(tt.raw), "input %q", tt.raw)
	}
}
