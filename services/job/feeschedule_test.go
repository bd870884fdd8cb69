package job

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestResolveOffers(t *testing.T) {
	tests := []struct {
		name          string
		job           Job
		gender        string
		wantPartner   float64
		wantRecruiter float64
	}{
		{
			name:        "base fee times multiplier",
			job:         Job{PartnerFeeAmount: 500, PromoMultiplier: 1.2},
			gender:      "female",
			wantPartner: 600,
		},
		{
			name: "male bonus applied",
			job: Job{
				PartnerFeeAmount: 500,
				PromoMultiplier:  1.2,
				MaleBonusEnabled: true,
				MaleBonusPercent: 10,
			},
			gender:      "male",
			wantPartner: 660,
		},
		{
			name: "male bonus skipped for other genders",
			job: Job{
				PartnerFeeAmount: 500,
				PromoMultiplier:  1.2,
				MaleBonusEnabled: true,
				MaleBonusPercent: 10,
			},
			gender:      "female",
			wantPartner: 600,
		},
		{
			name: "bonus flag without percent is inert",
			job: Job{
				PartnerFeeAmount: 500,
				PromoMultiplier:  1.2,
				MaleBonusEnabled: true,
			},
			gender:      "male",
			wantPartner: 600,
		},
		{
			name:        "unset multiplier defaults to neutral",
			job:         Job{PartnerFeeAmount: 300},
			gender:      "male",
			wantPartner: 300,
		},
		{
			name:        "job without a fee schedule resolves to zero",
			job:         Job{PromoMultiplier: 1.5},
			gender:      "male",
			wantPartner: 0,
		},
		{
			name:          "recruiter offer carries the raw amount",
			job:           Job{PartnerFeeAmount: 500, RecruiterFeeAmount: 120, PromoMultiplier: 2},
			gender:        "female",
			wantPartner:   1000,
			wantRecruiter: 120,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			partner, recruiter := ResolveOffers(&tt.job, tt.gender)
			require.InDelta(t, tt.wantPartner, partner, 0.0001)
			require.InDelta(t, tt.wantRecruiter, recruiter, 0.0001)
		})
	}
}
