package job

const genderMale = "male"

// Multiplier returns the job's promo multiplier, treating the unset zero
// value as the neutral 1.0.
func (j *Job) Multiplier() float64 {
	if j.PromoMultiplier == 0 {
		return 1.0
	}
	return j.PromoMultiplier
}

// ResolveOffers computes the commission offers frozen on a candidate at
// submission time. A job with zero fee fields resolves to zero offers, not
// an error. The recruiter offer is the raw fee amount, kept for historical
// data integrity.
func ResolveOffers(j *Job, gender string) (partnerOffer, recruiterOffer float64) {
	partnerOffer = j.PartnerFeeAmount * j.Multiplier()

	if j.MaleBonusEnabled && gender == genderMale && j.MaleBonusPercent > 0 {
		partnerOffer *= 1 + j.MaleBonusPercent/100
	}

	return partnerOffer, j.RecruiterFeeAmount
}
