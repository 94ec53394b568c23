package domain

// DefaultApplicationCriticality is used while applications carry no criticality of their own.
const DefaultApplicationCriticality = 3.0

const (
	impactWeight      = 0.6
	criticalityWeight = 0.4

	MinPriority = 1
	MaxPriority = 5
)

// PriorityScore weights the number of impacted users against application criticality.
func PriorityScore(impactCount int) float64 {
	return float64(impactCount)*impactWeight + DefaultApplicationCriticality*criticalityWeight
}

// ClampPriority bounds a requested priority to [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}
