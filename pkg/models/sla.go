package models

// SLAZone classifies a participant's dwell time at a step against the
// step's service-level thresholds.
type SLAZone string

const (
	SLAWithin   SLAZone = "within"
	SLAWarning  SLAZone = "warning"
	SLABreached SLAZone = "breached"
)

// ClassifySLA places elapsed dwell minutes into a zone for a step. Steps
// without an SLA always classify as within.
func ClassifySLA(step *Step, elapsedMinutes float64) SLAZone {
	if step == nil || !step.HasSLA() {
		return SLAWithin
	}

	duration := float64(*step.SLADurationMinutes)

	if elapsedMinutes > duration {
		return SLABreached
	}

	if elapsedMinutes > duration-float64(step.SLAWarningMinutes) {
		return SLAWarning
	}

	return SLAWithin
}

// SLAStats aggregates SLA zones across a workflow's active participants.
// AverageTimeAtStep covers every participant at a step, SLA-tracked or not.
type SLAStats struct {
	TotalWithSLA      int                `json:"total_with_sla"`
	WithinSLA         int                `json:"within_sla"`
	WarningZone       int                `json:"warning_zone"`
	Breached          int                `json:"breached"`
	AverageTimeAtStep map[string]float64 `json:"average_time_at_step"`
}

// OverdueParticipant is a participant past (or approaching) its step's SLA
// deadline, with how far past the relevant threshold it is.
type OverdueParticipant struct {
	Participant    *Participant `json:"participant"`
	Status         SLAZone      `json:"status"`
	MinutesOverdue float64      `json:"minutes_overdue"`
}
