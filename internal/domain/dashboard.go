package domain

import "time"

// DashboardSummary is a read-only rollup over live tickets.
type DashboardSummary struct {
	TotalTickets           int                    `json:"total_tickets"`
	OpenTickets            int                    `json:"open_tickets"`
	ByStatus               map[TicketStatus]int   `json:"by_status"`
	ByClassification       map[Classification]int `json:"by_classification"`
	ByRegion               map[string]int         `json:"by_region"`
	AgingDistribution      map[Classification]int `json:"aging_distribution"`
	ResolvedCount          int                    `json:"resolved_count"`
	WithinSLACount         int                    `json:"within_sla_count"`
	SLACompliancePercent   float64                `json:"sla_compliance_percent"`
	AverageResolutionHours float64                `json:"average_resolution_hours"`
	GeneratedAt            time.Time              `json:"generated_at"`
}
