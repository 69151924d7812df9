package models

import "time"

// RetentionSnapshot holds the active-user counts computed by one aggregation run
type RetentionSnapshot struct {
	ID                 string    `json:"id,omitempty"`
	Date               string    `json:"date"`
	Timestamp          time.Time `json:"timestamp"`
	DailyActiveUsers   int       `json:"dailyActiveUsers"`
	WeeklyActiveUsers  int       `json:"weeklyActiveUsers"`
	MonthlyActiveUsers int       `json:"monthlyActiveUsers"`
}

// ToData converts the snapshot into document fields
func (s *RetentionSnapshot) ToData() map[string]interface{} {
	return map[string]interface{}{
		"date":               s.Date,
		"timestamp":          s.Timestamp,
		"dailyActiveUsers":   s.DailyActiveUsers,
		"weeklyActiveUsers":  s.WeeklyActiveUsers,
		"monthlyActiveUsers": s.MonthlyActiveUsers,
	}
}
