package report

// Aggregation rows. Minutes are summed durations over the bucket.

type DailyRow struct {
	Date        string `json:"date"`
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	Minutes     int    `json:"minutes"`
}

type WeeklyRow struct {
	WeekStart   string `json:"week_start"`
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	Minutes     int    `json:"minutes"`
}

type MonthlyRow struct {
	Month       string `json:"month"`
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	Minutes     int    `json:"minutes"`
}

type LeaderboardRow struct {
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	Minutes     int    `json:"minutes"`
}

// Range is an inclusive [Start, End] date window, YYYY-MM-DD.
type Range struct {
	Start string
	End   string
}
