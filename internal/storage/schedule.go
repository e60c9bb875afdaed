package storage

import (
	"context"
	"fmt"
	"math"
	"time"
)

// SchedulePeriod holds practice-schedule stats for one time period. Practice
// time averages are circular so routines straddling midnight come out right.
type SchedulePeriod struct {
	Period                   string   `json:"period"`
	Sessions                 int      `json:"sessions"`
	ActiveDays               int      `json:"active_days"`
	AvgDurationSec           float64  `json:"avg_duration_sec"`
	AvgPostureScore          *float64 `json:"avg_posture_score,omitempty"`
	AvgPracticeTime          string   `json:"avg_practice_time"`
	PracticeConsistencyStdHr float64  `json:"practice_consistency_stddev_hr"`
}

// GetScheduleSummary returns per-period session counts plus the circular mean
// and spread of the time of day the user practices. A tight spread means a
// settled routine.
func (db *DB) GetScheduleSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]SchedulePeriod, error) {
	trunc := truncInterval(bucket)

	// Query 1: Aggregated session stats per period
	aggRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, started_at)::date AS period,
		        COUNT(*)::int AS sessions,
		        COUNT(DISTINCT started_at::date)::int AS active_days,
		        AVG(duration_seconds),
		        AVG(posture_score)
		 FROM exercise_sessions
		 WHERE started_at >= $2 AND started_at < $3 AND user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		trunc, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying schedule summary: %w", err)
	}
	defer aggRows.Close()

	periodMap := make(map[string]*SchedulePeriod)
	var periodOrder []string

	for aggRows.Next() {
		var periodTime time.Time
		var sp SchedulePeriod
		if err := aggRows.Scan(&periodTime, &sp.Sessions, &sp.ActiveDays, &sp.AvgDurationSec, &sp.AvgPostureScore); err != nil {
			return nil, fmt.Errorf("scanning schedule summary: %w", err)
		}
		sp.Period = periodTime.Format("2006-01-02")
		periodMap[sp.Period] = &sp
		periodOrder = append(periodOrder, sp.Period)
	}
	if err := aggRows.Err(); err != nil {
		return nil, err
	}

	// Query 2: Raw start times for circular mean computation
	timingRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, started_at)::date AS period, started_at
		 FROM exercise_sessions
		 WHERE started_at >= $2 AND started_at < $3 AND user_id = $4
		 ORDER BY period, started_at`,
		trunc, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying practice times: %w", err)
	}
	defer timingRows.Close()

	// Group start times by period
	hoursByPeriod := make(map[string][]float64)
	for timingRows.Next() {
		var period, startedAt time.Time
		if err := timingRows.Scan(&period, &startedAt); err != nil {
			return nil, fmt.Errorf("scanning practice time: %w", err)
		}
		key := period.Format("2006-01-02")
		hoursByPeriod[key] = append(hoursByPeriod[key], timeToHourOfDay(startedAt))
	}
	if err := timingRows.Err(); err != nil {
		return nil, err
	}

	// Compute circular mean practice time per period
	for key, hours := range hoursByPeriod {
		sp, ok := periodMap[key]
		if !ok {
			continue
		}

		avg, std := circularMeanStd(hours)
		sp.AvgPracticeTime = hoursToHHMM(avg)
		sp.PracticeConsistencyStdHr = math.Round(std*100) / 100
	}

	// Assemble result
	result := make([]SchedulePeriod, 0, len(periodOrder))
	for _, key := range periodOrder {
		result = append(result, *periodMap[key])
	}
	return result, nil
}

// timeToHourOfDay extracts fractional hour of day from a time.Time.
func timeToHourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0 + float64(t.Second())/3600.0
}

// circularMeanStd computes the circular mean and standard deviation for times
// expressed as hours (0–24). This handles the midnight wrap correctly
// (e.g., 23:00 and 01:00 average to 00:00, not 12:00).
func circularMeanStd(hours []float64) (mean, std float64) {
	if len(hours) == 0 {
		return 0, 0
	}

	var sinSum, cosSum float64
	for _, h := range hours {
		rad := h / 24.0 * 2 * math.Pi
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
	}

	n := float64(len(hours))
	sinAvg := sinSum / n
	cosAvg := cosSum / n

	// Circular mean
	meanRad := math.Atan2(sinAvg, cosAvg)
	if meanRad < 0 {
		meanRad += 2 * math.Pi
	}
	mean = meanRad / (2 * math.Pi) * 24.0

	// Circular standard deviation
	r := math.Sqrt(sinAvg*sinAvg + cosAvg*cosAvg)
	if r > 1 {
		r = 1
	}
	// Circular variance = 1 - R, std = sqrt(-2 * ln(R)) converted to hours
	if r > 0 {
		std = math.Sqrt(-2*math.Log(r)) / (2 * math.Pi) * 24.0
	}

	return mean, std
}

// hoursToHHMM formats fractional hours (0–24) as "HH:MM".
func hoursToHHMM(h float64) string {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	hours := int(h)
	minutes := int(math.Round((h - float64(hours)) * 60))
	if minutes == 60 {
		hours++
		minutes = 0
	}
	if hours >= 24 {
		hours -= 24
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}
