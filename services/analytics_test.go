package services

import (
	"testing"
	"time"
)

func TestComputePerformanceEmpty(t *testing.T) {
	result := computePerformance(nil)

	if result.TotalGrades != 0 || result.PassRate != 0 {
		t.Errorf("got %d grades, pass rate %v; want zeros", result.TotalGrades, result.PassRate)
	}
	// Distribution always carries every letter so charts have stable keys
	for _, letter := range []string{"O", "A+", "F", "Ab"} {
		if _, ok := result.GradeDistribution[letter]; !ok {
			t.Errorf("distribution missing letter %q", letter)
		}
	}
}

func TestComputePerformance(t *testing.T) {
	rows := []gradeRow{
		{Total: 95, Points: 10, Letter: "O"},
		{Total: 61, Points: 7, Letter: "B+"},
		{Total: 42, Points: 4, Letter: "P"},
		{Total: 20, Points: 0, Letter: "F"},
	}

	result := computePerformance(rows)

	if result.TotalGrades != 4 {
		t.Errorf("TotalGrades = %d, want 4", result.TotalGrades)
	}
	if result.PassingGrades != 3 {
		t.Errorf("PassingGrades = %d, want 3 (points >= 4)", result.PassingGrades)
	}
	if result.PassRate != 75.0 {
		t.Errorf("PassRate = %v, want 75.0", result.PassRate)
	}
	if result.HighestTotal != 95 || result.LowestTotal != 20 {
		t.Errorf("range = (%v, %v), want (95, 20)", result.HighestTotal, result.LowestTotal)
	}
	if result.AverageTotal != 54.5 {
		t.Errorf("AverageTotal = %v, want 54.5", result.AverageTotal)
	}
	if result.AveragePoints != 5.25 {
		t.Errorf("AveragePoints = %v, want 5.25", result.AveragePoints)
	}
	if result.GradeDistribution["O"] != 1 || result.GradeDistribution["F"] != 1 {
		t.Errorf("distribution = %v", result.GradeDistribution)
	}
}

func TestComputePerformancePassRateRounding(t *testing.T) {
	// 1 of 3 passing: 33.333...% rounds to 33.33
	rows := []gradeRow{
		{Total: 42, Points: 4, Letter: "P"},
		{Total: 20, Points: 0, Letter: "F"},
		{Total: 10, Points: 0, Letter: "F"},
	}

	result := computePerformance(rows)

	if result.PassRate != 33.33 {
		t.Errorf("PassRate = %v, want 33.33", result.PassRate)
	}
}

func TestBucketByMonth(t *testing.T) {
	type row = struct {
		CreatedAt   time.Time
		IsPublished bool
		GradePoints float64
	}

	now := time.Now().UTC()
	lastMonth := now.AddDate(0, -1, 0)

	rows := []row{
		{CreatedAt: now, IsPublished: true, GradePoints: 10},
		{CreatedAt: now, IsPublished: false, GradePoints: 0},
		{CreatedAt: lastMonth, IsPublished: true, GradePoints: 8},
	}

	buckets := bucketByMonth(rows, now.AddDate(0, -3, 0), 3)

	if len(buckets) < 3 {
		t.Fatalf("got %d buckets for a 3 month window, want at least 3", len(buckets))
	}

	// Buckets are oldest-first and continuous
	for i := 1; i < len(buckets); i++ {
		if buckets[i].Month <= buckets[i-1].Month {
			t.Fatalf("buckets out of order: %s before %s", buckets[i-1].Month, buckets[i].Month)
		}
	}

	byMonth := make(map[string]TrendBucket)
	for _, b := range buckets {
		byMonth[b.Month] = b
	}

	current := byMonth[now.Format("2006-01")]
	if current.GradesEntered != 2 || current.Published != 1 {
		t.Errorf("current month = %+v, want 2 entered 1 published", current)
	}
	if current.AveragePoints != 5.0 {
		t.Errorf("current month AveragePoints = %v, want 5.0", current.AveragePoints)
	}
	if current.PassRate != 50.0 {
		t.Errorf("current month PassRate = %v, want 50.0", current.PassRate)
	}

	previous := byMonth[lastMonth.Format("2006-01")]
	if previous.GradesEntered != 1 || previous.AveragePoints != 8.0 {
		t.Errorf("previous month = %+v, want 1 entered avg 8.0", previous)
	}
}

func TestBucketByMonthEmptyMonthsStayZero(t *testing.T) {
	buckets := bucketByMonth(nil, time.Now().AddDate(0, -6, 0), 6)

	for _, b := range buckets {
		if b.GradesEntered != 0 || b.AveragePoints != 0 || b.PassRate != 0 {
			t.Errorf("empty bucket %s carries data: %+v", b.Month, b)
		}
	}
}
