package table

import (
	"fmt"
	"math/rand"
)

var (
	sampleNames = []string{
		"Acme Invoice", "Globex Retainer", "Initech License", "Umbrella Audit",
		"Stark Hardware", "Wayne Consulting", "Hooli Subscription", "Vandelay Import",
		"Wonka Catering", "Tyrell Prototype", "Cyberdyne Support", "Soylent Supplies",
	}
	sampleCategories = []string{"services", "software", "hardware", "travel", "office"}
	sampleStatuses   = []Status{StatusActive, StatusInactive, StatusPending}
)

// SampleRows generates n synthetic rows for seeding a fresh session.
// The same seed yields the same rows, which keeps reset behavior predictable.
func SampleRows(n int, seed int64) []Row {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		month := rng.Intn(12) + 1
		day := rng.Intn(28) + 1
		rows = append(rows, Row{
			ID:       fmt.Sprintf("seed-%03d", i+1),
			Name:     sampleNames[rng.Intn(len(sampleNames))],
			Amount:   float64(rng.Intn(99000)+1000) / 100,
			Status:   sampleStatuses[rng.Intn(len(sampleStatuses))],
			Date:     fmt.Sprintf("2024-%02d-%02d", month, day),
			Category: sampleCategories[rng.Intn(len(sampleCategories))],
		})
	}
	return rows
}
