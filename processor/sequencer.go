package processor

import "satcatflow/models"

// Take returns the first min(len(records), limit) records in their original
// order. A negative limit is treated as zero. The result shares the backing
// array with records.
func Take(records []models.RawRecord, limit int) []models.RawRecord {
	if limit < 0 {
		limit = 0
	}
	if limit > len(records) {
		limit = len(records)
	}
	return records[:limit]
}
