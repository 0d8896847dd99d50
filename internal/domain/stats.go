package domain

// DownloadStats aggregates the outcome of a download run
type DownloadStats struct {
	Total     int   `json:"total"`
	Processed int   `json:"processed"`
	Errors    int   `json:"errors"`
	Size      int64 `json:"size"`
}

// Initialize resets the counters for a run of total items
func (s *DownloadStats) Initialize(total int) {
	*s = DownloadStats{Total: total}
}

// AddProcessed counts one finished item. size is only added on success.
func (s *DownloadStats) AddProcessed(size int64, failed bool) {
	s.Processed++
	if failed {
		s.Errors++
	} else {
		s.Size += size
	}
	if s.Processed > s.Total {
		s.Total = s.Processed
	}
}

// Combine returns the pairwise sum of two stats
func (s DownloadStats) Combine(other DownloadStats) DownloadStats {
	return DownloadStats{
		Total:     s.Total + other.Total,
		Processed: s.Processed + other.Processed,
		Errors:    s.Errors + other.Errors,
		Size:      s.Size + other.Size,
	}
}

// Failed reports whether any item failed
func (s DownloadStats) Failed() bool {
	return s.Errors > 0
}

// ValidationStats aggregates the outcome of a validation run
type ValidationStats struct {
	Total     int   `json:"total"`
	Processed int   `json:"processed"`
	Invalid   int   `json:"invalid"`
	Size      int64 `json:"size"`
}

func (s *ValidationStats) Initialize(total int) {
	*s = ValidationStats{Total: total}
}

// AddProcessed counts one checked item. size is only added for valid items.
func (s *ValidationStats) AddProcessed(size int64, invalid bool) {
	s.Processed++
	if invalid {
		s.Invalid++
	} else {
		s.Size += size
	}
	if s.Processed > s.Total {
		s.Total = s.Processed
	}
}

func (s ValidationStats) Combine(other ValidationStats) ValidationStats {
	return ValidationStats{
		Total:     s.Total + other.Total,
		Processed: s.Processed + other.Processed,
		Invalid:   s.Invalid + other.Invalid,
		Size:      s.Size + other.Size,
	}
}

func (s ValidationStats) Failed() bool {
	return s.Invalid > 0
}
