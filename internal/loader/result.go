package loader

import "fmt"

// Status is the outcome of loading one record.
type Status int

const (
	// StatusInserted means the song row was created.
	StatusInserted Status = iota
	// StatusExisting means the song was already stored; links were re-asserted.
	StatusExisting
	// StatusSkipped means the record was not loadable and nothing was written.
	StatusSkipped
	// StatusFailed means the store rejected the record and its writes were rolled back.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInserted:
		return "inserted"
	case StatusExisting:
		return "existing"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText makes statuses readable in the YAML load report.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RecordResult describes what happened to one record.
type RecordResult struct {
	Song   string `yaml:"song"`
	Artist string `yaml:"artist"`
	Status Status `yaml:"status"`
	Reason string `yaml:"reason,omitempty"`
}

// Summary aggregates record results for a load run.
type Summary struct {
	Inserted int
	Existing int
	Skipped  int
	Failed   int
	Results  []RecordResult
}

func (s *Summary) add(r RecordResult) {
	switch r.Status {
	case StatusInserted:
		s.Inserted++
	case StatusExisting:
		s.Existing++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

// Total is the number of records processed.
func (s Summary) Total() int {
	return s.Inserted + s.Existing + s.Skipped + s.Failed
}

// Problems returns the skipped and failed records, in input order.
func (s Summary) Problems() []RecordResult {
	var problems []RecordResult
	for _, r := range s.Results {
		if r.Status == StatusSkipped || r.Status == StatusFailed {
			problems = append(problems, r)
		}
	}
	return problems
}
