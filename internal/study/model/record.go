package model

// RecordStatus is the kind of a daily record.
type RecordStatus string

const (
	// StatusPass marks a judged submission that met the day's criteria.
	StatusPass RecordStatus = "PASS"
	// StatusImage marks a manually submitted excuse standing in for a submission.
	StatusImage RecordStatus = "IMAGE"
)

func (s RecordStatus) Valid() bool {
	return s == StatusPass || s == StatusImage
}

// StatusNone marks a user-day without any record. It only appears in day summaries.
const StatusNone RecordStatus = "NONE"
