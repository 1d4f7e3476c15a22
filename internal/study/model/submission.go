package model

// Submission is one accepted submission as reported by the judge site.
// SubmitTime keeps the site's display format, e.g. "2025년 7월 11일 02:32:32".
type Submission struct {
	ProblemID  int64  `json:"problemId"`
	SubmitTime string `json:"submitTime"`
}

// ProblemMeta is the localized title and difficulty level of a problem.
type ProblemMeta struct {
	ProblemID int64  `json:"problemId"`
	TitleKo   string `json:"titleKo"`
	Level     int    `json:"level"`
}

// UserSubmissions groups the raw fetch result for one handle.
type UserSubmissions struct {
	Handle      string       `json:"handle"`
	Submissions []Submission `json:"submissions"`
	FetchError  string       `json:"fetchError,omitempty"`
}
