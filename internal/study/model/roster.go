package model

// RosterEntry is a tracked user. Exceptional users get an automatic
// excuse record on weekdays instead of the submission requirement.
type RosterEntry struct {
	Handle      string `yaml:"handle" json:"userId"`
	Name        string `yaml:"name" json:"name"`
	Exceptional bool   `yaml:"exceptional" json:"exceptional"`
}

// Roster is the fixed, ordered list of tracked users.
type Roster []RosterEntry

// Find returns the entry for handle.
func (r Roster) Find(handle string) (RosterEntry, bool) {
	for _, entry := range r {
		if entry.Handle == handle {
			return entry, true
		}
	}
	return RosterEntry{}, false
}
