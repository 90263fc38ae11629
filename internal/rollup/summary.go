package rollup

import "hourglass/internal/domain"

type Tally struct {
	Completed int `json:"completed"`
	Count     int `json:"count"`
}

// Summary counts day objectives for one user and for everyone.
type Summary struct {
	User     Tally `json:"user"`
	Everyone Tally `json:"everyone"`
}

// Summarize tallies objectives, ignoring scratched ones. An objective counts
// as completed only when its progress is exactly 1.
func Summarize(objectives []domain.Objective, userID string) Summary {
	var s Summary
	for _, o := range objectives {
		if o.Scratched {
			continue
		}
		done := 0
		if o.Completed() {
			done = 1
		}
		s.Everyone.Count++
		s.Everyone.Completed += done
		if userID != "" && o.OwnedBy(userID) {
			s.User.Count++
			s.User.Completed += done
		}
	}
	return s
}
