package models

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// AppendID adds id to ids unless it is already present.
func AppendID(ids []string, id string) ([]string, bool) {
	if containsID(ids, id) {
		return ids, false
	}
	return append(ids, id), true
}

// RemoveID returns ids without any occurrence of id, preserving order.
func RemoveID(ids []string, id string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	removed := false
	for _, candidate := range ids {
		if candidate == id {
			removed = true
			continue
		}
		out = append(out, candidate)
	}
	return out, removed
}

// DedupeIDs drops repeated ids keeping the first occurrence.
func DedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// EnrollmentLink is the pair of records written by an enroll or unenroll.
type EnrollmentLink struct {
	Student  Student       `json:"student"`
	Schedule ClassSchedule `json:"schedule"`
}
