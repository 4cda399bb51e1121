package attend

type Attend int32

const (
	UNKNOWN Attend = 0
	Present Attend = 1
	Absent  Attend = 2
	Late    Attend = 3
)

func (a Attend) Valid() bool {
	return a >= Present && a <= Late
}

// Attended reports whether the mark counts toward attendance.
func (a Attend) Attended() bool {
	return a == Present || a == Late
}

func (a Attend) String() string {
	switch a {
	case Present:
		return "present"
	case Absent:
		return "absent"
	case Late:
		return "late"
	}
	return "unknown"
}
