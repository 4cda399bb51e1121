package grading

type Situation string

const (
	Exentado       Situation = "exentado"
	Ordinario      Situation = "ordinario"
	Extraordinario Situation = "extraordinario"
	NA             Situation = "na"
)

const (
	DefaultExemption = 8.0
	PassingGrade     = 6.0
)

// DetermineSituation classifies a final average against the exemption
// threshold.
func DetermineSituation(final, exemption float64) Situation {
	switch {
	case final >= exemption:
		return Exentado
	case final >= PassingGrade:
		return Ordinario
	case final > 0:
		return Extraordinario
	}
	return NA
}

func (s Situation) Label() string {
	switch s {
	case Exentado:
		return "Exentado"
	case Ordinario:
		return "Ordinario"
	case Extraordinario:
		return "Extraordinario"
	}
	return "N/A"
}
