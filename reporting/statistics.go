package reporting

import (
	"sort"

	"uamvh.cloud/escolar/grading"
	"uamvh.cloud/escolar/utils"
)

// FailingGrade is the course grade below which a student counts as
// failing in the statistics.
const FailingGrade = 7.0

type SemesterAverage struct {
	Semester int     `json:"semester"`
	Average  float64 `json:"promedio"`
}

type GroupStatistics struct {
	GroupName      string             `json:"groupName"`
	Average        float64            `json:"promedio"`
	CourseAverages map[string]float64 `json:"promediosPorAsignatura"`
}

type SemesterStatistics struct {
	Semester       int               `json:"semester"`
	Average        float64           `json:"promedioGeneral"`
	Groups         []GroupStatistics `json:"groups"`
	FailingCourses map[string]int    `json:"reprobadosPorAsignatura"`
	Courses        []string          `json:"allCourses"`
}

type Statistics struct {
	Averages  []SemesterAverage    `json:"promediosGenerales"`
	Semesters []SemesterStatistics `json:"semestres"`
}

// ComputeStatistics aggregates concentrados by semester.
func ComputeStatistics(concentrados []Concentrado) Statistics {
	bySemester := utils.GroupBy(concentrados, func(c Concentrado) int { return c.Semester })
	semesters := make([]int, 0, len(bySemester))
	for s := range bySemester {
		semesters = append(semesters, s)
	}
	sort.Ints(semesters)

	stats := Statistics{Averages: []SemesterAverage{}, Semesters: []SemesterStatistics{}}
	for _, sem := range semesters {
		group := bySemester[sem]

		var courses []string
		seen := map[string]bool{}
		var averages []float64
		for _, c := range group {
			for _, course := range c.Courses {
				if !seen[course] {
					seen[course] = true
					courses = append(courses, course)
				}
			}
			for _, s := range c.Students {
				averages = append(averages, s.Average)
			}
		}
		general, _ := grading.MeanPositive(averages)
		general = grading.Round2(general)

		ss := SemesterStatistics{
			Semester:       sem,
			Average:        general,
			FailingCourses: map[string]int{},
			Courses:        courses,
		}
		for _, c := range group {
			ss.Groups = append(ss.Groups, groupStatistics(c, courses))
		}
		for _, course := range courses {
			n := 0
			for _, c := range group {
				for _, s := range c.Students {
					if f := s.Courses[course].Final; f > 0 && f < FailingGrade {
						n++
					}
				}
			}
			ss.FailingCourses[course] = n
		}

		stats.Averages = append(stats.Averages, SemesterAverage{Semester: sem, Average: general})
		stats.Semesters = append(stats.Semesters, ss)
	}
	return stats
}

func groupStatistics(c Concentrado, courses []string) GroupStatistics {
	averages := make([]float64, 0, len(c.Students))
	for _, s := range c.Students {
		averages = append(averages, s.Average)
	}
	avg, _ := grading.MeanPositive(averages)

	gs := GroupStatistics{
		GroupName:      c.GroupName,
		Average:        grading.Round2(avg),
		CourseAverages: make(map[string]float64, len(courses)),
	}
	for _, course := range courses {
		finals := make([]float64, 0, len(c.Students))
		for _, s := range c.Students {
			finals = append(finals, s.Courses[course].Final)
		}
		mean, _ := grading.MeanPositive(finals)
		gs.CourseAverages[course] = grading.Round2(mean)
	}
	return gs
}
