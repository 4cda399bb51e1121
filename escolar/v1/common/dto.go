package common

import "uamvh.cloud/escolar/escolar/v1/common/attend"

type IdNameDTO struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

type StudentDTO struct {
	ID                 int64  `json:"id,omitempty"`
	FullName           string `json:"fullName" validate:"required"`
	RegistrationNumber string `json:"registrationNumber" validate:"required"`
}

type PeriodDTO struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	IsActive  *bool  `json:"isActive,omitempty"`
	IsDeleted *bool  `json:"isDeleted,omitempty"`
}

type GroupDTO struct {
	ID            int64            `json:"id,omitempty"`
	Name          string           `json:"name" validate:"required"`
	PeriodID      int64            `json:"periodId,omitempty"`
	Semester      int              `json:"semester,omitempty" validate:"omitempty,min=1,max=12"`
	Period        *PeriodDTO       `json:"period,omitempty"`
	CoursesGroups []CourseGroupDTO `json:"coursesGroups,omitempty"`
	IsDeleted     bool             `json:"isDeleted,omitempty"`
}

type UserDTO struct {
	ID       int64  `json:"id,omitempty"`
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=administrador maestro"`
}

type CourseDTO struct {
	ID            int64            `json:"id,omitempty"`
	Name          string           `json:"name" validate:"required"`
	CoursesGroups []CourseGroupDTO `json:"coursesGroups,omitempty"`
}

type GradingSchemeDTO struct {
	ID            int64   `json:"id,omitempty"`
	CourseGroupID int64   `json:"courseGroupId"`
	Type          string  `json:"type"`
	Percentage    float64 `json:"percentage"`
}

type CourseGroupStudentDTO struct {
	ID      int64      `json:"id,omitempty"`
	Student StudentDTO `json:"student"`
}

type CourseGroupDTO struct {
	ID                    int64                   `json:"id,omitempty"`
	Schedule              string                  `json:"schedule,omitempty"`
	IsDeleted             bool                    `json:"isDeleted,omitempty"`
	Course                *IdNameDTO              `json:"course,omitempty"`
	Group                 *GroupDTO               `json:"group,omitempty"`
	User                  *UserDTO                `json:"user,omitempty"`
	CoursesGroupsStudents []CourseGroupStudentDTO `json:"coursesGroupsStudents,omitempty"`
	GradingSchemes        []GradingSchemeDTO      `json:"coursesGroupsGradingschemes,omitempty"`
}

// CourseAssignmentDTO links a course to a group and a teacher.
type CourseAssignmentDTO struct {
	CourseID int64  `json:"courseId" validate:"required"`
	GroupID  int64  `json:"groupId" validate:"required"`
	UserID   int64  `json:"userId" validate:"required"`
	Schedule string `json:"schedule,omitempty"`
}

type AttendanceDTO struct {
	ID                   int64         `json:"id,omitempty"`
	CourseGroupStudentID int64         `json:"courseGroupStudentId" validate:"required"`
	Date                 string        `json:"date" validate:"required,datetime=2006-01-02"`
	Attend               attend.Attend `json:"attend" validate:"min=1,max=3"`
	Partial              int           `json:"partial" validate:"min=1,max=3"`
}

type PartialEvaluationGradeDTO struct {
	ID                   int64   `json:"id,omitempty"`
	Grade                float64 `json:"grade" validate:"min=0,max=10"`
	PartialEvaluationID  int64   `json:"partialEvaluationId" validate:"required"`
	CourseGroupStudentID int64   `json:"courseGroupStudentId" validate:"required"`
}

type PartialGradeDTO struct {
	ID                   int64   `json:"id,omitempty"`
	CourseGroupStudentID int64   `json:"courseGroupStudentId" validate:"required"`
	Partial              int     `json:"partial" validate:"min=1,max=3"`
	Grade                float64 `json:"grade" validate:"min=0,max=10"`
	Date                 string  `json:"date,omitempty"`
}

type FinalGradeDTO struct {
	ID                   int64    `json:"id,omitempty"`
	CourseGroupStudentID int64    `json:"courseGroupStudentId" validate:"required"`
	Grade                float64  `json:"grade" validate:"min=0,max=10"`
	GradeOrdinary        *float64 `json:"gradeOrdinary,omitempty"`
	GradeExtraordinary   *float64 `json:"gradeExtraordinary,omitempty"`
	Date                 string   `json:"date,omitempty"`
	Type                 string   `json:"type,omitempty"`
}

type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponseDTO is persisted verbatim as the current user.
type LoginResponseDTO struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

// final-data report

type FinalDataAttendanceDTO struct {
	Partial int    `json:"partial"`
	Attend  bool   `json:"attend"`
	Date    string `json:"date"`
}

type FinalDataStudentDTO struct {
	ID                   int64                    `json:"id"`
	FullName             string                   `json:"fullName"`
	RegistrationNumber   string                   `json:"registrationNumber"`
	CourseGroupStudentID int64                    `json:"courseGroupStudentId"`
	Attendances          []FinalDataAttendanceDTO `json:"attendances"`
	PartialGrades        []PartialGradeDTO        `json:"partialGrades"`
	FinalGrade           *FinalGradeDTO           `json:"finalGrade"`
}

type FinalDataDTO struct {
	Students []FinalDataStudentDTO `json:"students"`
}

// find-boletas report

type BoletaGradeDTO struct {
	Grade   float64 `json:"grade"`
	Partial int     `json:"partial"`
}

type BoletaFinalDTO struct {
	GradeOrdinary      float64 `json:"gradeOrdinary"`
	GradeExtraordinary float64 `json:"gradeExtraordinary"`
}

type BoletaCourseDTO struct {
	Name        string           `json:"name"`
	Grades      []BoletaGradeDTO `json:"grades"`
	FinalGrades BoletaFinalDTO   `json:"finalGrades"`
}

type BoletaDTO struct {
	FullName           string            `json:"fullName"`
	RegistrationNumber string            `json:"registrationNumber"`
	GroupName          string            `json:"groupName"`
	Semester           int               `json:"semester"`
	PeriodName         string            `json:"periodName"`
	Courses            []BoletaCourseDTO `json:"courses"`
}

// groups/detailed-students report

type DetailedCourseDTO struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Semester      int               `json:"semester"`
	PartialGrades []PartialGradeDTO `json:"partialGrades"`
}

type DetailedStudentDTO struct {
	ID                 int64               `json:"id"`
	FullName           string              `json:"fullName"`
	RegistrationNumber string              `json:"registrationNumber"`
	Courses            []DetailedCourseDTO `json:"courses"`
}

type DetailedGroupDTO struct {
	ID       int64                `json:"id"`
	Name     string               `json:"name"`
	Semester int                  `json:"semester"`
	Period   IdNameDTO            `json:"period"`
	Students []DetailedStudentDTO `json:"students"`
}

type DetailedGroupsDTO struct {
	Groups []DetailedGroupDTO `json:"groups"`
	Total  int64              `json:"total"`
}
