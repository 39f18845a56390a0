package scheduler

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// defaultPeriodsPerWeek applies when the curriculum has no entry for a
// (subject, grade) pair.
const defaultPeriodsPerWeek = 4

// CurriculumLookup answers curriculum questions for demand building. It is
// satisfied by the curriculum repository after a term snapshot is loaded.
type CurriculumLookup interface {
	PeriodsPerWeek(subjectID string, grade int) (int, bool)
}

// Demand is one (class, subject, teacher) requirement and the number of
// weekly periods it must occupy.
type Demand struct {
	ClassID   string
	SubjectID string
	TeacherID string
	Periods   int

	// Priority and RequiresLab are copied from the subject so demand
	// ordering needs no dataset lookups.
	Priority    int
	RequiresLab bool
	Grade       int
}

// CurriculumError reports an inconsistency between assignments, subjects and
// teachers that makes the demand set unbuildable.
type CurriculumError struct {
	Reason    string
	ClassID   string
	SubjectID string
	TeacherID string
}

func (e *CurriculumError) Error() string {
	return fmt.Sprintf("curriculum inconsistency: %s (class=%s subject=%s teacher=%s)",
		e.Reason, e.ClassID, e.SubjectID, e.TeacherID)
}

// BuildDemands expands primary active assignments into per-class demands,
// validating teacher competency and subject/grade applicability. Demands come
// back sorted hardest-first: priority desc, lab subjects first, then grade and
// ids ascending for a stable order.
func BuildDemands(ds *Dataset, assignments []models.SubjectAssignment, curriculum CurriculumLookup) ([]Demand, error) {
	demands := make([]Demand, 0, len(assignments))
	seen := make(map[string]string, len(assignments))

	for _, a := range assignments {
		if !a.IsActive || !a.IsPrimary {
			continue
		}
		class := ds.Classes[a.ClassID]
		if class == nil {
			return nil, &CurriculumError{Reason: "assignment references unknown class", ClassID: a.ClassID, SubjectID: a.SubjectID, TeacherID: a.TeacherID}
		}
		subject := ds.Subjects[a.SubjectID]
		if subject == nil {
			return nil, &CurriculumError{Reason: "assignment references unknown subject", ClassID: a.ClassID, SubjectID: a.SubjectID, TeacherID: a.TeacherID}
		}
		teacher := ds.Teachers[a.TeacherID]
		if teacher == nil {
			return nil, &CurriculumError{Reason: "assignment references unknown teacher", ClassID: a.ClassID, SubjectID: a.SubjectID, TeacherID: a.TeacherID}
		}
		if !teacher.Competent[a.SubjectID] {
			return nil, &CurriculumError{Reason: "teacher is not competent for subject", ClassID: a.ClassID, SubjectID: a.SubjectID, TeacherID: a.TeacherID}
		}
		if len(subject.Grades) > 0 && !subject.Grades[class.Grade] {
			return nil, &CurriculumError{Reason: fmt.Sprintf("subject is not offered for grade %d", class.Grade), ClassID: a.ClassID, SubjectID: a.SubjectID, TeacherID: a.TeacherID}
		}

		pairKey := a.ClassID + "|" + a.SubjectID
		if prev, dup := seen[pairKey]; dup {
			return nil, &CurriculumError{
				Reason:    fmt.Sprintf("duplicate primary assignment (already assigned to teacher %s)", prev),
				ClassID:   a.ClassID, SubjectID: a.SubjectID, TeacherID: a.TeacherID,
			}
		}
		seen[pairKey] = a.TeacherID

		periods, ok := curriculum.PeriodsPerWeek(a.SubjectID, class.Grade)
		if !ok {
			periods = defaultPeriodsPerWeek
		}
		if periods <= 0 {
			continue
		}

		demands = append(demands, Demand{
			ClassID:     a.ClassID,
			SubjectID:   a.SubjectID,
			TeacherID:   a.TeacherID,
			Periods:     periods,
			Priority:    subject.Priority,
			RequiresLab: subject.RequiresLab,
			Grade:       class.Grade,
		})
	}

	sort.Slice(demands, func(i, j int) bool {
		a, b := demands[i], demands[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.RequiresLab != b.RequiresLab {
			return a.RequiresLab
		}
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		if a.ClassID != b.ClassID {
			return a.ClassID < b.ClassID
		}
		return a.SubjectID < b.SubjectID
	})

	return demands, nil
}

// TotalPeriods sums the weekly periods across all demands.
func TotalPeriods(demands []Demand) int {
	total := 0
	for _, d := range demands {
		total += d.Periods
	}
	return total
}
