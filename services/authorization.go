package services

import (
	"gorm.io/gorm"

	"github.com/acadex/acadex-api/model"
	"github.com/acadex/acadex-api/utils/apperror"
)

// Action is what an actor wants to do with a resource.
type Action string

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionDelete  Action = "delete"
	ActionPublish Action = "publish"
)

// ResourceType identifies the kind of entity a policy decision is about.
type ResourceType string

const (
	ResourceUser       ResourceType = "user"
	ResourceDepartment ResourceType = "department"
	ResourceSubject    ResourceType = "subject"
	ResourceGrade      ResourceType = "grade"
)

// Resource is the descriptor the policy decides over. Callers resolve the
// entity's scope (department, assigned teacher, owning student) before asking;
// the decision itself stays a pure function with no database access.
type Resource struct {
	Type         ResourceType
	ID           uint
	DepartmentID *uint  // the department the resource resolves to
	TeacherID    *uint  // subject's assigned teacher (grades: via their subject)
	StudentID    *uint  // grade's owning student
	Role         string // user resources: the target user's role
	Published    bool   // grade resources: visibility flag
}

// CanAccess is the single authorization decision function. Every permission
// check in the system goes through here; routes never carry their own role
// conditionals. Rules are evaluated in priority order: admin, then
// department-scoped HOD, then teacher, then student. A nil or inactive actor
// is denied everything.
func CanAccess(actor *model.User, action Action, res Resource) bool {
	if actor == nil || !actor.IsActive {
		return false
	}

	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleHOD:
		return hodCanAccess(actor, res)
	case model.RoleTeacher:
		return teacherCanAccess(actor, action, res)
	case model.RoleStudent:
		return studentCanAccess(actor, action, res)
	}
	return false
}

// hodCanAccess grants full access strictly within the actor's department.
// A resource that does not resolve to a department (or resolves to another
// one) is out of scope regardless of the action.
func hodCanAccess(actor *model.User, res Resource) bool {
	if actor.DepartmentID == nil || res.DepartmentID == nil {
		return false
	}
	return *actor.DepartmentID == *res.DepartmentID
}

func teacherCanAccess(actor *model.User, action Action, res Resource) bool {
	switch res.Type {
	case ResourceGrade:
		// Read, write and publish only for subjects assigned to this teacher.
		if res.TeacherID == nil || *res.TeacherID != actor.ID {
			return false
		}
		return action == ActionRead || action == ActionWrite || action == ActionPublish
	case ResourceSubject:
		if action != ActionRead {
			return false
		}
		return res.TeacherID != nil && *res.TeacherID == actor.ID
	case ResourceUser:
		// Students of the same department are readable for grading purposes.
		if action != ActionRead || res.Role != model.RoleStudent {
			return false
		}
		if actor.DepartmentID == nil || res.DepartmentID == nil {
			return false
		}
		return *actor.DepartmentID == *res.DepartmentID
	}
	return false
}

func studentCanAccess(actor *model.User, action Action, res Resource) bool {
	if action != ActionRead {
		return false
	}

	switch res.Type {
	case ResourceGrade:
		return res.StudentID != nil && *res.StudentID == actor.ID && res.Published
	case ResourceUser:
		return res.ID == actor.ID
	case ResourceSubject:
		// Subjects of the student's own department are readable as the
		// enrollment view.
		if actor.DepartmentID == nil || res.DepartmentID == nil {
			return false
		}
		return *actor.DepartmentID == *res.DepartmentID
	}
	return false
}

// Resource descriptor constructors. They capture the scope-resolution rules
// in one place so handlers cannot build inconsistent descriptors.

// GradeResource describes a grade; the subject must be the grade's subject,
// since a grade's department and teacher resolve through it.
func GradeResource(grade *model.Grade, subject *model.Subject) Resource {
	res := Resource{
		Type:      ResourceGrade,
		ID:        grade.ID,
		StudentID: &grade.StudentID,
		Published: grade.IsPublished,
	}
	if subject != nil {
		res.DepartmentID = &subject.DepartmentID
		res.TeacherID = subject.TeacherID
	}
	return res
}

// SubjectResource describes a subject.
func SubjectResource(subject *model.Subject) Resource {
	return Resource{
		Type:         ResourceSubject,
		ID:           subject.ID,
		DepartmentID: &subject.DepartmentID,
		TeacherID:    subject.TeacherID,
	}
}

// UserResource describes a user account.
func UserResource(user *model.User) Resource {
	return Resource{
		Type:         ResourceUser,
		ID:           user.ID,
		DepartmentID: user.DepartmentID,
		Role:         user.Role,
	}
}

// DepartmentResource describes a department.
func DepartmentResource(dept *model.Department) Resource {
	return Resource{
		Type:         ResourceDepartment,
		ID:           dept.ID,
		DepartmentID: &dept.ID,
	}
}

// ScopeGrades narrows a grade query to what the actor may see. Reporting
// endpoints scope in the query itself rather than filtering fetched rows, so
// out-of-scope records never leak their existence. The query must select from
// the grades table; scoping joins subjects when the actor is department- or
// assignment-bound.
func ScopeGrades(actor *model.User, query *gorm.DB) (*gorm.DB, error) {
	if actor == nil || !actor.IsActive {
		return nil, apperror.Forbidden("not authenticated")
	}

	switch actor.Role {
	case model.RoleAdmin:
		return query, nil
	case model.RoleHOD:
		if actor.DepartmentID == nil {
			return nil, apperror.Forbidden("no department assigned")
		}
		return query.
			Joins("JOIN subjects ON subjects.id = grades.subject_id").
			Where("subjects.department_id = ?", *actor.DepartmentID), nil
	case model.RoleTeacher:
		return query.
			Joins("JOIN subjects ON subjects.id = grades.subject_id").
			Where("subjects.teacher_id = ?", actor.ID), nil
	case model.RoleStudent:
		return query.Where("grades.student_id = ? AND grades.is_published = ?", actor.ID, true), nil
	}
	return nil, apperror.Forbidden("unknown role")
}
