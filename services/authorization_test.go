package services

import (
	"testing"

	"github.com/acadex/acadex-api/model"
)

func uintPtr(v uint) *uint { return &v }

func activeUser(id uint, role string, departmentID *uint) *model.User {
	return &model.User{ID: id, Role: role, DepartmentID: departmentID, IsActive: true}
}

func TestCanAccessAdmin(t *testing.T) {
	admin := activeUser(1, model.RoleAdmin, nil)

	resources := []Resource{
		{Type: ResourceUser, ID: 2, Role: model.RoleStudent},
		{Type: ResourceDepartment, ID: 3, DepartmentID: uintPtr(3)},
		{Type: ResourceSubject, ID: 4, DepartmentID: uintPtr(3)},
		{Type: ResourceGrade, ID: 5, StudentID: uintPtr(9)},
	}
	for _, res := range resources {
		for _, action := range []Action{ActionRead, ActionWrite, ActionDelete, ActionPublish} {
			if !CanAccess(admin, action, res) {
				t.Errorf("admin denied %s on %s", action, res.Type)
			}
		}
	}
}

func TestCanAccessDeniesUnauthenticated(t *testing.T) {
	res := Resource{Type: ResourceGrade, ID: 1, StudentID: uintPtr(2), Published: true}

	if CanAccess(nil, ActionRead, res) {
		t.Error("nil actor must be denied")
	}

	inactive := &model.User{ID: 1, Role: model.RoleAdmin, IsActive: false}
	if CanAccess(inactive, ActionRead, res) {
		t.Error("inactive actor must be denied even as admin")
	}
}

func TestCanAccessHODDepartmentBoundary(t *testing.T) {
	hod := activeUser(10, model.RoleHOD, uintPtr(1))

	own := Resource{Type: ResourceSubject, ID: 4, DepartmentID: uintPtr(1)}
	other := Resource{Type: ResourceSubject, ID: 5, DepartmentID: uintPtr(2)}

	if !CanAccess(hod, ActionWrite, own) {
		t.Error("HOD denied write in own department")
	}
	if CanAccess(hod, ActionWrite, other) {
		t.Error("HOD allowed write in another department")
	}
	if CanAccess(hod, ActionRead, other) {
		t.Error("HOD allowed read in another department; scoping must hold for every action")
	}

	unscoped := Resource{Type: ResourceUser, ID: 6, Role: model.RoleAdmin}
	if CanAccess(hod, ActionRead, unscoped) {
		t.Error("HOD allowed access to a resource with no department")
	}
}

func TestCanAccessTeacherGrades(t *testing.T) {
	teacher := activeUser(20, model.RoleTeacher, uintPtr(1))

	assigned := Resource{
		Type: ResourceGrade, ID: 1,
		DepartmentID: uintPtr(1), TeacherID: uintPtr(20), StudentID: uintPtr(30),
	}
	unassigned := Resource{
		Type: ResourceGrade, ID: 2,
		DepartmentID: uintPtr(1), TeacherID: uintPtr(21), StudentID: uintPtr(30),
	}
	noTeacher := Resource{
		Type: ResourceGrade, ID: 3,
		DepartmentID: uintPtr(1), StudentID: uintPtr(30),
	}

	if !CanAccess(teacher, ActionWrite, assigned) {
		t.Error("teacher denied write on own subject's grade")
	}
	if !CanAccess(teacher, ActionPublish, assigned) {
		t.Error("teacher denied publish on own subject's grade")
	}
	if CanAccess(teacher, ActionWrite, unassigned) {
		t.Error("teacher allowed write on another teacher's subject")
	}
	if CanAccess(teacher, ActionWrite, noTeacher) {
		t.Error("teacher allowed write on a subject with no assignment")
	}
	if CanAccess(teacher, ActionDelete, assigned) {
		t.Error("teacher allowed delete; deletes stay with admin and HOD")
	}
}

func TestCanAccessTeacherReadsStudents(t *testing.T) {
	teacher := activeUser(20, model.RoleTeacher, uintPtr(1))

	sameDept := Resource{Type: ResourceUser, ID: 30, Role: model.RoleStudent, DepartmentID: uintPtr(1)}
	otherDept := Resource{Type: ResourceUser, ID: 31, Role: model.RoleStudent, DepartmentID: uintPtr(2)}
	colleague := Resource{Type: ResourceUser, ID: 21, Role: model.RoleTeacher, DepartmentID: uintPtr(1)}

	if !CanAccess(teacher, ActionRead, sameDept) {
		t.Error("teacher denied reading a student of the same department")
	}
	if CanAccess(teacher, ActionRead, otherDept) {
		t.Error("teacher allowed reading a student of another department")
	}
	if CanAccess(teacher, ActionWrite, sameDept) {
		t.Error("teacher allowed writing a user record")
	}
	if CanAccess(teacher, ActionRead, colleague) {
		t.Error("teacher allowed reading a non-student user")
	}
}

func TestCanAccessStudent(t *testing.T) {
	student := activeUser(30, model.RoleStudent, uintPtr(1))

	ownPublished := Resource{Type: ResourceGrade, ID: 1, StudentID: uintPtr(30), Published: true}
	ownDraft := Resource{Type: ResourceGrade, ID: 2, StudentID: uintPtr(30), Published: false}
	othersPublished := Resource{Type: ResourceGrade, ID: 3, StudentID: uintPtr(31), Published: true}

	if !CanAccess(student, ActionRead, ownPublished) {
		t.Error("student denied reading own published grade")
	}
	if CanAccess(student, ActionRead, ownDraft) {
		t.Error("student allowed reading own unpublished grade")
	}
	if CanAccess(student, ActionRead, othersPublished) {
		t.Error("student allowed reading another student's grade even though published")
	}
	if CanAccess(student, ActionWrite, ownPublished) {
		t.Error("student allowed a write action")
	}

	ownAccount := Resource{Type: ResourceUser, ID: 30, Role: model.RoleStudent, DepartmentID: uintPtr(1)}
	otherAccount := Resource{Type: ResourceUser, ID: 31, Role: model.RoleStudent, DepartmentID: uintPtr(1)}
	if !CanAccess(student, ActionRead, ownAccount) {
		t.Error("student denied reading own account")
	}
	if CanAccess(student, ActionRead, otherAccount) {
		t.Error("student allowed reading another account")
	}
}

func TestGradeResourceResolvesThroughSubject(t *testing.T) {
	subject := &model.Subject{ID: 4, DepartmentID: 7, TeacherID: uintPtr(20)}
	grade := &model.Grade{ID: 1, StudentID: 30, SubjectID: 4, IsPublished: true}

	res := GradeResource(grade, subject)

	if res.DepartmentID == nil || *res.DepartmentID != 7 {
		t.Error("grade department must resolve through the subject")
	}
	if res.TeacherID == nil || *res.TeacherID != 20 {
		t.Error("grade teacher must resolve through the subject")
	}
	if res.StudentID == nil || *res.StudentID != 30 {
		t.Error("grade student must come from the grade row")
	}
}
