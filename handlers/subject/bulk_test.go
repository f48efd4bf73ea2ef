package subject

import (
	"testing"

	"github.com/acadex/acadex-api/model"
)

func uintPtr(v uint) *uint { return &v }

func TestAuthorizeBatch(t *testing.T) {
	admin := &model.User{Role: model.RoleAdmin, IsActive: true}
	hod := &model.User{Role: model.RoleHOD, DepartmentID: uintPtr(1), IsActive: true}

	home := CreateSubjectRequest{DepartmentID: 1}
	foreign := CreateSubjectRequest{DepartmentID: 2}

	t.Run("admin passes any department", func(t *testing.T) {
		if err := authorizeBatch(admin, []CreateSubjectRequest{home, foreign}); err != nil {
			t.Errorf("authorizeBatch = %v, want nil", err)
		}
	})

	t.Run("hod passes home department batch", func(t *testing.T) {
		if err := authorizeBatch(hod, []CreateSubjectRequest{home, home}); err != nil {
			t.Errorf("authorizeBatch = %v, want nil", err)
		}
	})

	t.Run("one foreign item rejects the whole batch", func(t *testing.T) {
		if err := authorizeBatch(hod, []CreateSubjectRequest{home, foreign, home}); err == nil {
			t.Error("authorizeBatch = nil, want forbidden")
		}
	})

	t.Run("inactive actor is rejected", func(t *testing.T) {
		inactive := &model.User{Role: model.RoleAdmin, IsActive: false}
		if err := authorizeBatch(inactive, []CreateSubjectRequest{home}); err == nil {
			t.Error("authorizeBatch = nil, want forbidden")
		}
	})
}
