package middleware

import (
	"testing"

	"github.com/futureguard/api/model"
)

func user(id uint, role string, instituteID *uint) *model.User {
	return &model.User{ID: id, Role: role, InstituteID: instituteID}
}

func TestCanActOn(t *testing.T) {
	instA, instB := uint(1), uint(2)

	super := user(1, model.RoleSuperAdmin, nil)
	adminA := user(2, model.RoleAdmin, &instA)
	adminB := user(3, model.RoleAdmin, &instB)
	mentorA := user(4, model.RoleMentor, &instA)
	mentorB := user(5, model.RoleMentor, &instB)

	cases := []struct {
		name   string
		actor  *model.User
		target *model.User
		want   bool
	}{
		{"superadmin on admin", super, adminA, true},
		{"superadmin on mentor", super, mentorA, true},
		{"superadmin on itself", super, super, false},
		{"admin on own mentor", adminA, mentorA, true},
		{"admin on other institute's mentor", adminA, mentorB, false},
		{"admin on another admin", adminA, adminB, false},
		{"admin on superadmin", adminA, super, false},
		{"mentor on anyone", mentorA, mentorB, false},
	}

	for _, c := range cases {
		if got := CanActOn(c.actor, c.target); got != c.want {
			t.Errorf("%s: CanActOn = %t, want %t", c.name, got, c.want)
		}
	}
}
