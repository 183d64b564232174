package model

import "testing"

func TestIsValidRole(t *testing.T) {
	for _, r := range []string{RoleUser, RoleCreator, RoleAdmin} {
		if !IsValidRole(r) {
			t.Errorf("%s should be valid", r)
		}
	}
	for _, r := range []string{"", "superuser", "Admin"} {
		if IsValidRole(r) {
			t.Errorf("%q should be invalid", r)
		}
	}
}

func TestIsValidSkillLevel(t *testing.T) {
	for _, s := range []string{SkillJunior, SkillIntermediate, SkillSenior, SkillExpert} {
		if !IsValidSkillLevel(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []string{"", "wizard", "Junior"} {
		if IsValidSkillLevel(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}
