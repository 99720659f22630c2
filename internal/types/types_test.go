package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestRoleSetOnly(t *testing.T) {
	tests := []struct {
		name string
		set  RoleSet
		role Role
		want bool
	}{
		{"empty set", RoleSet{}, RoleSupervisor, false},
		{"single match", RoleSet{RoleSupervisor: true}, RoleSupervisor, true},
		{"mixed roles", RoleSet{RoleSupervisor: true, RoleManager: true}, RoleSupervisor, false},
		{"other role", RoleSet{RoleEngineer: true}, RoleSupervisor, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.Only(tt.role); got != tt.want {
				t.Errorf("Only(%s) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestRoleSetHasAny(t *testing.T) {
	set := RoleSet{RoleEngineer: true}
	if !set.HasAny(RoleEngineer, RoleManager) {
		t.Error("expected engineer to match")
	}
	if set.HasAny(RoleManager, RoleSupervisor) {
		t.Error("expected no match for manager/supervisor")
	}
}

func TestDefectValidate(t *testing.T) {
	valid := Defect{Title: "Crack in wall", Description: "Hairline crack, unit 4B", ProjectID: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid defect rejected: %v", err)
	}

	missingTitle := valid
	missingTitle.Title = ""
	if err := missingTitle.Validate(); err == nil {
		t.Error("expected error for missing title")
	}

	negHours := valid
	h := -1.5
	negHours.EstimatedHours = &h
	err := negHours.Validate()
	if err == nil {
		t.Fatal("expected error for negative estimated hours")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "estimated_hours" {
		t.Errorf("expected ValidationError on estimated_hours, got %v", err)
	}
}

func TestPriorityValidate(t *testing.T) {
	for _, level := range []int{0, 11, -3} {
		p := Priority{Name: "custom", UrgencyLevel: level}
		if err := p.Validate(); err == nil {
			t.Errorf("urgency %d accepted, want error", level)
		}
	}
	p := Priority{Name: "critical", UrgencyLevel: 10}
	if err := p.Validate(); err != nil {
		t.Errorf("urgency 10 rejected: %v", err)
	}
}

func TestUserDisplayName(t *testing.T) {
	u := User{Username: "ipetrov", FirstName: "Ivan", LastName: "Petrov"}
	if got := u.DisplayName(); got != "Ivan Petrov" {
		t.Errorf("DisplayName = %q", got)
	}
	u = User{Username: "ipetrov"}
	if got := u.DisplayName(); got != "ipetrov" {
		t.Errorf("DisplayName fallback = %q", got)
	}
}

func TestErrorPredicates(t *testing.T) {
	wrapped := fmt.Errorf("updating defect: %w", &ConflictError{Reason: "version mismatch"})
	if !IsConflict(wrapped) {
		t.Error("IsConflict failed on wrapped error")
	}
	if IsNotFound(wrapped) || IsForbidden(wrapped) || IsValidation(wrapped) {
		t.Error("predicate matched wrong kind")
	}
	if !IsForbidden(&ForbiddenError{Action: "create_defect", Reason: "supervisors cannot create defects"}) {
		t.Error("IsForbidden failed")
	}
}
