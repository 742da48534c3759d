package entity

import "testing"

func TestSetAssigneesDerivesPrimary(t *testing.T) {
	var a PendingActivity

	ids := []string{"u1", "u2"}
	a.SetAssignees(ids)
	if a.AssignedTo == nil || *a.AssignedTo != "u1" {
		t.Fatalf("Expected primary u1, got %v", a.AssignedTo)
	}
	ids[0] = "mutated"
	if a.AssignedUsers[0] != "u1" {
		t.Errorf("SetAssignees must copy the input slice")
	}
	if !a.IsAssignedTo("u2") || a.IsAssignedTo("u3") {
		t.Errorf("IsAssignedTo mismatch for %v", a.AssignedUsers)
	}

	a.SetAssignees(nil)
	if a.AssignedTo != nil || len(a.AssignedUsers) != 0 {
		t.Errorf("Expected cleared assignees, got %v / %v", a.AssignedTo, a.AssignedUsers)
	}
}

func TestShiftForHour(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, ShiftEvening},
		{5, ShiftEvening},
		{6, ShiftMorning},
		{17, ShiftMorning},
		{18, ShiftEvening},
		{23, ShiftEvening},
	}
	for _, tt := range tests {
		if got := ShiftForHour(tt.hour); got != tt.want {
			t.Errorf("ShiftForHour(%d) = %s, want %s", tt.hour, got, tt.want)
		}
	}
	if ShiftLabel("9") != "Sin turno" {
		t.Errorf("unknown shift should have fallback label")
	}
}

func TestReportTransitions(t *testing.T) {
	r := &Report{Status: ReportStatusOpen}
	for _, s := range []string{ReportStatusInProgress, ReportStatusResolved, ReportStatusClosed, ReportStatusCancelled} {
		if !r.CanTransitionTo(s) {
			t.Errorf("open -> %s should be allowed", s)
		}
	}
	if r.CanTransitionTo(ReportStatusOpen) {
		t.Errorf("open -> open should be rejected")
	}

	for _, terminal := range []string{ReportStatusClosed, ReportStatusCancelled} {
		r.Status = terminal
		for _, s := range ReportStatuses {
			if r.CanTransitionTo(s) {
				t.Errorf("%s is terminal but allows %s", terminal, s)
			}
		}
	}

	r.Status = ReportStatusResolved
	if !r.CanTransitionTo(ReportStatusClosed) || r.CanTransitionTo(ReportStatusInProgress) {
		t.Errorf("resolved only moves to closed")
	}
}

func TestReportEditableOnlyByCreatorWhileOpen(t *testing.T) {
	r := &Report{UserID: "ana", Status: ReportStatusOpen}
	if !r.CanBeEditedBy("ana") || r.CanBeEditedBy("beto") {
		t.Fatalf("only the creator may edit an open report")
	}
	r.Status = ReportStatusInProgress
	if r.CanBeEditedBy("ana") {
		t.Errorf("a report in progress is locked")
	}
}

func TestPendingTransitions(t *testing.T) {
	a := &PendingActivity{Status: PendingStatusPending}
	if a.CanTransitionTo(PendingStatusDone) {
		t.Errorf("pending -> done must go through assigned")
	}
	if !a.CanTransitionTo(PendingStatusAssigned) {
		t.Errorf("pending -> assigned should be allowed")
	}
	a.Status = PendingStatusAssigned
	if !a.CanTransitionTo(PendingStatusAssigned) || !a.CanTransitionTo(PendingStatusDone) {
		t.Errorf("assigned allows reassign and done")
	}
	a.Status = PendingStatusDone
	if a.CanTransitionTo(PendingStatusAssigned) {
		t.Errorf("done is terminal")
	}
}

func TestPriorityRankAndRoles(t *testing.T) {
	if PriorityRank(PriorityLow) != 0 || PriorityRank(PriorityCritical) != 3 || PriorityRank("x") != -1 {
		t.Errorf("unexpected priority ranks")
	}
	if !(&Report{Priority: PriorityCritical}).IsHighPriority() || (&Report{Priority: PriorityMedium}).IsHighPriority() || (&Report{Priority: "x"}).IsHighPriority() {
		t.Errorf("IsHighPriority mismatch")
	}

	admin := &User{Role: RoleAdmin, Status: UserStatusActive}
	super := &User{Role: RoleSuperAdmin, Status: UserStatusActive}
	plain := &User{Role: RoleUser, Status: UserStatusPending}
	if !admin.IsAdmin() || !super.IsAdmin() || plain.IsAdmin() {
		t.Errorf("IsAdmin mismatch")
	}
	if !super.IsSuperAdmin() || admin.IsSuperAdmin() {
		t.Errorf("IsSuperAdmin mismatch")
	}
	if plain.IsActive() {
		t.Errorf("pending user is not active")
	}
	if ValidRole("owner") || !ValidUserStatus(UserStatusRejected) {
		t.Errorf("role/status validation mismatch")
	}
}
