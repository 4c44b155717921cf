package domain

import (
	"errors"
	"testing"
	"time"
)

func TestFollowupType_Offset(t *testing.T) {
	t.Parallel()

	if got := Followup5Day.Offset(); got != 5*24*time.Hour {
		t.Fatalf("offset=%v, want=%v", got, 5*24*time.Hour)
	}
	if got := Followup10Day.Offset(); got != 10*24*time.Hour {
		t.Fatalf("offset=%v, want=%v", got, 10*24*time.Hour)
	}
}

func TestFollowupType_EmailType(t *testing.T) {
	t.Parallel()

	if got := Followup5Day.EmailType(); got != EmailTypeFollowup5Day {
		t.Fatalf("email type=%q, want=%q", got, EmailTypeFollowup5Day)
	}
	if got := Followup10Day.EmailType(); got != EmailTypeFollowup10Day {
		t.Fatalf("email type=%q, want=%q", got, EmailTypeFollowup10Day)
	}
}

func TestAllFollowupTypes_CoversSequence(t *testing.T) {
	t.Parallel()

	if len(AllFollowupTypes) != 2 {
		t.Fatalf("followup types=%d, want=2", len(AllFollowupTypes))
	}
	for _, ft := range AllFollowupTypes {
		if !ft.IsValid() {
			t.Fatalf("invalid followup type %q", ft)
		}
	}
}

func TestParseFollowupStatusFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseFollowupStatusFromString("scheduled")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != FollowupStatusScheduled {
		t.Fatalf("status=%q, want=%q", got, FollowupStatusScheduled)
	}

	if _, err := ParseFollowupStatusFromString("paused"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFollowupTask_Validate(t *testing.T) {
	t.Parallel()

	valid := FollowupTask{
		LeadID:        "lead-1",
		FollowupType:  Followup5Day,
		ScheduledDate: time.Now(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missingLead := valid
	missingLead.LeadID = ""
	if err := missingLead.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	badType := valid
	badType.FollowupType = "weekly"
	if err := badType.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	zeroDate := valid
	zeroDate.ScheduledDate = time.Time{}
	if err := zeroDate.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
