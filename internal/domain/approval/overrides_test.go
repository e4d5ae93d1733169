package approval

import (
	"errors"
	"testing"

	"github.com/weibaohui/recruitflow/internal/model"
)

func TestUpsertIncludeUpdatesInPlace(t *testing.T) {
	step := &model.ApprovalStep{ID: 1}

	if created := UpsertInclude(step, "E001", "Alice", "a@x.com"); !created {
		t.Fatalf("first upsert should create")
	}
	if created := UpsertInclude(step, "E001", "Alice B", "alice@x.com"); created {
		t.Fatalf("second upsert should update")
	}
	if len(step.SpecificIncludes) != 1 {
		t.Fatalf("expected 1 include, got %d", len(step.SpecificIncludes))
	}
	got := step.SpecificIncludes[0]
	if got.EmployeeName != "Alice B" || got.EmployeeEmail != "alice@x.com" {
		t.Fatalf("expected latest metadata, got %+v", got)
	}
}

func TestIncludeIndexAddressing(t *testing.T) {
	step := &model.ApprovalStep{ID: 1}
	UpsertInclude(step, "E1", "A", "")
	UpsertInclude(step, "E2", "B", "")
	UpsertInclude(step, "E3", "C", "")

	name := "BB"
	if err := UpdateIncludeAt(step, 1, IncludePatch{EmployeeName: &name}); err != nil {
		t.Fatalf("UpdateIncludeAt error: %v", err)
	}
	if step.SpecificIncludes[1].EmployeeName != "BB" {
		t.Fatalf("expected patched name, got %s", step.SpecificIncludes[1].EmployeeName)
	}

	removed, err := RemoveIncludeAt(step, 0)
	if err != nil {
		t.Fatalf("RemoveIncludeAt error: %v", err)
	}
	if removed.EmployeeCode != "E1" {
		t.Fatalf("removed wrong entry: %s", removed.EmployeeCode)
	}
	for i, inc := range step.SpecificIncludes {
		if inc.Position != i {
			t.Fatalf("positions not renumbered: %+v", step.SpecificIncludes)
		}
	}

	if err := UpdateIncludeAt(step, 2, IncludePatch{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected IndexOutOfRange, got %v", err)
	}
	if _, err := RemoveIncludeAt(step, -1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected IndexOutOfRange, got %v", err)
	}
}

func TestExcludeOperations(t *testing.T) {
	step := &model.ApprovalStep{ID: 1}

	if !UpsertExclude(step, "E1") {
		t.Fatalf("first exclude should be created")
	}
	if UpsertExclude(step, " E1") {
		t.Fatalf("duplicate exclude should not be created")
	}
	UpsertExclude(step, "E2")
	if len(step.Excludes) != 2 {
		t.Fatalf("expected 2 excludes, got %d", len(step.Excludes))
	}

	if err := UpdateExcludeAt(step, 1, "E9"); err != nil {
		t.Fatalf("UpdateExcludeAt error: %v", err)
	}
	if ExcludeIndexOf(step, "E9") != 1 {
		t.Fatalf("expected E9 at index 1")
	}
	if err := UpdateExcludeAt(step, 5, "E9"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected IndexOutOfRange, got %v", err)
	}
	if _, err := RemoveExcludeAt(step, 0); err != nil {
		t.Fatalf("RemoveExcludeAt error: %v", err)
	}
	if len(step.Excludes) != 1 || step.Excludes[0].Position != 0 {
		t.Fatalf("unexpected excludes after removal: %+v", step.Excludes)
	}
}
