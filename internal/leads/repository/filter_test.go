package repository

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestListWhereAlwaysScopesTenantAndSoftDelete(t *testing.T) {
	where, args, _ := buildLeadListWhere(ListParams{OrganizationID: uuid.New()})

	if !strings.HasPrefix(where, "organization_id = $1") {
		t.Errorf("expected tenant filter first, got %q", where)
	}
	if !strings.Contains(where, "deleted_at IS NULL") {
		t.Error("expected soft-delete filter")
	}
	if len(args) != 1 {
		t.Errorf("expected 1 arg, got %d", len(args))
	}
}

func TestListWhereViewerScopingCoversOwnership(t *testing.T) {
	viewer := uuid.New()
	where, args, _ := buildLeadListWhere(ListParams{OrganizationID: uuid.New(), ViewerID: &viewer})

	if !strings.Contains(where, "assigned_to = $2 OR created_by = $2") {
		t.Errorf("expected ownership scoping, got %q", where)
	}
	if len(args) != 2 || args[1] != viewer {
		t.Errorf("expected viewer arg, got %v", args)
	}
}

func TestListWhereSearchMatchesNormalizedPhoneExactly(t *testing.T) {
	where, args, _ := buildLeadListWhere(ListParams{
		OrganizationID:   uuid.New(),
		Search:           "0612345678",
		NormalizedSearch: "+31612345678",
	})

	if !strings.Contains(where, "phone_normalized = $3") {
		t.Errorf("expected exact normalized phone match, got %q", where)
	}
	if args[2] != "+31612345678" {
		t.Errorf("expected normalized phone arg, got %v", args[2])
	}
}

func TestListWhereSearchWithoutNormalizedPhone(t *testing.T) {
	where, _, _ := buildLeadListWhere(ListParams{OrganizationID: uuid.New(), Search: "jansen"})

	if strings.Contains(where, "phone_normalized") {
		t.Errorf("expected no normalized phone clause for non-phone search, got %q", where)
	}
	if !strings.Contains(where, "name ILIKE $2") {
		t.Errorf("expected name search clause, got %q", where)
	}
}

func TestColumnWhereCarriesListFilters(t *testing.T) {
	org, stage, assignee, viewer := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	status := "new"
	where, args, _ := buildLeadListWhere(columnListParams(ColumnParams{
		OrganizationID:   org,
		StageID:          stage,
		Status:           &status,
		AssignedTo:       &assignee,
		Search:           "0612345678",
		NormalizedSearch: "+31612345678",
		ViewerID:         &viewer,
	}))

	for _, clause := range []string{
		"organization_id = $1",
		"stage_id = $2",
		"status = $3",
		"assigned_to = $4",
		"phone_normalized = $6",
		"assigned_to = $7 OR created_by = $7",
		"deleted_at IS NULL",
	} {
		if !strings.Contains(where, clause) {
			t.Errorf("expected column predicate to contain %q, got %q", clause, where)
		}
	}
	if len(args) != 7 {
		t.Errorf("expected 7 args, got %d", len(args))
	}
}

func TestMapLeadSortColumnFallsBackToCreatedAt(t *testing.T) {
	if got := mapLeadSortColumn("updatedAt"); got != "updated_at" {
		t.Errorf("expected updated_at, got %q", got)
	}
	if got := mapLeadSortColumn("; DROP TABLE leads"); got != "created_at" {
		t.Errorf("expected fallback to created_at, got %q", got)
	}
}
