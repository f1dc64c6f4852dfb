package repository

import (
	"strings"
	"testing"
)

func TestListStagesQueryIsTenantScopedAndOrdered(t *testing.T) {
	query := strings.ToLower(listStagesQuery)

	requiredFragments := []string{
		"where organization_id = $1",
		"order by sort_order asc",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected query fragment %q to be present", fragment)
		}
	}
}

func TestNeighborLookupsLockRows(t *testing.T) {
	for name, query := range map[string]string{
		"pivot":           lockPivotQuery,
		"neighbor before": lockNeighborBeforeQuery,
		"neighbor after":  lockNeighborAfterQuery,
	} {
		lowered := strings.ToLower(query)
		if !strings.Contains(lowered, "for update") {
			t.Fatalf("%s lookup must lock the row to serialize adjacent inserts", name)
		}
		if !strings.Contains(lowered, "organization_id = $") {
			t.Fatalf("%s lookup must be tenant scoped", name)
		}
	}
}

func TestNeighborLookupsReturnSingleAdjacentRow(t *testing.T) {
	before := strings.ToLower(lockNeighborBeforeQuery)
	after := strings.ToLower(lockNeighborAfterQuery)

	if !strings.Contains(before, "sort_order < $2") || !strings.Contains(before, "order by sort_order desc") {
		t.Fatal("before lookup must select the next-smaller sort key")
	}
	if !strings.Contains(after, "sort_order > $2") || !strings.Contains(after, "order by sort_order asc") {
		t.Fatal("after lookup must select the next-larger sort key")
	}
	for _, query := range []string{before, after} {
		if !strings.Contains(query, "limit 1") {
			t.Fatal("neighbor lookup must return exactly one row")
		}
	}
}

func TestReassignLeadsQueryMirrorsLegacyStatus(t *testing.T) {
	query := strings.ToLower(reassignLeadsQuery)

	if !strings.Contains(query, "set stage_id = $3, status = $4") {
		t.Fatal("reassignment must update the stage reference and the mirrored status key together")
	}
	if !strings.Contains(query, "where organization_id = $1 and stage_id = $2") {
		t.Fatal("reassignment must be one bulk statement scoped to tenant and source stage")
	}
}

func TestReindexQueryRewritesWholeTenant(t *testing.T) {
	query := strings.ToLower(reindexQuery)

	if !strings.Contains(query, "row_number() over (order by sort_order asc)") {
		t.Fatal("reindex must renumber by the current ordering")
	}
	if !strings.Contains(query, "where organization_id = $1") {
		t.Fatal("reindex must be tenant scoped")
	}
}
