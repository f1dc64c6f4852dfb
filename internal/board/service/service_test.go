package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"leadflow_backend/internal/board/transport"
	leadstransport "leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/logger"
)

type fakeStageLister struct {
	stages []Stage
}

func (f *fakeStageLister) ActiveStages(_ context.Context, _ uuid.UUID) ([]Stage, error) {
	return f.stages, nil
}

type columnCall struct {
	stageID  uuid.UUID
	viewerID *uuid.UUID
	filter   ColumnFilter
	limit    int
	offset   int
}

type fakeColumnReader struct {
	mu     sync.Mutex
	calls  []columnCall
	counts map[uuid.UUID]int
}

func (f *fakeColumnReader) ColumnPage(_ context.Context, _ uuid.UUID, stageID uuid.UUID, viewerID *uuid.UUID, filter ColumnFilter, limit, offset int) ([]leadstransport.LeadResponse, int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, columnCall{stageID: stageID, viewerID: viewerID, filter: filter, limit: limit, offset: offset})
	f.mu.Unlock()

	total := f.counts[stageID]
	n := total - offset
	if n < 0 {
		n = 0
	}
	if n > limit {
		n = limit
	}
	items := make([]leadstransport.LeadResponse, n)
	for i := range items {
		items[i] = leadstransport.LeadResponse{ID: uuid.New(), StageID: stageID, Name: fmt.Sprintf("lead %d", offset+i)}
	}
	return items, total, nil
}

func boardStages() []Stage {
	return []Stage{
		{ID: uuid.New(), Key: "new", Name: "New", Order: 1024},
		{ID: uuid.New(), Key: "interview_scheduled", Name: "Interview Scheduled", Order: 2048},
		{ID: uuid.New(), Key: "completed", Name: "Completed", Order: 3072},
	}
}

func TestBoardColumnsFollowPipelineOrder(t *testing.T) {
	stages := boardStages()
	reader := &fakeColumnReader{counts: map[uuid.UUID]int{
		stages[0].ID: 3,
		stages[1].ID: 1,
		stages[2].ID: 0,
	}}
	svc := New(&fakeStageLister{stages: stages}, reader, logger.New("test"))

	resp, err := svc.Board(context.Background(), uuid.New(), nil, ColumnFilter{}, nil)
	if err != nil {
		t.Fatalf("Board failed: %v", err)
	}
	if len(resp.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(resp.Columns))
	}
	for i, col := range resp.Columns {
		if col.Stage.ID != stages[i].ID {
			t.Errorf("column %d: expected stage %s, got %s", i, stages[i].Key, col.Stage.Key)
		}
	}
	if resp.TotalLeads != 4 {
		t.Errorf("expected 4 total leads, got %d", resp.TotalLeads)
	}
	// An empty stage still yields a column.
	last := resp.Columns[2]
	if len(last.Items) != 0 || last.Pagination.Total != 0 || last.Pagination.TotalPages != 0 {
		t.Errorf("expected empty trailing column, got %+v", last)
	}
}

func TestBoardColumnsPaginateIndependently(t *testing.T) {
	stages := boardStages()
	reader := &fakeColumnReader{counts: map[uuid.UUID]int{
		stages[0].ID: 25,
		stages[1].ID: 5,
		stages[2].ID: 5,
	}}
	svc := New(&fakeStageLister{stages: stages}, reader, logger.New("test"))

	resp, err := svc.Board(context.Background(), uuid.New(), nil, ColumnFilter{}, map[string]transport.ColumnPageRequest{
		"new": {Page: 3, Limit: 10},
	})
	if err != nil {
		t.Fatalf("Board failed: %v", err)
	}

	newCol := resp.Columns[0]
	if newCol.Pagination.Page != 3 || newCol.Pagination.Limit != 10 {
		t.Errorf("expected page 3 limit 10 for new column, got %+v", newCol.Pagination)
	}
	if len(newCol.Items) != 5 {
		t.Errorf("expected 5 items on the last page, got %d", len(newCol.Items))
	}
	if newCol.Pagination.TotalPages != 3 {
		t.Errorf("expected 3 total pages, got %d", newCol.Pagination.TotalPages)
	}

	// Other columns stay on their first page with the default size.
	other := resp.Columns[1]
	if other.Pagination.Page != 1 || other.Pagination.Limit != defaultColumnSize {
		t.Errorf("expected untouched pagination for other columns, got %+v", other.Pagination)
	}
}

func TestBoardAppliesViewerScopingToEveryColumn(t *testing.T) {
	stages := boardStages()
	reader := &fakeColumnReader{counts: map[uuid.UUID]int{}}
	svc := New(&fakeStageLister{stages: stages}, reader, logger.New("test"))

	viewer := uuid.New()
	if _, err := svc.Board(context.Background(), uuid.New(), &viewer, ColumnFilter{}, nil); err != nil {
		t.Fatalf("Board failed: %v", err)
	}
	if len(reader.calls) != 3 {
		t.Fatalf("expected 3 column queries, got %d", len(reader.calls))
	}
	for _, call := range reader.calls {
		if call.viewerID == nil || *call.viewerID != viewer {
			t.Errorf("expected viewer scoping on every column, got %v", call.viewerID)
		}
	}
}

func TestBoardAppliesFilterToEveryColumn(t *testing.T) {
	stages := boardStages()
	reader := &fakeColumnReader{counts: map[uuid.UUID]int{}}
	svc := New(&fakeStageLister{stages: stages}, reader, logger.New("test"))

	assignee := uuid.New()
	status := "new"
	filter := ColumnFilter{Status: &status, AssignedTo: &assignee, Search: "jansen"}
	if _, err := svc.Board(context.Background(), uuid.New(), nil, filter, nil); err != nil {
		t.Fatalf("Board failed: %v", err)
	}
	if len(reader.calls) != 3 {
		t.Fatalf("expected 3 column queries, got %d", len(reader.calls))
	}
	for _, call := range reader.calls {
		if call.filter.Search != "jansen" {
			t.Errorf("expected search filter on every column, got %q", call.filter.Search)
		}
		if call.filter.Status == nil || *call.filter.Status != "new" {
			t.Errorf("expected status filter on every column, got %v", call.filter.Status)
		}
		if call.filter.AssignedTo == nil || *call.filter.AssignedTo != assignee {
			t.Errorf("expected assignee filter on every column, got %v", call.filter.AssignedTo)
		}
	}
}

func TestBoardClampsOversizedColumnLimit(t *testing.T) {
	stages := boardStages()[:1]
	reader := &fakeColumnReader{counts: map[uuid.UUID]int{}}
	svc := New(&fakeStageLister{stages: stages}, reader, logger.New("test"))

	_, err := svc.Board(context.Background(), uuid.New(), nil, ColumnFilter{}, map[string]transport.ColumnPageRequest{
		"new": {Page: 1, Limit: 500},
	})
	if err != nil {
		t.Fatalf("Board failed: %v", err)
	}
	if reader.calls[0].limit != maxColumnSize {
		t.Errorf("expected limit clamped to %d, got %d", maxColumnSize, reader.calls[0].limit)
	}
}
