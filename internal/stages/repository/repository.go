package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadflow_backend/internal/stages/domain"
	"leadflow_backend/platform/apperr"
)

const (
	stageNotFoundMessage = "stage not found"
	pivotNotFoundMessage = "pivot stage not found"

	stageColumns = "id, organization_id, key, name, color, sort_order, is_default, is_active, created_at, updated_at"
)

// Query constants are shared with the scoping tests.
const (
	listStagesQuery = `
		SELECT id, organization_id, key, name, color, sort_order, is_default, is_active, created_at, updated_at
		FROM pipeline_stages
		WHERE organization_id = $1 AND ($2::boolean OR is_active = true)
		ORDER BY sort_order ASC`

	lockPivotQuery = `
		SELECT id, organization_id, key, name, color, sort_order, is_default, is_active, created_at, updated_at
		FROM pipeline_stages
		WHERE id = $1 AND organization_id = $2
		FOR UPDATE`

	lockNeighborBeforeQuery = `
		SELECT sort_order FROM pipeline_stages
		WHERE organization_id = $1 AND sort_order < $2
		ORDER BY sort_order DESC
		LIMIT 1
		FOR UPDATE`

	lockNeighborAfterQuery = `
		SELECT sort_order FROM pipeline_stages
		WHERE organization_id = $1 AND sort_order > $2
		ORDER BY sort_order ASC
		LIMIT 1
		FOR UPDATE`

	reindexQuery = `
		UPDATE pipeline_stages ps
		SET sort_order = ranked.rn * $2, updated_at = now()
		FROM (
			SELECT id, row_number() OVER (ORDER BY sort_order ASC) AS rn
			FROM pipeline_stages
			WHERE organization_id = $1
		) ranked
		WHERE ps.id = ranked.id`

	reassignLeadsQuery = `
		UPDATE leads
		SET stage_id = $3, status = $4, updated_at = now()
		WHERE organization_id = $1 AND stage_id = $2
		RETURNING id`

	// Soft-deleted leads still hold the FK, so they count toward the
	// reassignment gate and get moved along with the live ones.
	countLeadsOnStageQuery = `
		SELECT COUNT(*) FROM leads
		WHERE organization_id = $1 AND stage_id = $2`

	organizationsWithGapBelowQuery = `
		SELECT organization_id FROM (
			SELECT organization_id,
			       sort_order - lag(sort_order) OVER (PARTITION BY organization_id ORDER BY sort_order) AS gap
			FROM pipeline_stages
		) gaps
		WHERE gap IS NOT NULL
		GROUP BY organization_id
		HAVING MIN(gap) < $1`
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new pipeline stage repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// IsWriteConflict reports whether err is a unique-constraint violation, i.e.
// a concurrent writer landed on the same sort key or stage key. The service
// layer retries such failures once with a fresh neighbor lookup.
func IsWriteConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// List retrieves a tenant's stages ordered by sort key.
func (r *Repo) List(ctx context.Context, organizationID uuid.UUID, includeInactive bool) ([]Stage, error) {
	rows, err := r.pool.Query(ctx, listStagesQuery, organizationID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	return scanStages(rows)
}

// GetByID retrieves a stage by its ID.
func (r *Repo) GetByID(ctx context.Context, organizationID uuid.UUID, id uuid.UUID) (Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM pipeline_stages
		WHERE id = $1 AND organization_id = $2`

	st, err := scanStage(r.pool.QueryRow(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stage{}, apperr.NotFound(stageNotFoundMessage)
		}
		return Stage{}, fmt.Errorf("get stage by id: %w", err)
	}
	return st, nil
}

// Count returns the number of stages a tenant has, active or not.
func (r *Repo) Count(ctx context.Context, organizationID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pipeline_stages WHERE organization_id = $1`, organizationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stages: %w", err)
	}
	return count, nil
}

// CreateAtEnd appends a stage after the current last one (max sort key + 1).
// When the new stage is the default, the flag is cleared elsewhere first in
// the same transaction.
func (r *Repo) CreateAtEnd(ctx context.Context, params CreateParams) (Stage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Stage{}, fmt.Errorf("create stage: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if params.IsDefault {
		if err := clearDefaultTx(ctx, tx, params.OrganizationID); err != nil {
			return Stage{}, err
		}
	}

	query := `
		INSERT INTO pipeline_stages (organization_id, key, name, color, sort_order, is_default)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM pipeline_stages WHERE organization_id = $1),
			$5)
		RETURNING ` + stageColumns

	st, err := scanStage(tx.QueryRow(ctx, query,
		params.OrganizationID, params.Key, params.Name, params.Color, params.IsDefault,
	))
	if err != nil {
		if IsWriteConflict(err) {
			return Stage{}, apperr.Conflict("stage key already exists")
		}
		return Stage{}, fmt.Errorf("create stage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Stage{}, fmt.Errorf("create stage: commit: %w", err)
	}
	return st, nil
}

// InsertAdjacent creates a stage immediately before or after the pivot. The
// pivot and its neighbor on the requested side are locked for the duration of
// the transaction, so two concurrent inserts beside the same pivot serialize
// and cannot compute the same sort key. When the gap between pivot and
// neighbor can no longer be subdivided, the whole tenant is reindexed inside
// the same transaction and the allocation is retried on the fresh keys.
func (r *Repo) InsertAdjacent(ctx context.Context, params InsertAdjacentParams) (Stage, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Stage{}, fmt.Errorf("insert adjacent stage: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	sortOrder, err := allocateAdjacentTx(ctx, tx, params.OrganizationID, params.PivotID, params.Where)
	if err != nil {
		return Stage{}, err
	}

	query := `
		INSERT INTO pipeline_stages (organization_id, key, name, color, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + stageColumns

	st, err := scanStage(tx.QueryRow(ctx, query,
		params.OrganizationID, params.Key, params.Name, params.Color, sortOrder,
	))
	if err != nil {
		if IsWriteConflict(err) {
			return Stage{}, apperr.Wrap(apperr.KindConflict, "stage key already exists", err)
		}
		return Stage{}, fmt.Errorf("insert adjacent stage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Stage{}, fmt.Errorf("insert adjacent stage: commit: %w", err)
	}
	return st, nil
}

// allocateAdjacentTx locks the pivot and neighbor rows and computes the new
// sort key, reindexing the tenant first if precision is exhausted.
func allocateAdjacentTx(ctx context.Context, tx pgx.Tx, organizationID, pivotID uuid.UUID, where domain.Placement) (float64, error) {
	pivot, err := lockPivotTx(ctx, tx, organizationID, pivotID)
	if err != nil {
		return 0, err
	}

	neighbor, err := lockNeighborTx(ctx, tx, organizationID, pivot.SortOrder, where)
	if err != nil {
		return 0, err
	}

	sortOrder, ok := domain.AllocateAdjacent(pivot.SortOrder, neighbor, where)
	if ok {
		return sortOrder, nil
	}

	// Gap exhausted: rewrite the tenant's keys, then allocate on fresh values.
	if _, err := tx.Exec(ctx, reindexQuery, organizationID, domain.OrderStep); err != nil {
		return 0, fmt.Errorf("reindex before adjacent insert: %w", err)
	}

	pivot, err = lockPivotTx(ctx, tx, organizationID, pivotID)
	if err != nil {
		return 0, err
	}
	neighbor, err = lockNeighborTx(ctx, tx, organizationID, pivot.SortOrder, where)
	if err != nil {
		return 0, err
	}

	sortOrder, ok = domain.AllocateAdjacent(pivot.SortOrder, neighbor, where)
	if !ok {
		return 0, apperr.Internal("sort key space exhausted after reindex")
	}
	return sortOrder, nil
}

func lockPivotTx(ctx context.Context, tx pgx.Tx, organizationID, pivotID uuid.UUID) (Stage, error) {
	st, err := scanStage(tx.QueryRow(ctx, lockPivotQuery, pivotID, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stage{}, apperr.NotFound(pivotNotFoundMessage)
		}
		return Stage{}, fmt.Errorf("lock pivot stage: %w", err)
	}
	return st, nil
}

func lockNeighborTx(ctx context.Context, tx pgx.Tx, organizationID uuid.UUID, pivotOrder float64, where domain.Placement) (*float64, error) {
	query := lockNeighborAfterQuery
	if where == domain.PlacementBefore {
		query = lockNeighborBeforeQuery
	}

	var neighbor float64
	err := tx.QueryRow(ctx, query, organizationID, pivotOrder).Scan(&neighbor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock neighbor stage: %w", err)
	}
	return &neighbor, nil
}

// Update patches name/key/color/active/default. Setting is_default clears the
// flag on all other stages first, in the same transaction.
func (r *Repo) Update(ctx context.Context, organizationID uuid.UUID, id uuid.UUID, patch UpdatePatch) (Stage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Stage{}, fmt.Errorf("update stage: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if patch.IsDefault != nil && *patch.IsDefault {
		if err := clearDefaultTx(ctx, tx, organizationID); err != nil {
			return Stage{}, err
		}
	}

	query := `
		UPDATE pipeline_stages SET
			name = COALESCE($3, name),
			key = COALESCE($4, key),
			color = COALESCE($5, color),
			is_active = COALESCE($6, is_active),
			is_default = COALESCE($7, is_default),
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING ` + stageColumns

	st, err := scanStage(tx.QueryRow(ctx, query,
		id, organizationID, patch.Name, patch.Key, patch.Color, patch.IsActive, patch.IsDefault,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stage{}, apperr.NotFound(stageNotFoundMessage)
		}
		if IsWriteConflict(err) {
			return Stage{}, apperr.Conflict("stage key already exists")
		}
		return Stage{}, fmt.Errorf("update stage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Stage{}, fmt.Errorf("update stage: commit: %w", err)
	}
	return st, nil
}

// DeleteWithReassign removes a stage. A stage still holding leads can only be
// deleted together with a target: all its leads are moved in one bulk update
// (stage reference plus the mirrored legacy status key), then the row is
// deleted. Without a target the call fails with Conflict and writes nothing.
func (r *Repo) DeleteWithReassign(ctx context.Context, organizationID uuid.UUID, id uuid.UUID, targetID *uuid.UUID) (DeleteResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete stage: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	stage, err := scanStage(tx.QueryRow(ctx, lockPivotQuery, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeleteResult{}, apperr.NotFound(stageNotFoundMessage)
		}
		return DeleteResult{}, fmt.Errorf("delete stage: lock: %w", err)
	}

	var leadCount int
	if err := tx.QueryRow(ctx, countLeadsOnStageQuery, organizationID, id).Scan(&leadCount); err != nil {
		return DeleteResult{}, fmt.Errorf("delete stage: count leads: %w", err)
	}

	result := DeleteResult{StageName: stage.Name}

	if leadCount > 0 {
		if targetID == nil {
			return DeleteResult{}, apperr.Conflict("stage has leads; provide a reassignment target").
				WithDetails(map[string]interface{}{"stageId": id, "leadCount": leadCount})
		}
		if *targetID == id {
			return DeleteResult{}, apperr.Validation("reassignment target must differ from the deleted stage")
		}

		target, err := scanStage(tx.QueryRow(ctx, lockPivotQuery, *targetID, organizationID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return DeleteResult{}, apperr.NotFound("target stage not found")
			}
			return DeleteResult{}, fmt.Errorf("delete stage: lock target: %w", err)
		}
		result.TargetStageKey = target.Key

		rows, err := tx.Query(ctx, reassignLeadsQuery, organizationID, id, target.ID, target.Key)
		if err != nil {
			return DeleteResult{}, fmt.Errorf("delete stage: reassign leads: %w", err)
		}
		for rows.Next() {
			var leadID uuid.UUID
			if err := rows.Scan(&leadID); err != nil {
				rows.Close()
				return DeleteResult{}, fmt.Errorf("delete stage: scan reassigned lead: %w", err)
			}
			result.MovedLeadIDs = append(result.MovedLeadIDs, leadID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return DeleteResult{}, fmt.Errorf("delete stage: iterate reassigned leads: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM pipeline_stages WHERE id = $1 AND organization_id = $2`, id, organizationID)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return DeleteResult{}, apperr.NotFound(stageNotFoundMessage)
	}

	if err := tx.Commit(ctx); err != nil {
		return DeleteResult{}, fmt.Errorf("delete stage: commit: %w", err)
	}
	return result, nil
}

// Reorder rewrites every sort key to position+1 following the given id
// sequence. The sequence must name every stage of the tenant exactly once;
// the update is all-or-nothing.
func (r *Repo) Reorder(ctx context.Context, organizationID uuid.UUID, orderedIDs []uuid.UUID) ([]Stage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("reorder stages: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM pipeline_stages WHERE organization_id = $1`, organizationID).Scan(&total); err != nil {
		return nil, fmt.Errorf("reorder stages: count: %w", err)
	}
	if total != len(orderedIDs) {
		return nil, apperr.Validation(fmt.Sprintf("reorder must name all %d stages, got %d", total, len(orderedIDs)))
	}

	for i, stageID := range orderedIDs {
		tag, err := tx.Exec(ctx,
			`UPDATE pipeline_stages SET sort_order = $3, updated_at = now() WHERE id = $1 AND organization_id = $2`,
			stageID, organizationID, float64(i+1),
		)
		if err != nil {
			return nil, fmt.Errorf("reorder stages: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, apperr.NotFound(stageNotFoundMessage).WithDetails(map[string]interface{}{"stageId": stageID})
		}
	}

	rows, err := tx.Query(ctx, listStagesQuery, organizationID, true)
	if err != nil {
		return nil, fmt.Errorf("reorder stages: list: %w", err)
	}
	stages, err := scanStages(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("reorder stages: commit: %w", err)
	}
	return stages, nil
}

// Reindex rewrites every sort key of the tenant to position*OrderStep in one
// statement. Readers always observe either the old or the new ordering.
func (r *Repo) Reindex(ctx context.Context, organizationID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, reindexQuery, organizationID, domain.OrderStep)
	if err != nil {
		return 0, fmt.Errorf("reindex stages: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SeedDefaults inserts the given stages for a tenant that has none yet. The
// empty check and the inserts share a transaction so concurrent first
// requests cannot double-seed.
func (r *Repo) SeedDefaults(ctx context.Context, organizationID uuid.UUID, defaults []CreateParams) ([]Stage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed stages: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM pipeline_stages WHERE organization_id = $1`, organizationID,
	).Scan(&existing); err != nil {
		return nil, fmt.Errorf("seed stages: count: %w", err)
	}
	if existing > 0 {
		rows, err := tx.Query(ctx, listStagesQuery, organizationID, true)
		if err != nil {
			return nil, fmt.Errorf("seed stages: list: %w", err)
		}
		stages, err := scanStages(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		return stages, tx.Commit(ctx)
	}

	stages := make([]Stage, 0, len(defaults))
	for i, params := range defaults {
		st, err := scanStage(tx.QueryRow(ctx, `
			INSERT INTO pipeline_stages (organization_id, key, name, color, sort_order, is_default)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+stageColumns,
			organizationID, params.Key, params.Name, params.Color, domain.ReindexedOrder(i), params.IsDefault,
		))
		if err != nil {
			return nil, fmt.Errorf("seed stages: insert %q: %w", params.Key, err)
		}
		stages = append(stages, st)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("seed stages: commit: %w", err)
	}
	return stages, nil
}

// OrganizationsWithGapBelow lists tenants whose minimum adjacent gap dropped
// under threshold.
func (r *Repo) OrganizationsWithGapBelow(ctx context.Context, threshold float64) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, organizationsWithGapBelowQuery, threshold)
	if err != nil {
		return nil, fmt.Errorf("organizations with gap below: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan organization id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organization ids: %w", err)
	}
	return ids, nil
}

func clearDefaultTx(ctx context.Context, tx pgx.Tx, organizationID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE pipeline_stages SET is_default = false, updated_at = now() WHERE organization_id = $1 AND is_default = true`,
		organizationID,
	)
	if err != nil {
		return fmt.Errorf("clear default stage: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStage(row rowScanner) (Stage, error) {
	var st Stage
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&st.ID, &st.OrganizationID, &st.Key, &st.Name, &st.Color,
		&st.SortOrder, &st.IsDefault, &st.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return Stage{}, err
	}

	st.CreatedAt = createdAt.Format(time.RFC3339)
	st.UpdatedAt = updatedAt.Format(time.RFC3339)
	return st, nil
}

func scanStages(rows pgx.Rows) ([]Stage, error) {
	var results []Stage
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		results = append(results, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return results, nil
}
