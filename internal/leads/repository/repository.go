package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadflow_backend/platform/apperr"
)

const leadColumns = `id, organization_id, stage_id, status, name, email, phone, phone_normalized, city,
	assigned_to, created_by, created_at, updated_at`

// Repo is the pgx-backed lead repository.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (organization_id, stage_id, status, name, email, phone, phone_normalized, city, assigned_to, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+leadColumns,
		params.OrganizationID, params.StageID, params.Status, params.Name, params.Email,
		params.Phone, params.PhoneNormalized, params.City, params.AssignedTo, params.CreatedBy,
	)
	return scanLead(row)
}

func (r *Repo) GetByID(ctx context.Context, organizationID uuid.UUID, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`, id, organizationID)
	return scanLead(row)
}

func (r *Repo) Update(ctx context.Context, organizationID uuid.UUID, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	fields := []struct {
		enabled bool
		column  string
		value   interface{}
	}{
		{params.Name != nil, "name", params.Name},
		{params.Email != nil, "email", params.Email},
		{params.Phone != nil, "phone", params.Phone},
		{params.PhoneNormalized != nil, "phone_normalized", params.PhoneNormalized},
		{params.City != nil, "city", params.City},
		{params.AssignedToSet, "assigned_to", params.AssignedTo},
	}

	for _, field := range fields {
		if !field.enabled {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field.column, argIdx))
		args = append(args, field.value)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, organizationID, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id, organizationID)

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE id = $%d AND organization_id = $%d AND deleted_at IS NULL
		RETURNING %s
	`, strings.Join(setClauses, ", "), argIdx, argIdx+1, leadColumns)

	return scanLead(r.pool.QueryRow(ctx, query, args...))
}

func (r *Repo) SoftDelete(ctx context.Context, organizationID uuid.UUID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`, id, organizationID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

func (r *Repo) SetPosition(ctx context.Context, organizationID uuid.UUID, id uuid.UUID, stageID uuid.UUID, status string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET stage_id = $3, status = $4, updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
		RETURNING `+leadColumns,
		id, organizationID, stageID, status,
	)
	return scanLead(row)
}

func (r *Repo) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	args = append(args, params.Limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, mapLeadSortColumn(params.SortBy), sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads, err := scanLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func (r *Repo) ListByStage(ctx context.Context, params ColumnParams) ([]Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(columnListParams(params))

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads, err := scanLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// columnListParams widens column params into the shared list filter so both
// read paths build the same predicate.
func columnListParams(params ColumnParams) ListParams {
	stageID := params.StageID
	return ListParams{
		OrganizationID:   params.OrganizationID,
		StageID:          &stageID,
		Status:           params.Status,
		AssignedTo:       params.AssignedTo,
		Search:           params.Search,
		NormalizedSearch: params.NormalizedSearch,
		ViewerID:         params.ViewerID,
	}
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	// Tenant isolation first, always.
	whereClauses := []string{"organization_id = $1", "deleted_at IS NULL"}
	args := []interface{}{params.OrganizationID}
	argIdx := 2

	if params.StageID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("stage_id = $%d", argIdx))
		args = append(args, *params.StageID)
		argIdx++
	}
	if params.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.AssignedTo != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("assigned_to = $%d", argIdx))
		args = append(args, *params.AssignedTo)
		argIdx++
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		if params.NormalizedSearch != "" {
			whereClauses = append(whereClauses, fmt.Sprintf(
				"(name ILIKE $%d OR email ILIKE $%d OR city ILIKE $%d OR phone ILIKE $%d OR phone_normalized = $%d)",
				argIdx, argIdx, argIdx, argIdx, argIdx+1,
			))
			args = append(args, pattern, params.NormalizedSearch)
			argIdx += 2
		} else {
			whereClauses = append(whereClauses, fmt.Sprintf(
				"(name ILIKE $%d OR email ILIKE $%d OR city ILIKE $%d OR phone ILIKE $%d)",
				argIdx, argIdx, argIdx, argIdx,
			))
			args = append(args, pattern)
			argIdx++
		}
	}
	if params.ViewerID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("(assigned_to = $%d OR created_by = $%d)", argIdx, argIdx))
		args = append(args, *params.ViewerID)
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func mapLeadSortColumn(sortBy string) string {
	switch sortBy {
	case "name":
		return "name"
	case "city":
		return "city"
	case "status":
		return "status"
	case "updatedAt":
		return "updated_at"
	default:
		return "created_at"
	}
}

func (r *Repo) AddActivity(ctx context.Context, params ActivityParams) error {
	metaJSON, err := marshalMetadata(params.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO lead_activities (organization_id, lead_id, user_id, action, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, params.OrganizationID, params.LeadID, params.UserID, params.Action, metaJSON)
	return err
}

// AddActivities inserts a batch of activity entries in one round trip.
func (r *Repo) AddActivities(ctx context.Context, activities []ActivityParams) error {
	if len(activities) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range activities {
		metaJSON, err := marshalMetadata(a.Metadata)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO lead_activities (organization_id, lead_id, user_id, action, metadata)
			VALUES ($1, $2, $3, $4, $5)
		`, a.OrganizationID, a.LeadID, a.UserID, a.Action, metaJSON)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range activities {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) ListActivities(ctx context.Context, organizationID uuid.UUID, leadID uuid.UUID, limit, offset int) ([]Activity, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM lead_activities WHERE organization_id = $1 AND lead_id = $2
	`, organizationID, leadID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, lead_id, user_id, action, metadata, created_at
		FROM lead_activities
		WHERE organization_id = $1 AND lead_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, organizationID, leadID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var item Activity
		var metaJSON []byte
		if err := rows.Scan(&item.ID, &item.OrganizationID, &item.LeadID, &item.UserID, &item.Action, &metaJSON, &item.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &item.Metadata); err != nil {
				return nil, 0, err
			}
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return items, total, nil
}

func marshalMetadata(meta map[string]interface{}) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	return json.Marshal(meta)
}

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.OrganizationID, &lead.StageID, &lead.Status, &lead.Name,
		&lead.Email, &lead.Phone, &lead.PhoneNormalized, &lead.City,
		&lead.AssignedTo, &lead.CreatedBy, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func scanLeads(rows pgx.Rows) ([]Lead, error) {
	leads := make([]Lead, 0)
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(
			&lead.ID, &lead.OrganizationID, &lead.StageID, &lead.Status, &lead.Name,
			&lead.Email, &lead.Phone, &lead.PhoneNormalized, &lead.City,
			&lead.AssignedTo, &lead.CreatedBy, &lead.CreatedAt, &lead.UpdatedAt,
		); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}
