// Package postgres implements the store interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"brasul/fretes/internal/db"
	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/models"
	"brasul/fretes/internal/store"
	"brasul/fretes/internal/textfold"
)

const freightColumns = `id, origin, destination, cargo_type, truck_type, value, weight, freight_distance,
	contact, date, loading_date, expected_delivery_date, status,
	refrigerated, requires_mopp, toll_included, tarp_required, has_insurance, has_tracker, live_cargo, dry_cargo,
	sender_company, cargo_content, observations, created_at, updated_at`

var facetColumns = map[string]string{
	store.FacetOrigin:      "origin",
	store.FacetDestination: "destination",
	store.FacetCargoType:   "cargo_type",
	store.FacetTruckType:   "truck_type",
}

// Store implements store.Store on a *sql.DB.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

func New(conn *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: conn, logger: logger}
}

func (s *Store) Close(context.Context) error {
	return db.DisconnectPostgres(s.db, s.logger)
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func (s *Store) InsertFreight(ctx context.Context, f *models.Freight) error {
	f.GenIDIfEmpty()
	query := `INSERT INTO freights (` + freightColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`
	_, err := s.db.ExecContext(ctx, query,
		f.ID, f.Origin, f.Destination, f.CargoType, f.TruckType,
		nullFloat(f.Value), nullFloat(f.WeightKg), nullFloat(f.DistanceKm),
		f.Contact, f.Date, nullTime(f.LoadingDate), nullTime(f.ExpectedDeliveryDate), string(f.Status),
		f.Refrigerated, f.RequiresMopp, f.TollIncluded, f.TarpRequired, f.HasInsurance, f.HasTracker, f.LiveCargo, f.DryCargo,
		f.SenderCompany, f.CargoContent, f.Observations, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		if db.IsPostgresUniqueViolation(err) {
			return fmt.Errorf("insert freight %s: %w", f.ID, db.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert freight: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFreight(row rowScanner) (models.Freight, error) {
	var (
		f                   models.Freight
		value, weight, dist sql.NullFloat64
		loading, delivery   sql.NullTime
		status              string
	)
	err := row.Scan(
		&f.ID, &f.Origin, &f.Destination, &f.CargoType, &f.TruckType,
		&value, &weight, &dist,
		&f.Contact, &f.Date, &loading, &delivery, &status,
		&f.Refrigerated, &f.RequiresMopp, &f.TollIncluded, &f.TarpRequired, &f.HasInsurance, &f.HasTracker, &f.LiveCargo, &f.DryCargo,
		&f.SenderCompany, &f.CargoContent, &f.Observations, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return models.Freight{}, err
	}
	f.Value = floatPtr(value)
	f.WeightKg = floatPtr(weight)
	f.DistanceKm = floatPtr(dist)
	f.LoadingDate = timePtr(loading)
	f.ExpectedDeliveryDate = timePtr(delivery)
	f.Status = models.FreightStatus(status)
	return f, nil
}

func (s *Store) FindFreightByID(ctx context.Context, id string) (*models.Freight, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+freightColumns+` FROM freights WHERE id = $1`, id)
	f, err := scanFreight(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find freight: %w", err)
	}
	return &f, nil
}

func (s *Store) SearchFreights(ctx context.Context, filter freight.Filter, page freight.Page) ([]models.Freight, error) {
	where, args, err := whereClause(filter, nil)
	if err != nil {
		return nil, err
	}
	args = append(args, page.Limit(), page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM freights%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		freightColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute freight search query: %w", err)
	}
	defer rows.Close()

	result := []models.Freight{}
	for rows.Next() {
		f, err := scanFreight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan freight: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate freights: %w", err)
	}
	return result, nil
}

func (s *Store) CountFreights(ctx context.Context, filter freight.Filter) (int64, error) {
	where, args, err := whereClause(filter, nil)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM freights`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count freights: %w", err)
	}
	return n, nil
}

func (s *Store) DistinctFreightValues(ctx context.Context, field string) ([]string, error) {
	col, ok := facetColumns[field]
	if !ok {
		return nil, fmt.Errorf("unsupported facet field %q", field)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT %[1]s FROM freights WHERE %[1]s <> '' ORDER BY %[1]s`, col))
	if err != nil {
		return nil, fmt.Errorf("failed to list distinct %s: %w", col, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan distinct %s: %w", col, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *Store) LatestFreightCreatedAt(ctx context.Context) (*time.Time, error) {
	var latest sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM freights`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to read latest freight time: %w", err)
	}
	return timePtr(latest), nil
}

func (s *Store) DeleteFreightsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM freights WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old freights: %w", err)
	}
	return res.RowsAffected()
}

const agentColumns = `id, code, name, email, phone, city, experience, motivation, active, created_at`

func scanAgent(row rowScanner) (models.Agent, error) {
	var a models.Agent
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Email, &a.Phone, &a.City, &a.Experience, &a.Motivation, &a.Active, &a.CreatedAt)
	return a, err
}

func (s *Store) InsertAgent(ctx context.Context, a *models.Agent) error {
	a.GenIDIfEmpty()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agents (`+agentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.Code, a.Name, a.Email, a.Phone, a.City, a.Experience, a.Motivation, a.Active, a.CreatedAt)
	if err != nil {
		if db.IsPostgresUniqueViolation(err) {
			return fmt.Errorf("insert agent %s: %w", a.Code, db.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert agent: %w", err)
	}
	return nil
}

func (s *Store) MaxAgentCode(ctx context.Context) (string, bool, error) {
	var code string
	err := s.db.QueryRowContext(ctx, `SELECT code FROM agents ORDER BY length(code) DESC, code DESC LIMIT 1`).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read highest agent code: %w", err)
	}
	return code, true, nil
}

func (s *Store) FindAgentByCode(ctx context.Context, code string) (*models.Agent, error) {
	a, err := scanAgent(s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find agent: %w", err)
	}
	return &a, nil
}

func (s *Store) ListAgents(ctx context.Context, activeOnly bool) ([]models.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE ($1 = FALSE OR active) ORDER BY code`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	agents := []models.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *Store) SetAgentActive(ctx context.Context, code string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE agents SET active = $2 WHERE code = $1`, code, active)
	if err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update agent: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertReferral(ctx context.Context, r *models.AgentReferral) error {
	r.GenIDIfEmpty()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO freight_agent_referrals (id, freight_id, agent_code, contact_date, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.FreightID, r.AgentCode, r.ContactDate, r.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return fmt.Errorf("referral %s/%s: %w", r.FreightID, r.AgentCode, store.ErrNotFound)
		}
		return fmt.Errorf("failed to insert referral: %w", err)
	}
	return nil
}

func (s *Store) ListReferrals(ctx context.Context, agentCode string, limit int) ([]models.AgentReferral, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, freight_id, agent_code, contact_date, created_at FROM freight_agent_referrals
		 WHERE ($1 = '' OR agent_code = $1) ORDER BY contact_date DESC LIMIT NULLIF($2, 0)`, agentCode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer rows.Close()

	result := []models.AgentReferral{}
	for rows.Next() {
		var r models.AgentReferral
		if err := rows.Scan(&r.ID, &r.FreightID, &r.AgentCode, &r.ContactDate, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) SearchMunicipalities(ctx context.Context, q store.MunicipalityQuery) ([]models.Municipality, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if q.Exact {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, name, state, lat, lng FROM municipalities
			 WHERE ($1 = '' OR state = $1) AND lower(name) = lower($2)
			 ORDER BY name LIMIT NULLIF($3, 0)`, q.State, q.Name, q.Limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, name, state, lat, lng FROM municipalities
			 WHERE ($1 = '' OR state = $1) AND translate(lower(name), $4, $5) LIKE $2
			 ORDER BY name LIMIT NULLIF($3, 0)`,
			q.State, "%"+likeEscaper.Replace(textfold.Fold(q.Name))+"%", q.Limit, textfold.Accented, textfold.Plain)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search municipalities: %w", err)
	}
	defer rows.Close()

	result := []models.Municipality{}
	for rows.Next() {
		var m models.Municipality
		if err := rows.Scan(&m.ID, &m.Name, &m.State, &m.Lat, &m.Lng); err != nil {
			return nil, fmt.Errorf("failed to scan municipality: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
