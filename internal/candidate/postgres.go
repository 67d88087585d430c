package candidate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/onnwee/talentboard/internal/ranking"
	"github.com/onnwee/talentboard/internal/tracing"
)

// rerankLockKey is the pg_advisory_xact_lock key held while ranks are rewritten.
const rerankLockKey = 727_100

// profileColumns selects a candidate with its ranking and most recent evaluation.
const profileColumns = `
	c.id, c.name, c.years_experience, c.skills, c.created_at,
	r.overall_score, r.rank, r.updated_at,
	e.id, e.crisis_management_score, e.sustainability_score, e.team_motivation_score,
	e.feedback, e.evaluated_at
`

const latestEvaluationJoin = `
	LEFT JOIN LATERAL (
		SELECT ev.id, ev.crisis_management_score, ev.sustainability_score,
		       ev.team_motivation_score, ev.feedback, ev.evaluated_at
		FROM evaluations ev
		WHERE ev.candidate_id = c.id
		ORDER BY ev.evaluated_at DESC, ev.id DESC
		LIMIT 1
	) e ON TRUE
`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns every candidate with its ranking and current evaluation.
func (r *PostgresRepository) List(ctx context.Context) (profiles []*Profile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "candidates", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + profileColumns + `
		FROM candidates c
		LEFT JOIN rankings r ON r.candidate_id = c.id
		` + latestEvaluationJoin + `
		ORDER BY c.id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// Get returns one candidate with its ranking and current evaluation.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (profile *Profile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "candidates", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + profileColumns + `
		FROM candidates c
		LEFT JOIN rankings r ON r.candidate_id = c.id
		` + latestEvaluationJoin + `
		WHERE c.id = $1`

	profile, err = scanProfile(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCandidateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return profile, nil
}

// Create stores a new candidate.
func (r *PostgresRepository) Create(ctx context.Context, c *Candidate) (created *Candidate, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "candidates", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	skills, err := json.Marshal(c.Skills)
	if err != nil {
		return nil, fmt.Errorf("failed to encode skills: %w", err)
	}

	created = c.clone()
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO candidates (name, years_experience, skills)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.Name, c.YearsExperience, string(skills)).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}
	return created, nil
}

// Count returns the number of stored candidates.
func (r *PostgresRepository) Count(ctx context.Context) (n int, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "candidates", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count candidates: %w", err)
	}
	return n, nil
}

// CountRanked returns the number of ranking rows.
func (r *PostgresRepository) CountRanked(ctx context.Context) (n int, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "rankings", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rankings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rankings: %w", err)
	}
	return n, nil
}

// RecordEvaluation inserts the evaluation and upserts the ranking in one transaction.
func (r *PostgresRepository) RecordEvaluation(ctx context.Context, e *Evaluation, overallScore float64) (stored *Evaluation, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "evaluations", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM candidates WHERE id = $1 FOR SHARE`, e.CandidateID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCandidateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock candidate: %w", err)
	}

	var evaluatedAt sql.NullTime
	if !e.EvaluatedAt.IsZero() {
		evaluatedAt = sql.NullTime{Time: e.EvaluatedAt, Valid: true}
	}

	out := *e
	err = tx.QueryRowContext(ctx, `
		INSERT INTO evaluations (
			candidate_id, crisis_management_score, sustainability_score,
			team_motivation_score, feedback, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, COALESCE($6::timestamptz, NOW()))
		RETURNING id, evaluated_at
	`, e.CandidateID, e.CrisisScore, e.SustainabilityScore, e.MotivationScore, e.Feedback, evaluatedAt,
	).Scan(&out.ID, &out.EvaluatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert evaluation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rankings (candidate_id, overall_score, rank, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (candidate_id) DO UPDATE
		SET overall_score = EXCLUDED.overall_score,
		    updated_at = NOW()
	`, e.CandidateID, overallScore)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert ranking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit evaluation: %w", err)
	}
	return &out, nil
}

// ListEvaluations returns a candidate's evaluations, newest first.
func (r *PostgresRepository) ListEvaluations(ctx context.Context, candidateID int64) (evals []*Evaluation, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "evaluations", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM candidates WHERE id = $1)`, candidateID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check candidate: %w", err)
	}
	if !exists {
		return nil, ErrCandidateNotFound
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, candidate_id, crisis_management_score, sustainability_score,
		       team_motivation_score, feedback, evaluated_at
		FROM evaluations
		WHERE candidate_id = $1
		ORDER BY evaluated_at DESC, id DESC
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	evals = []*Evaluation{}
	for rows.Next() {
		e := &Evaluation{}
		if err = rows.Scan(&e.ID, &e.CandidateID, &e.CrisisScore, &e.SustainabilityScore,
			&e.MotivationScore, &e.Feedback, &e.EvaluatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evals = append(evals, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluations: %w", err)
	}
	return evals, nil
}

// Leaderboard returns ranked candidates ordered by overall score descending.
func (r *PostgresRepository) Leaderboard(ctx context.Context, limit int) (profiles []*Profile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "rankings", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	// LIMIT NULL is LIMIT ALL.
	var limitArg sql.NullInt64
	if limit > 0 {
		limitArg = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	query := `SELECT ` + profileColumns + `
		FROM rankings r
		JOIN candidates c ON c.id = r.candidate_id
		` + latestEvaluationJoin + `
		ORDER BY r.overall_score DESC, r.candidate_id ASC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limitArg)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// RewriteRanks re-ranks every ranked candidate inside one transaction guarded
// by an advisory lock, writing only the rows whose rank changed.
func (r *PostgresRepository) RewriteRanks(ctx context.Context, rerank RerankFunc) (ranked []ranking.Entry, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "rankings", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, rerankLockKey); err != nil {
		return nil, fmt.Errorf("failed to acquire rerank lock: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT candidate_id, overall_score, rank FROM rankings FOR UPDATE`)
	if err != nil {
		return nil, fmt.Errorf("failed to load rankings: %w", err)
	}
	var current []ranking.Entry
	for rows.Next() {
		var e ranking.Entry
		if err = rows.Scan(&e.CandidateID, &e.OverallScore, &e.Rank); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		current = append(current, e)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating rankings: %w", err)
	}
	rows.Close()

	ranked = rerank(current)
	changed := ranking.Changed(current, ranked)

	if len(changed) > 0 {
		ids := make([]int64, len(changed))
		ranks := make([]int64, len(changed))
		for i, e := range changed {
			ids[i] = e.CandidateID
			ranks[i] = int64(e.Rank)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE rankings AS r
			SET rank = v.rank, updated_at = NOW()
			FROM unnest($1::bigint[], $2::int[]) AS v(candidate_id, rank)
			WHERE r.candidate_id = v.candidate_id
		`, pq.Array(ids), pq.Array(ranks))
		if err != nil {
			return nil, fmt.Errorf("failed to write ranks: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ranks: %w", err)
	}
	return ranked, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfiles(rows *sql.Rows) ([]*Profile, error) {
	profiles := []*Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return profiles, nil
}

func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p          Profile
		skills     []byte
		overall    sql.NullFloat64
		rank       sql.NullInt64
		updatedAt  sql.NullTime
		evalID     sql.NullInt64
		crisis     sql.NullInt64
		sustain    sql.NullInt64
		motivation sql.NullInt64
		feedback   sql.NullString
		evalAt     sql.NullTime
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.YearsExperience, &skills, &p.CreatedAt,
		&overall, &rank, &updatedAt,
		&evalID, &crisis, &sustain, &motivation, &feedback, &evalAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(skills, &p.Skills); err != nil {
		return nil, fmt.Errorf("failed to decode skills for candidate %d: %w", p.ID, err)
	}

	if overall.Valid {
		p.Ranking = &Ranking{
			CandidateID:  p.ID,
			OverallScore: overall.Float64,
			Rank:         int(rank.Int64),
			UpdatedAt:    updatedAt.Time,
		}
	}
	if evalID.Valid {
		p.Evaluation = &Evaluation{
			ID:                  evalID.Int64,
			CandidateID:         p.ID,
			CrisisScore:         int(crisis.Int64),
			SustainabilityScore: int(sustain.Int64),
			MotivationScore:     int(motivation.Int64),
			Feedback:            feedback.String,
			EvaluatedAt:         evalAt.Time,
		}
	}
	return &p, nil
}
