// Package audit keeps an optional log of applied assessments in Postgres.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/NutriPredict/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS assessments (
    id BIGSERIAL PRIMARY KEY,
    session_id TEXT NOT NULL,
    contract_version TEXT NOT NULL,
    payload JSONB NOT NULL,
    deficiency_risk TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    raw_prediction DOUBLE PRECISION NOT NULL,
    recommendations JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_session ON assessments(session_id, created_at);
`

// DB is the subset of pgxpool.Pool the log needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// Record is one stored assessment.
type Record struct {
	SessionID       string          `json:"session_id"`
	ContractVersion string          `json:"contract_version"`
	Payload         json.RawMessage `json:"payload"`
	DeficiencyRisk  string          `json:"deficiency_risk"`
	Confidence      float64         `json:"confidence"`
	RawPrediction   float64         `json:"raw_prediction"`
	Recommendations []string        `json:"recommendations"`
	CreatedAt       time.Time       `json:"created_at"`
}

type Log struct {
	db  DB
	now func() time.Time
}

func NewLog(db DB) *Log {
	return &Log{db: db, now: time.Now}
}

// EnsureSchema creates the assessments table when missing.
func (l *Log) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create assessments schema: %w", err)
	}
	return nil
}

// RecordAssessment implements session.Recorder.
func (l *Log) RecordAssessment(ctx context.Context, a session.Assessment) error {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	recs, err := json.Marshal(a.Result.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	_, err = l.db.Exec(ctx, `
        INSERT INTO assessments (session_id, contract_version, payload, deficiency_risk,
            confidence, raw_prediction, recommendations, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.SessionID, a.Version.String(), payload, string(a.Result.DeficiencyRisk),
		a.Result.Confidence, a.Result.RawPrediction, recs, l.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// ListSession returns the assessments recorded for a session, oldest first.
func (l *Log) ListSession(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.Query(ctx, `
        SELECT session_id, contract_version, payload, deficiency_risk,
            confidence, raw_prediction, recommendations, created_at
        FROM assessments
        WHERE session_id = $1
        ORDER BY created_at, id
        LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var payload, recs []byte
		if err := rows.Scan(&r.SessionID, &r.ContractVersion, &payload, &r.DeficiencyRisk,
			&r.Confidence, &r.RawPrediction, &recs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		r.Payload = payload
		if err := json.Unmarshal(recs, &r.Recommendations); err != nil {
			return nil, fmt.Errorf("decode recommendations: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}
