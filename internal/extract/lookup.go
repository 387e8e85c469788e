package extract

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier runs the lookup queries. skyload.SessionConn satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	classLookupSQL  = `SELECT class_id, name FROM class`
	objectLookupSQL = `SELECT object_id, obj_id FROM celestial_object WHERE obj_id = ANY($1)`
)

// ClassLookup maps class names to their surrogate keys.
type ClassLookup struct {
	ids map[string]int32
}

// NewClassLookup builds a lookup from known pairs.
func NewClassLookup(ids map[string]int32) *ClassLookup {
	return &ClassLookup{ids: ids}
}

// ID returns the key for name.
func (l *ClassLookup) ID(name string) (int32, bool) {
	id, ok := l.ids[name]
	return id, ok
}

// Len returns the number of known classes.
func (l *ClassLookup) Len() int { return len(l.ids) }

// LoadClassLookup reads every committed class.
func LoadClassLookup(ctx context.Context, q Querier) (*ClassLookup, error) {
	rows, err := q.Query(ctx, classLookupSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to load class lookup: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int32)
	for rows.Next() {
		var (
			id   int32
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan class lookup: %w", err)
		}
		ids[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load class lookup: %w", err)
	}
	return NewClassLookup(ids), nil
}

// ObjectLookup maps survey object ids to their surrogate keys.
type ObjectLookup struct {
	ids map[int64]int64
}

// NewObjectLookup builds a lookup from known pairs.
func NewObjectLookup(ids map[int64]int64) *ObjectLookup {
	return &ObjectLookup{ids: ids}
}

// ID returns the surrogate key for the survey object id objID.
func (l *ObjectLookup) ID(objID int64) (int64, bool) {
	id, ok := l.ids[objID]
	return id, ok
}

// Len returns the number of known objects.
func (l *ObjectLookup) Len() int { return len(l.ids) }

// LoadObjectLookup reads the committed objects whose survey ids appear in
// objIDs, in a single query.
func LoadObjectLookup(ctx context.Context, q Querier, objIDs []int64) (*ObjectLookup, error) {
	ids := make(map[int64]int64, len(objIDs))
	if len(objIDs) == 0 {
		return NewObjectLookup(ids), nil
	}

	rows, err := q.Query(ctx, objectLookupSQL, objIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load object lookup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var objectID, objID int64
		if err := rows.Scan(&objectID, &objID); err != nil {
			return nil, fmt.Errorf("failed to scan object lookup: %w", err)
		}
		ids[objID] = objectID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load object lookup: %w", err)
	}
	return NewObjectLookup(ids), nil
}
