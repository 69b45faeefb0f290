package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/streamwatch/streamwatch/internal/models"
)

// AddEntity registers an entity under its natural key (platform,
// identifier). The call is idempotent: if the key already exists the
// stored entity is returned together with ErrAlreadyExists, and no second
// row is ever created.
func (s *Store) AddEntity(platform models.Platform, identifier, displayName string) (*models.Entity, error) {
	ts, err := tablesFor(platform)
	if err != nil {
		return nil, err
	}
	if identifier == "" {
		return nil, fmt.Errorf("empty identifier for %s entity", platform)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.entityByIdentifier(platform, ts, identifier); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, ErrAlreadyExists
	}

	addedAt := time.Now().UTC()
	res, err := s.db.Exec(
		fmt.Sprintf("INSERT INTO %s (%s, display_name, added_at) VALUES (?, ?, ?)", ts.entities, ts.identifierCol),
		identifier, displayName, fmtTime(addedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert %s entity: %w", platform, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Entity{
		ID:          id,
		Platform:    platform,
		Identifier:  identifier,
		DisplayName: displayName,
		AddedAt:     addedAt,
	}, nil
}

// Entity looks an entity up by natural key.
func (s *Store) Entity(platform models.Platform, identifier string) (*models.Entity, error) {
	ts, err := tablesFor(platform)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entityByIdentifier(platform, ts, identifier)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrUnknownEntity
	}
	return e, nil
}

// EntityByID looks an entity up by its row id.
func (s *Store) EntityByID(ref models.Ref) (*models.Entity, error) {
	ts, err := tablesFor(ref.Platform)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entityByID(ref.Platform, ts, ref.EntityID)
}

// Entities lists all entities for a platform in insertion order.
func (s *Store) Entities(platform models.Platform) ([]models.Entity, error) {
	ts, err := tablesFor(platform)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		fmt.Sprintf("SELECT id, %s, display_name, added_at FROM %s ORDER BY id", ts.identifierCol, ts.entities),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Entity
	for rows.Next() {
		e, err := scanEntity(rows, platform)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// DeleteEntity removes the entity, all of its records and sub-records, and
// fires the delete hook so the scheduler cancels the matching job. Orphaned
// jobs are never left behind.
func (s *Store) DeleteEntity(ref models.Ref) error {
	ts, err := tablesFor(ref.Platform)
	if err != nil {
		return err
	}

	s.mu.Lock()
	res, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", ts.entities), ref.EntityID)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("delete %s entity: %w", ref.Platform, err)
	}
	n, err := res.RowsAffected()
	hook := s.onDelete
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUnknownEntity
	}

	// Fired outside the store lock: the hook calls back into the scheduler,
	// which may itself be holding its own lock while calling the store.
	if hook != nil {
		hook(ref)
	}
	return nil
}

func (s *Store) entityByIdentifier(platform models.Platform, ts tableSet, identifier string) (*models.Entity, error) {
	row := s.db.QueryRow(
		fmt.Sprintf("SELECT id, %s, display_name, added_at FROM %s WHERE %s = ?", ts.identifierCol, ts.entities, ts.identifierCol),
		identifier,
	)
	return scanEntityRow(row, platform)
}

func (s *Store) entityByID(platform models.Platform, ts tableSet, id int64) (*models.Entity, error) {
	row := s.db.QueryRow(
		fmt.Sprintf("SELECT id, %s, display_name, added_at FROM %s WHERE id = ?", ts.identifierCol, ts.entities),
		id,
	)
	e, err := scanEntityRow(row, platform)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrUnknownEntity
	}
	return e, nil
}

// entityExists is the pre-write existence check used by AppendRecord. The
// caller must hold s.mu.
func (s *Store) entityExists(ts tableSet, id int64) (bool, error) {
	var one int
	err := s.db.QueryRow(fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", ts.entities), id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(r rowScanner, platform models.Platform) (*models.Entity, error) {
	var (
		e       models.Entity
		display sql.NullString
		added   string
	)
	if err := r.Scan(&e.ID, &e.Identifier, &display, &added); err != nil {
		return nil, err
	}
	e.Platform = platform
	e.DisplayName = display.String
	e.AddedAt = parseTime(added)
	return &e, nil
}

func scanEntityRow(row *sql.Row, platform models.Platform) (*models.Entity, error) {
	e, err := scanEntity(row, platform)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
