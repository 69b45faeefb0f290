package store

import (
	"fmt"
	"io"
	"strings"
)

// Export writes a full SQL text dump of the store: schema plus one INSERT
// per row, wrapped in a transaction. The dump is stable (tables and rows in
// deterministic order) and sufficient to reconstruct the session database.
// This is the only sanctioned way data outlives the session.
func (s *Store) Export(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(w, "BEGIN TRANSACTION;\n"); err != nil {
		return err
	}

	rows, err := s.db.Query(
		"SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
	)
	if err != nil {
		return err
	}

	type table struct{ name, ddl string }
	var tableList []table
	for rows.Next() {
		var t table
		if err := rows.Scan(&t.name, &t.ddl); err != nil {
			rows.Close()
			return err
		}
		tableList = append(tableList, t)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, t := range tableList {
		if _, err := fmt.Fprintf(w, "%s;\n", t.ddl); err != nil {
			return err
		}
		if err := s.dumpRows(w, t.name); err != nil {
			return err
		}
	}

	if err := s.dumpIndexes(w); err != nil {
		return err
	}

	_, err = io.WriteString(w, "COMMIT;\n")
	return err
}

// dumpIndexes emits index DDL after the table data. Auto-indexes carry no
// sql text in sqlite_master and are skipped.
func (s *Store) dumpIndexes(w io.Writer) error {
	rows, err := s.db.Query(
		"SELECT sql FROM sqlite_master WHERE type = 'index' AND sql IS NOT NULL AND name NOT LIKE 'sqlite_%' ORDER BY name",
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ddl string
		if err := rows.Scan(&ddl); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s;\n", ddl); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) dumpRows(w io.Writer, table string) error {
	rows, err := s.db.Query(fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		lits := make([]string, len(values))
		for i, v := range values {
			lits[i] = sqlLiteral(v)
		}
		if _, err := fmt.Fprintf(w, "INSERT INTO %s (%s) VALUES (%s);\n",
			table, strings.Join(cols, ", "), strings.Join(lits, ", ")); err != nil {
			return err
		}
	}
	return rows.Err()
}

func sqlLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return fmt.Sprintf("%d", x)
	case float64:
		return fmt.Sprintf("%g", x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []byte:
		return "'" + strings.ReplaceAll(string(x), "'", "''") + "'"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(x), "'", "''") + "'"
	}
}
