package migrations

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upMakeRoleEventSpecific, downMakeRoleEventSpecific)
}

// Roles used to be global. Every programme role pointing at a class-less role is moved to
// an event specific copy of that role, bound to the event's programme personnel class.
func upMakeRoleEventSpecific(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE personnel_classes SET app_label = 'programme' WHERE name ILIKE '%ohjelma%'
	`); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT pr.id, c.event_id, r.title, r.require_contact_info, r.is_default, r.is_public
		FROM programme_roles pr
		JOIN roles r ON r.id = pr.role_id
		JOIN programmes p ON p.id = pr.programme_id
		JOIN categories c ON c.id = p.category_id
		WHERE r.personnel_class_id IS NULL
		ORDER BY pr.id
	`)
	if err != nil {
		return err
	}
	type pending struct {
		roleID, eventID                     int64
		title                               string
		requireContact, isDefault, isPublic bool
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.roleID, &p.eventID, &p.title, &p.requireContact, &p.isDefault, &p.isPublic); err != nil {
			_ = rows.Close()
			return err
		}
		todo = append(todo, p)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, p := range todo {
		pcID, err := programmePersonnelClass(ctx, tx, p.eventID)
		if err != nil {
			return err
		}

		var roleID int64
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM roles WHERE personnel_class_id = $1 AND title = $2 LIMIT 1
		`, pcID, p.title).Scan(&roleID)
		if errors.Is(err, sql.ErrNoRows) {
			err = tx.QueryRowContext(ctx, `
				INSERT INTO roles (personnel_class_id, title, require_contact_info, is_default, is_public)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, pcID, p.title, p.requireContact, p.isDefault, p.isPublic).Scan(&roleID)
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE programme_roles SET role_id = $1 WHERE id = $2`, roleID, p.roleID); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM roles WHERE personnel_class_id IS NULL`)
	return err
}

func programmePersonnelClass(ctx context.Context, tx *sql.Tx, eventID int64) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM personnel_classes
		WHERE event_id = $1 AND name IN ('Ohjelma', 'Ohjelmanjärjestäjä')
		ORDER BY id LIMIT 1
	`, eventID).Scan(&id)
	if !errors.Is(err, sql.ErrNoRows) {
		return id, err
	}
	// 0, 30 and 40 are all in use; 40 is the most common.
	err = tx.QueryRowContext(ctx, `
		INSERT INTO personnel_classes (event_id, app_label, name, slug, priority)
		VALUES ($1, 'programme', 'Ohjelmanjärjestäjä', 'ohjelma', 40)
		RETURNING id
	`, eventID).Scan(&id)
	return id, err
}

func downMakeRoleEventSpecific(ctx context.Context, tx *sql.Tx) error {
	return nil
}
