package db

import (
	"context"

	"github.com/lib/pq"

	"github.com/kompassi/kompassi/internal/models"
)

const personColumns = `p.id, p.first_name, p.surname, p.nick, p.email, p.user_id, p.telegram_chat_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner, p *models.Person) error {
	return row.Scan(&p.ID, &p.FirstName, &p.Surname, &p.Nick, &p.Email, &p.UserID, &p.TelegramChatID)
}

func (s *Store) GetPerson(ctx context.Context, id int64) (models.Person, error) {
	var p models.Person
	err := scanPerson(s.q.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people p WHERE p.id = $1`, id), &p)
	return p, notFound(err)
}

// PersonByUser returns the person record of a user account.
func (s *Store) PersonByUser(ctx context.Context, userID int64) (models.Person, error) {
	var p models.Person
	err := scanPerson(s.q.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people p WHERE p.user_id = $1`, userID), &p)
	return p, notFound(err)
}

func (s *Store) CreatePerson(ctx context.Context, p *models.Person) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO people (first_name, surname, nick, email, user_id, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.FirstName, p.Surname, p.Nick, p.Email, p.UserID, p.TelegramChatID).Scan(&p.ID)
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO users (username) VALUES ($1) RETURNING id
	`, u.Username).Scan(&u.ID)
}

func (s *Store) GroupByName(ctx context.Context, name string) (models.Group, error) {
	var g models.Group
	err := s.q.QueryRowContext(ctx, `SELECT id, name FROM groups WHERE name = $1`, name).Scan(&g.ID, &g.Name)
	return g, notFound(err)
}

// EnsureGroup returns the group with the given name, creating it when missing.
func (s *Store) EnsureGroup(ctx context.Context, name string) (models.Group, error) {
	g := models.Group{Name: name}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO groups (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&g.ID)
	return g, err
}

// EnsureGroupMembership adds the user to groups in add and removes it from groups in remove.
func (s *Store) EnsureGroupMembership(ctx context.Context, userID int64, add, remove []int64) error {
	return s.inTx(ctx, func(tx *Store) error {
		if len(add) > 0 {
			if _, err := tx.q.ExecContext(ctx, `
				INSERT INTO user_groups (user_id, group_id)
				SELECT $1, g FROM unnest($2::bigint[]) AS g
				ON CONFLICT DO NOTHING
			`, userID, pq.Array(add)); err != nil {
				return err
			}
		}
		if len(remove) > 0 {
			if _, err := tx.q.ExecContext(ctx, `
				DELETE FROM user_groups WHERE user_id = $1 AND group_id = ANY($2)
			`, userID, pq.Array(remove)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) UserGroups(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT g.name FROM user_groups ug JOIN groups g ON g.id = ug.group_id
		WHERE ug.user_id = $1 ORDER BY g.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
