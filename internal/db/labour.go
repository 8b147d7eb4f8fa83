package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/kompassi/kompassi/internal/models"
)

func (s *Store) CreatePersonnelClass(ctx context.Context, pc *models.PersonnelClass) error {
	if pc.AppLabel == "" {
		pc.AppLabel = "labour"
	}
	return s.q.QueryRowContext(ctx, `
		INSERT INTO personnel_classes (event_id, slug, name, app_label, priority)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, pc.EventID, pc.Slug, pc.Name, pc.AppLabel, pc.Priority).Scan(&pc.ID)
}

func (s *Store) PersonnelClassBySlug(ctx context.Context, eventID int64, slug string) (models.PersonnelClass, error) {
	var pc models.PersonnelClass
	err := s.q.QueryRowContext(ctx, `
		SELECT id, event_id, slug, name, app_label, priority
		FROM personnel_classes WHERE event_id = $1 AND slug = $2
	`, eventID, slug).Scan(&pc.ID, &pc.EventID, &pc.Slug, &pc.Name, &pc.AppLabel, &pc.Priority)
	return pc, notFound(err)
}

// SaveLabourSignup upserts the signup of (event, person) and replaces its personnel classes.
func (s *Store) SaveLabourSignup(ctx context.Context, ls *models.LabourSignup, classIDs []int64) error {
	return s.inTx(ctx, func(tx *Store) error {
		if err := tx.q.QueryRowContext(ctx, `
			INSERT INTO labour_signups (event_id, person_id, is_active) VALUES ($1, $2, $3)
			ON CONFLICT (event_id, person_id) DO UPDATE SET is_active = EXCLUDED.is_active
			RETURNING id, created_at
		`, ls.EventID, ls.PersonID, ls.IsActive).Scan(&ls.ID, &ls.CreatedAt); err != nil {
			return err
		}
		if _, err := tx.q.ExecContext(ctx, `
			DELETE FROM labour_signup_personnel_classes WHERE signup_id = $1
		`, ls.ID); err != nil {
			return err
		}
		_, err := tx.q.ExecContext(ctx, `
			INSERT INTO labour_signup_personnel_classes (signup_id, personnel_class_id)
			SELECT $1, c FROM unnest($2::bigint[]) AS c
		`, ls.ID, pq.Array(classIDs))
		return err
	})
}

const signupExtraColumns = `x.id, x.event_id, x.person_id, x.is_active, x.special_diets, x.special_diet_other, x.fields`

func scanSignupExtra(row scanner, x *models.SignupExtra, extra ...any) error {
	var raw []byte
	dest := append([]any{&x.ID, &x.EventID, &x.PersonID, &x.IsActive, pq.Array(&x.SpecialDiets), &x.SpecialDietOther, &raw}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	x.Fields = map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &x.Fields); err != nil {
			return fmt.Errorf("signup extra %d fields: %w", x.ID, err)
		}
	}
	return nil
}

func (s *Store) SignupExtra(ctx context.Context, eventID, personID int64) (models.SignupExtra, error) {
	var x models.SignupExtra
	err := scanSignupExtra(s.q.QueryRowContext(ctx, `
		SELECT `+signupExtraColumns+` FROM signup_extras x WHERE x.event_id = $1 AND x.person_id = $2
	`, eventID, personID), &x)
	return x, notFound(err)
}

func (s *Store) SaveSignupExtra(ctx context.Context, x *models.SignupExtra) error {
	fields := x.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	diets := x.SpecialDiets
	if diets == nil {
		diets = []string{}
	}
	return s.q.QueryRowContext(ctx, `
		INSERT INTO signup_extras (event_id, person_id, is_active, special_diets, special_diet_other, fields)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		ON CONFLICT (event_id, person_id) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			special_diets = EXCLUDED.special_diets,
			special_diet_other = EXCLUDED.special_diet_other,
			fields = EXCLUDED.fields
		RETURNING id
	`, x.EventID, x.PersonID, x.IsActive, pq.Array(diets), x.SpecialDietOther, string(raw)).Scan(&x.ID)
}

// ActiveSignupExtras lists the active extras of an event with their people.
func (s *Store) ActiveSignupExtras(ctx context.Context, eventID int64) ([]models.PersonSignupExtra, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+signupExtraColumns+`, `+personColumns+`
		FROM signup_extras x JOIN people p ON p.id = x.person_id
		WHERE x.event_id = $1 AND x.is_active
		ORDER BY p.surname, p.first_name, p.id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PersonSignupExtra
	for rows.Next() {
		var pe models.PersonSignupExtra
		p := &pe.Person
		if err := scanSignupExtra(rows, &pe.SignupExtra,
			&p.ID, &p.FirstName, &p.Surname, &p.Nick, &p.Email, &p.UserID, &p.TelegramChatID,
		); err != nil {
			return nil, err
		}
		out = append(out, pe)
	}
	return out, rows.Err()
}
