package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/programme"
)

const programmeColumns = `
	p.id, p.category_id, p.slug, p.title, p.description, p.long_description,
	p.three_word_description, p.state, p.frozen, p.start_time, p.length, p.end_time,
	p.room_id, p.language, p.rpg_system, p.is_english_ok, p.is_children_friendly,
	p.is_age_restricted, p.is_beginner_friendly, p.is_intended_for_experienced_participants,
	p.min_players, p.max_players, p.ropecon2018_is_no_language, p.ropecon_genres,
	p.ropecon_styles, p.is_using_paikkala, p.paikkala_program_id, p.notes, p.video_link,
	p.signup_link, p.created_at, p.updated_at`

func scanProgramme(row scanner, p *models.Programme) error {
	return row.Scan(
		&p.ID, &p.CategoryID, &p.Slug, &p.Title, &p.Description, &p.LongDescription,
		&p.ThreeWordDescription, &p.State, &p.Frozen, &p.StartTime, &p.Length, &p.EndTime,
		&p.RoomID, &p.Language, &p.RPGSystem, &p.IsEnglishOK, &p.IsChildrenFriendly,
		&p.IsAgeRestricted, &p.IsBeginnerFriendly, &p.IsIntendedForExperiencedParticipants,
		&p.MinPlayers, &p.MaxPlayers, &p.RopeconIsNoLanguage, pq.Array(&p.RopeconGenres),
		pq.Array(&p.RopeconStyles), &p.IsUsingPaikkala, &p.PaikkalaProgramID, &p.Notes, &p.VideoLink,
		&p.SignupLink, &p.CreatedAt, &p.UpdatedAt,
	)
}

func programmeArgs(p *models.Programme) []any {
	genres, styles := p.RopeconGenres, p.RopeconStyles
	if genres == nil {
		genres = []string{}
	}
	if styles == nil {
		styles = []string{}
	}
	return []any{
		p.CategoryID, p.Slug, p.Title, p.Description, p.LongDescription,
		p.ThreeWordDescription, string(p.State), p.Frozen, p.StartTime, p.Length, p.EndTime,
		p.RoomID, p.Language, p.RPGSystem, p.IsEnglishOK, p.IsChildrenFriendly,
		p.IsAgeRestricted, p.IsBeginnerFriendly, p.IsIntendedForExperiencedParticipants,
		p.MinPlayers, p.MaxPlayers, p.RopeconIsNoLanguage, pq.Array(genres),
		pq.Array(styles), p.IsUsingPaikkala, p.Notes, p.VideoLink, p.SignupLink, p.UpdatedAt,
	}
}

func (s *Store) GetProgramme(ctx context.Context, id int64) (models.Programme, error) {
	var p models.Programme
	err := scanProgramme(s.q.QueryRowContext(ctx, `SELECT `+programmeColumns+` FROM programmes p WHERE p.id = $1`, id), &p)
	return p, notFound(err)
}

// LockProgramme reads the programme FOR UPDATE. Only meaningful inside InTx.
func (s *Store) LockProgramme(ctx context.Context, id int64) (models.Programme, error) {
	var p models.Programme
	err := scanProgramme(s.q.QueryRowContext(ctx, `SELECT `+programmeColumns+` FROM programmes p WHERE p.id = $1 FOR UPDATE`, id), &p)
	return p, notFound(err)
}

func (s *Store) CreateProgramme(ctx context.Context, p *models.Programme) error {
	if p.MinPlayers == 0 {
		p.MinPlayers = 1
	}
	if p.MaxPlayers == 0 {
		p.MaxPlayers = 4
	}
	return s.q.QueryRowContext(ctx, `
		INSERT INTO programmes (
			category_id, slug, title, description, long_description,
			three_word_description, state, frozen, start_time, length, end_time,
			room_id, language, rpg_system, is_english_ok, is_children_friendly,
			is_age_restricted, is_beginner_friendly, is_intended_for_experienced_participants,
			min_players, max_players, ropecon2018_is_no_language, ropecon_genres,
			ropecon_styles, is_using_paikkala, notes, video_link, signup_link, updated_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $29
		)
		RETURNING id, created_at
	`, programmeArgs(p)...).Scan(&p.ID, &p.CreatedAt)
}

// UpdateProgramme writes every editable column. The paikkala program link is owned by
// the provisioner and left alone.
func (s *Store) UpdateProgramme(ctx context.Context, p *models.Programme) error {
	args := append(programmeArgs(p), p.ID)
	return affectedOne(s.q.ExecContext(ctx, `
		UPDATE programmes SET
			category_id = $1, slug = $2, title = $3, description = $4, long_description = $5,
			three_word_description = $6, state = $7, frozen = $8, start_time = $9, length = $10,
			end_time = $11, room_id = $12, language = $13, rpg_system = $14, is_english_ok = $15,
			is_children_friendly = $16, is_age_restricted = $17, is_beginner_friendly = $18,
			is_intended_for_experienced_participants = $19, min_players = $20, max_players = $21,
			ropecon2018_is_no_language = $22, ropecon_genres = $23, ropecon_styles = $24,
			is_using_paikkala = $25, notes = $26, video_link = $27, signup_link = $28, updated_at = $29
		WHERE id = $30
	`, args...))
}

func (s *Store) GetRoom(ctx context.Context, id int64) (models.Room, error) {
	var r models.Room
	err := s.q.QueryRowContext(ctx, `
		SELECT id, event_id, slug, name, paikkala_schema, paikkala_room_id FROM rooms WHERE id = $1
	`, id).Scan(&r.ID, &r.EventID, &r.Slug, &r.Name, &r.PaikkalaSchema, &r.PaikkalaRoomID)
	return r, notFound(err)
}

func (s *Store) GetCategory(ctx context.Context, id int64) (models.Category, error) {
	var c models.Category
	err := s.q.QueryRowContext(ctx, `
		SELECT id, event_id, slug, title, style, public FROM categories WHERE id = $1
	`, id).Scan(&c.ID, &c.EventID, &c.Slug, &c.Title, &c.Style, &c.Public)
	return c, notFound(err)
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO categories (event_id, slug, title, style, public) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, c.EventID, c.Slug, c.Title, c.Style, c.Public).Scan(&c.ID)
}

func (s *Store) CreateRoom(ctx context.Context, r *models.Room) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO rooms (event_id, slug, name, paikkala_schema) VALUES ($1, $2, $3, $4)
		RETURNING id
	`, r.EventID, r.Slug, r.Name, r.PaikkalaSchema).Scan(&r.ID)
}

func (s *Store) CreateRole(ctx context.Context, r *models.Role) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO roles (personnel_class_id, title, is_public, is_default, require_contact_info)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, r.PersonnelClassID, r.Title, r.IsPublic, r.IsDefault, r.RequireContactInfo).Scan(&r.ID)
}

// Organizers lists the people with a role in the programme, active or not.
func (s *Store) Organizers(ctx context.Context, programmeID int64) ([]models.Person, error) {
	return s.people(ctx, `
		SELECT `+personColumns+`
		FROM programme_roles pr JOIN people p ON p.id = pr.person_id
		WHERE pr.programme_id = $1
		ORDER BY p.surname, p.first_name, p.id
	`, programmeID)
}

func (s *Store) people(ctx context.Context, query string, args ...any) ([]models.Person, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Person
	for rows.Next() {
		var p models.Person
		if err := scanPerson(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceRoles makes roles the complete organizer list of the programme and returns the
// roles that were removed.
func (s *Store) ReplaceRoles(ctx context.Context, programmeID int64, roles []models.ProgrammeRole) ([]models.ProgrammeRole, error) {
	var deleted []models.ProgrammeRole
	err := s.inTx(ctx, func(tx *Store) error {
		keep := make([]int64, 0, len(roles))
		for _, r := range roles {
			keep = append(keep, r.PersonID)
		}

		rows, err := tx.q.QueryContext(ctx, `
			DELETE FROM programme_roles
			WHERE programme_id = $1 AND NOT (person_id = ANY($2))
			RETURNING id, programme_id, person_id, role_id, is_active
		`, programmeID, pq.Array(keep))
		if err != nil {
			return err
		}
		deleted, err = scanRoles(rows)
		if err != nil {
			return err
		}

		for _, r := range roles {
			if _, err := tx.q.ExecContext(ctx, `
				INSERT INTO programme_roles (programme_id, person_id, role_id, is_active)
				VALUES ($1, $2, $3, TRUE)
				ON CONFLICT (programme_id, person_id) DO UPDATE SET role_id = EXCLUDED.role_id
			`, programmeID, r.PersonID, r.RoleID); err != nil {
				return fmt.Errorf("programme role for person %d: %w", r.PersonID, err)
			}
		}
		return nil
	})
	return deleted, err
}

func (s *Store) SetRolesActive(ctx context.Context, programmeID int64, active bool) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE programme_roles SET is_active = $2 WHERE programme_id = $1 AND is_active <> $2
	`, programmeID, active)
	return err
}

func (s *Store) ProgrammeRoles(ctx context.Context, programmeID int64) ([]models.ProgrammeRole, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, programme_id, person_id, role_id, is_active
		FROM programme_roles WHERE programme_id = $1 ORDER BY id
	`, programmeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProgrammeRole
	for rows.Next() {
		var r models.ProgrammeRole
		if err := rows.Scan(&r.ID, &r.ProgrammeID, &r.PersonID, &r.RoleID, &r.IsActive); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const activeRoleInEvent = `
	SELECT 1
	FROM programme_roles pr
	JOIN programmes p ON p.id = pr.programme_id
	JOIN categories c ON c.id = p.category_id
	WHERE c.event_id = $1 AND pr.is_active`

func (s *Store) HasActiveRoleInEvent(ctx context.Context, eventID, personID int64) (bool, error) {
	var ok bool
	err := s.q.QueryRowContext(ctx, `SELECT EXISTS (`+activeRoleInEvent+` AND pr.person_id = $2)`, eventID, personID).Scan(&ok)
	return ok, err
}

// ActiveProgrammePeople reports for each of personIDs whether they have an active
// programme role in the event.
func (s *Store) ActiveProgrammePeople(ctx context.Context, eventID int64, personIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(personIDs))
	for _, id := range personIDs {
		out[id] = false
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT DISTINCT pr.person_id
		FROM programme_roles pr
		JOIN programmes p ON p.id = pr.programme_id
		JOIN categories c ON c.id = p.category_id
		WHERE c.event_id = $1 AND pr.is_active AND pr.person_id = ANY($2)
	`, eventID, pq.Array(personIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// PersonProgrammes lists the programmes a person hosts, filtered by q. Unscheduled
// programmes are compared by the end time of their event.
func (s *Store) PersonProgrammes(ctx context.Context, personID int64, q programme.PersonQuery) ([]models.Programme, error) {
	states := make([]string, 0, len(q.States))
	for _, st := range q.States {
		states = append(states, string(st))
	}

	var where []string
	args := []any{personID, pq.Array(states)}
	if q.EndedBefore != nil {
		args = append(args, *q.EndedBefore)
		where = append(where, fmt.Sprintf("COALESCE(p.end_time, e.end_time) < $%d", len(args)))
	}
	if q.EndingAfter != nil {
		args = append(args, *q.EndingAfter)
		where = append(where, fmt.Sprintf("COALESCE(p.end_time, e.end_time) >= $%d", len(args)))
	}
	extra := ""
	if len(where) > 0 {
		extra = " AND " + strings.Join(where, " AND ")
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT `+programmeColumns+`
		FROM programmes p
		JOIN programme_roles pr ON pr.programme_id = p.id
		JOIN categories c ON c.id = p.category_id
		JOIN events e ON e.id = c.event_id
		WHERE pr.person_id = $1 AND p.state = ANY($2)`+extra+`
		ORDER BY COALESCE(p.start_time, e.start_time), p.id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Programme
	for rows.Next() {
		var p models.Programme
		if err := scanProgramme(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProgrammeView loads a programme with everything its listings render.
func (s *Store) ProgrammeView(ctx context.Context, id int64) (programme.View, error) {
	views, err := s.views(ctx, `p.id = $1`, id)
	if err != nil {
		return programme.View{}, err
	}
	if len(views) == 0 {
		return programme.View{}, ErrNotFound
	}
	return views[0], nil
}

func (s *Store) EventProgrammeViews(ctx context.Context, eventID int64) ([]programme.View, error) {
	return s.views(ctx, `c.event_id = $1`, eventID)
}

func (s *Store) views(ctx context.Context, cond string, arg any) ([]programme.View, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+programmeColumns+`,
			e.id, e.slug, e.name, e.start_time, e.end_time,
			c.id, c.event_id, c.slug, c.title, c.style, c.public,
			r.id, r.event_id, r.slug, r.name, r.paikkala_schema, r.paikkala_room_id
		FROM programmes p
		JOIN categories c ON c.id = p.category_id
		JOIN events e ON e.id = c.event_id
		LEFT JOIN rooms r ON r.id = p.room_id
		WHERE `+cond+`
		ORDER BY p.start_time NULLS LAST, r.name NULLS LAST, p.id
	`, arg)
	if err != nil {
		return nil, err
	}

	var views []programme.View
	for rows.Next() {
		var (
			v      programme.View
			p      = &v.Programme
			roomID sql.NullInt64
			room   models.Room
			revent sql.NullInt64
			rslug  sql.NullString
			rname  sql.NullString
			rsch   sql.NullString
		)
		if err := rows.Scan(
			&p.ID, &p.CategoryID, &p.Slug, &p.Title, &p.Description, &p.LongDescription,
			&p.ThreeWordDescription, &p.State, &p.Frozen, &p.StartTime, &p.Length, &p.EndTime,
			&p.RoomID, &p.Language, &p.RPGSystem, &p.IsEnglishOK, &p.IsChildrenFriendly,
			&p.IsAgeRestricted, &p.IsBeginnerFriendly, &p.IsIntendedForExperiencedParticipants,
			&p.MinPlayers, &p.MaxPlayers, &p.RopeconIsNoLanguage, pq.Array(&p.RopeconGenres),
			pq.Array(&p.RopeconStyles), &p.IsUsingPaikkala, &p.PaikkalaProgramID, &p.Notes, &p.VideoLink,
			&p.SignupLink, &p.CreatedAt, &p.UpdatedAt,
			&v.Event.ID, &v.Event.Slug, &v.Event.Name, &v.Event.StartTime, &v.Event.EndTime,
			&v.Category.ID, &v.Category.EventID, &v.Category.Slug, &v.Category.Title, &v.Category.Style, &v.Category.Public,
			&roomID, &revent, &rslug, &rname, &rsch, &room.PaikkalaRoomID,
		); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if roomID.Valid {
			room.ID, room.EventID, room.Slug, room.Name, room.PaikkalaSchema = roomID.Int64, revent.Int64, rslug.String, rname.String, rsch.String
			v.Room = &room
		}
		views = append(views, v)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range views {
		if err := s.fillView(ctx, &views[i]); err != nil {
			return nil, err
		}
	}
	return views, nil
}

func (s *Store) fillView(ctx context.Context, v *programme.View) error {
	id := v.Programme.ID

	tags, err := s.texts(ctx, `
		SELECT t.title FROM programme_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.programme_id = $1 ORDER BY t.title
	`, id)
	if err != nil {
		return err
	}
	v.Tags = tags

	freeform, err := s.texts(ctx, `
		SELECT text FROM freeform_organizers WHERE programme_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return err
	}
	v.FreeformOrganizers = freeform

	hosts, err := s.people(ctx, `
		SELECT `+personColumns+`
		FROM programme_roles pr
		JOIN roles r ON r.id = pr.role_id
		JOIN people p ON p.id = pr.person_id
		WHERE pr.programme_id = $1 AND pr.is_active AND r.is_public
		ORDER BY p.surname, p.first_name, p.id
	`, id)
	if err != nil {
		return err
	}
	v.PublicHosts = hosts
	return nil
}

func (s *Store) texts(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ReplaceFreeformOrganizers makes texts the freeform organizer list of the programme.
func (s *Store) ReplaceFreeformOrganizers(ctx context.Context, programmeID int64, texts []string) error {
	return s.inTx(ctx, func(tx *Store) error {
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM freeform_organizers WHERE programme_id = $1`, programmeID); err != nil {
			return err
		}
		for _, text := range texts {
			if _, err := tx.q.ExecContext(ctx, `
				INSERT INTO freeform_organizers (programme_id, text) VALUES ($1, $2)
			`, programmeID, text); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceTags makes tags the tag list of the programme, creating missing event tags.
func (s *Store) ReplaceTags(ctx context.Context, programmeID int64, tags []models.Tag) error {
	return s.inTx(ctx, func(tx *Store) error {
		ids := make([]int64, 0, len(tags))
		for _, tag := range tags {
			var tagID int64
			err := tx.q.QueryRowContext(ctx, `
				INSERT INTO tags (event_id, slug, title) VALUES ($1, $2, $3)
				ON CONFLICT (event_id, slug) DO UPDATE SET title = EXCLUDED.title
				RETURNING id
			`, tag.EventID, tag.Slug, tag.Title).Scan(&tagID)
			if err != nil {
				return err
			}
			ids = append(ids, tagID)
		}
		if _, err := tx.q.ExecContext(ctx, `
			DELETE FROM programme_tags WHERE programme_id = $1 AND NOT (tag_id = ANY($2))
		`, programmeID, pq.Array(ids)); err != nil {
			return err
		}
		_, err := tx.q.ExecContext(ctx, `
			INSERT INTO programme_tags (programme_id, tag_id)
			SELECT $1, unnest($2::bigint[])
			ON CONFLICT DO NOTHING
		`, programmeID, pq.Array(ids))
		return err
	})
}

type rowIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// scanRoles drains and closes rows.
func scanRoles(rows rowIter) ([]models.ProgrammeRole, error) {
	defer rows.Close()
	var out []models.ProgrammeRole
	for rows.Next() {
		var r models.ProgrammeRole
		if err := rows.Scan(&r.ID, &r.ProgrammeID, &r.PersonID, &r.RoleID, &r.IsActive); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
