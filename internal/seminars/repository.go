package seminars

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/response"
	"github.com/campus-seminarios/backend/pkg/utils"
)

const selectSeminar = `SELECT s.id, s.name, s.slug, s.description, s.scheduled_at, s.room_link, s.location,
	s.workshop_id, s.active, s.created_at, s.updated_at, st.id, st.name,
	(SELECT COUNT(*) FROM registrations r WHERE r.seminar_id = s.id)
	FROM seminars s LEFT JOIN seminar_types st ON st.id = s.seminar_type_id`

// Status filters seminars by date relative to now.
const (
	StatusUpcoming = "upcoming"
	StatusPast     = "past"
)

// ListFilter narrows a seminar listing.
type ListFilter struct {
	Search       string
	SubjectSlug  string
	TypeID       int64
	WorkshopSlug string
	WorkshopID   *uuid.UUID
	Status       string
	ActiveOnly   bool
	Now          time.Time
}

func (f ListFilter) where() (string, []interface{}) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ActiveOnly {
		conds = append(conds, "s.active")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + s + "%")
		conds = append(conds, "(s.name ILIKE "+p+" OR s.description ILIKE "+p+")")
	}
	if f.SubjectSlug != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM seminar_subjects ss JOIN subjects sb ON sb.id = ss.subject_id
			WHERE ss.seminar_id = s.id AND sb.slug = `+arg(f.SubjectSlug)+`)`)
	}
	if f.TypeID > 0 {
		conds = append(conds, "s.seminar_type_id = "+arg(f.TypeID))
	}
	if f.WorkshopSlug != "" {
		conds = append(conds, "s.workshop_id = (SELECT id FROM workshops WHERE slug = "+arg(f.WorkshopSlug)+")")
	}
	if f.WorkshopID != nil {
		conds = append(conds, "s.workshop_id = "+arg(*f.WorkshopID))
	}
	switch f.Status {
	case StatusUpcoming:
		conds = append(conds, "s.scheduled_at >= "+arg(f.Now))
	case StatusPast:
		conds = append(conds, "s.scheduled_at < "+arg(f.Now))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f ListFilter) orderBy() string {
	if f.Status == StatusUpcoming {
		return " ORDER BY s.scheduled_at ASC, s.name"
	}
	return " ORDER BY s.scheduled_at DESC NULLS LAST, s.name"
}

// Input is the writable part of a seminar.
type Input struct {
	Name          string
	Description   string
	ScheduledAt   *time.Time
	RoomLink      *string
	Location      *string
	SeminarTypeID *int64
	WorkshopID    *uuid.UUID
	Active        bool
	SpeakerIDs    []uuid.UUID
	SubjectNames  []string
}

// Repository handles seminar persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a seminars repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSeminar(row pgx.Row) (*models.Seminar, error) {
	var s models.Seminar
	var typeID *int64
	var typeName *string
	err := row.Scan(&s.ID, &s.Name, &s.Slug, &s.Description, &s.ScheduledAt, &s.RoomLink, &s.Location,
		&s.WorkshopID, &s.Active, &s.CreatedAt, &s.UpdatedAt, &typeID, &typeName, &s.RegistrationsCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if typeID != nil && typeName != nil {
		s.SeminarType = &models.SeminarType{ID: *typeID, Name: *typeName}
	}
	s.Speakers = []models.Speaker{}
	s.Subjects = []models.Subject{}
	return &s, nil
}

func (r *Repository) query(ctx context.Context, q string, args ...interface{}) ([]*models.Seminar, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Seminar
	for rows.Next() {
		s, err := scanSeminar(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, r.attach(ctx, list)
}

// attach loads speakers and subjects for the given seminars.
func (r *Repository) attach(ctx context.Context, list []*models.Seminar) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Seminar, len(list))
	ids := make([]string, len(list))
	for i, s := range list {
		byID[s.ID] = s
		ids[i] = s.ID.String()
	}

	rows, err := r.pool.Query(ctx, `SELECT ss.seminar_id, u.id, u.name, COALESCE(u.institution,''), COALESCE(u.description,'')
		FROM seminar_speakers ss JOIN users u ON u.id = ss.user_id
		WHERE ss.seminar_id = ANY($1::uuid[]) ORDER BY u.name`, ids)
	if err != nil {
		return fmt.Errorf("load speakers: %w", err)
	}
	for rows.Next() {
		var seminarID uuid.UUID
		var sp models.Speaker
		if err := rows.Scan(&seminarID, &sp.ID, &sp.Name, &sp.Institution, &sp.Description); err != nil {
			rows.Close()
			return err
		}
		byID[seminarID].Speakers = append(byID[seminarID].Speakers, sp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `SELECT ss.seminar_id, sb.id, sb.name, sb.slug
		FROM seminar_subjects ss JOIN subjects sb ON sb.id = ss.subject_id
		WHERE ss.seminar_id = ANY($1::uuid[]) ORDER BY sb.name`, ids)
	if err != nil {
		return fmt.Errorf("load subjects: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var seminarID uuid.UUID
		var sb models.Subject
		if err := rows.Scan(&seminarID, &sb.ID, &sb.Name, &sb.Slug); err != nil {
			return err
		}
		byID[seminarID].Subjects = append(byID[seminarID].Subjects, sb)
	}
	return rows.Err()
}

// List returns one page of seminars with their relations, plus the total count.
func (r *Repository) List(ctx context.Context, f ListFilter, page response.Page) ([]*models.Seminar, int, error) {
	where, args := f.where()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM seminars s`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count seminars: %w", err)
	}
	args = append(args, page.PerPage, page.Offset())
	q := fmt.Sprintf("%s%s%s LIMIT $%d OFFSET $%d", selectSeminar, where, f.orderBy(), len(args)-1, len(args))
	list, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list seminars: %w", err)
	}
	return list, total, nil
}

// Upcoming returns the next active seminars from now on.
func (r *Repository) Upcoming(ctx context.Context, now time.Time, limit int) ([]*models.Seminar, error) {
	f := ListFilter{Status: StatusUpcoming, ActiveOnly: true, Now: now}
	where, args := f.where()
	args = append(args, limit)
	return r.query(ctx, fmt.Sprintf("%s%s%s LIMIT $%d", selectSeminar, where, f.orderBy(), len(args)), args...)
}

func (r *Repository) getOne(ctx context.Context, cond string, arg interface{}) (*models.Seminar, error) {
	s, err := scanSeminar(r.pool.QueryRow(ctx, selectSeminar+" WHERE "+cond, arg))
	if err != nil || s == nil {
		return nil, err
	}
	if err := r.attach(ctx, []*models.Seminar{s}); err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID returns a seminar with relations, or nil.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error) {
	return r.getOne(ctx, "s.id = $1", id)
}

// GetBySlug returns a seminar with relations, or nil.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Seminar, error) {
	return r.getOne(ctx, "s.slug = $1", slug)
}

// GetMany returns the seminars with the given ids, ordered by date. Missing ids are skipped.
func (r *Repository) GetMany(ctx context.Context, ids []uuid.UUID) ([]*models.Seminar, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return r.query(ctx, selectSeminar+" WHERE s.id = ANY($1::uuid[]) ORDER BY s.scheduled_at ASC NULLS LAST, s.name", strs)
}

// Create inserts a seminar with a unique slug and its relations.
func (r *Repository) Create(ctx context.Context, in Input) (*models.Seminar, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	slug, err := utils.UniqueSlug(ctx, in.Name, slugTaken(tx, "seminars", uuid.Nil))
	if err != nil {
		return nil, err
	}
	var id uuid.UUID
	err = tx.QueryRow(ctx, `INSERT INTO seminars (name, slug, description, scheduled_at, room_link, location, seminar_type_id, workshop_id, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		in.Name, slug, in.Description, in.ScheduledAt, in.RoomLink, in.Location, in.SeminarTypeID, in.WorkshopID, in.Active).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert seminar: %w", err)
	}
	if err := syncRelations(ctx, tx, id, in); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Update saves a seminar and replaces its relations. The slug follows the name. Returns nil
// when the seminar does not exist.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in Input) (*models.Seminar, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var currentName, slug string
	err = tx.QueryRow(ctx, `SELECT name, slug FROM seminars WHERE id = $1 FOR UPDATE`, id).Scan(&currentName, &slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if currentName != in.Name {
		if slug, err = utils.UniqueSlug(ctx, in.Name, slugTaken(tx, "seminars", id)); err != nil {
			return nil, err
		}
	}
	_, err = tx.Exec(ctx, `UPDATE seminars SET name = $2, slug = $3, description = $4, scheduled_at = $5, room_link = $6,
		location = $7, seminar_type_id = $8, workshop_id = $9, active = $10, updated_at = NOW() WHERE id = $1`,
		id, in.Name, slug, in.Description, in.ScheduledAt, in.RoomLink, in.Location, in.SeminarTypeID, in.WorkshopID, in.Active)
	if err != nil {
		return nil, fmt.Errorf("update seminar: %w", err)
	}
	if err := syncRelations(ctx, tx, id, in); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a seminar. Reports false when it did not exist.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM seminars WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func slugTaken(tx pgx.Tx, table string, except uuid.UUID) utils.SlugExistsFunc {
	return func(ctx context.Context, slug string) (bool, error) {
		var taken bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE slug = $1 AND id <> $2)`, slug, except).Scan(&taken)
		return taken, err
	}
}

// syncRelations replaces speakers and subjects. Unknown speaker ids and non-speaker users
// are ignored; subject names are created on demand.
func syncRelations(ctx context.Context, tx pgx.Tx, seminarID uuid.UUID, in Input) error {
	if _, err := tx.Exec(ctx, `DELETE FROM seminar_speakers WHERE seminar_id = $1`, seminarID); err != nil {
		return err
	}
	if len(in.SpeakerIDs) > 0 {
		ids := make([]string, len(in.SpeakerIDs))
		for i, id := range in.SpeakerIDs {
			ids[i] = id.String()
		}
		_, err := tx.Exec(ctx, `INSERT INTO seminar_speakers (seminar_id, user_id)
			SELECT $1, id FROM users WHERE id = ANY($2::uuid[]) AND role IN ('speaker', 'admin')
			ON CONFLICT DO NOTHING`, seminarID, ids)
		if err != nil {
			return fmt.Errorf("link speakers: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM seminar_subjects WHERE seminar_id = $1`, seminarID); err != nil {
		return err
	}
	for _, name := range in.SubjectNames {
		subjectID, err := EnsureSubject(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO seminar_subjects (seminar_id, subject_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			seminarID, subjectID); err != nil {
			return fmt.Errorf("link subject: %w", err)
		}
	}
	return nil
}

// EnsureSubject returns the id of the subject named name (case-insensitive), creating it
// with a unique slug when missing.
func EnsureSubject(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	name = strings.TrimSpace(name)
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM subjects WHERE lower(name) = lower($1)`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	slug, err := utils.UniqueSlug(ctx, name, func(ctx context.Context, slug string) (bool, error) {
		var taken bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM subjects WHERE slug = $1)`, slug).Scan(&taken)
		return taken, err
	})
	if err != nil {
		return 0, err
	}
	err = tx.QueryRow(ctx, `INSERT INTO subjects (name, slug) VALUES ($1, $2) RETURNING id`, name, slug).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create subject %q: %w", name, err)
	}
	return id, nil
}
