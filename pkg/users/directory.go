package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Field names a column users may be looked up by. The closed set keeps
// configuration-driven lookups from ever reaching an arbitrary column.
type Field string

const (
	FieldID       Field = "id"
	FieldEmail    Field = "email"
	FieldPhone    Field = "phone"
	FieldVKID     Field = "vk_id"
	FieldGoogleID Field = "google_id"
	FieldYandexID Field = "yandex_id"
)

var lookupColumns = map[Field]string{
	FieldID:       "id",
	FieldEmail:    "email",
	FieldPhone:    "phone",
	FieldVKID:     "vk_id",
	FieldGoogleID: "google_id",
	FieldYandexID: "yandex_id",
}

const userColumns = `id, first_name, last_name, middle_name, email, phone, password_hash,
role, avatar, active, vk_id, google_id, yandex_id, created_at, updated_at`

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	FirstName    *string
	LastName     *string
	MiddleName   *string
	Email        *string
	Phone        *string
	PasswordHash *string
	Role         *Role
	Avatar       *string
	Active       *bool
}

// DB is the slice of pgxpool.Pool the directory needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Directory performs CRUD over the users table.
type Directory struct {
	db DB
}

// NewDirectory creates a Directory on the given connection pool.
func NewDirectory(db DB) *Directory {
	return &Directory{db: db}
}

// Add inserts a new user and returns it with generated fields filled in.
// A duplicate email, phone, or provider id is reported as ErrConflict by
// the database constraint, never assumed away by a prior lookup.
func (d *Directory) Add(ctx context.Context, u *User) (*User, error) {
	if u.Role == "" {
		u.Role = RoleUser
	}
	u.Active = true
	if !u.HasAuthMethod() {
		return nil, ErrNoAuthMethod
	}

	row := d.db.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, middle_name, email, phone, password_hash,
			role, avatar, active, vk_id, google_id, yandex_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+userColumns,
		u.FirstName, u.LastName, u.MiddleName, u.Email, u.Phone, u.PasswordHash,
		u.Role, u.Avatar, u.Active, u.VKID, u.GoogleID, u.YandexID,
	)

	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, constraintName(err))
		}
		return nil, fmt.Errorf("users: insert: %w", err)
	}
	return created, nil
}

// GetByField looks a user up by one of the allow-listed fields.
func (d *Directory) GetByField(ctx context.Context, field Field, value any) (*User, error) {
	column, ok := lookupColumns[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}

	row := d.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)

	u, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: select by %s: %w", column, err)
	}
	return u, nil
}

// GetByProvider resolves a user by an external provider identity,
// converting the provider's id representation to the column type.
func (d *Directory) GetByProvider(ctx context.Context, provider, providerID string) (*User, error) {
	field, value, err := providerLookup(provider, providerID)
	if err != nil {
		return nil, err
	}
	return d.GetByField(ctx, field, value)
}

// Update applies a partial patch and returns the updated record.
// Changed unique fields re-validate through the same constraints as Add.
func (d *Directory) Update(ctx context.Context, id int64, patch Patch) (*User, error) {
	query, args, err := buildUpdate(id, patch)
	if err != nil {
		return nil, err
	}

	u, err := scanUser(d.db.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrConflict, constraintName(err))
		}
		return nil, fmt.Errorf("users: update: %w", err)
	}
	return u, nil
}

// LinkProvider attaches an external identity to an existing account.
func (d *Directory) LinkProvider(ctx context.Context, id int64, provider, providerID string) error {
	field, value, err := providerLookup(provider, providerID)
	if err != nil {
		return err
	}

	tag, err := d.db.Exec(ctx,
		`UPDATE users SET `+lookupColumns[field]+` = $1, updated_at = now() WHERE id = $2`,
		value, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrConflict, constraintName(err))
		}
		return fmt.Errorf("users: link provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate flips the active flag. The row is kept so records that
// reference the user stay intact.
func (d *Directory) Deactivate(ctx context.Context, id int64) error {
	tag, err := d.db.Exec(ctx,
		`UPDATE users SET active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func providerLookup(provider, providerID string) (Field, any, error) {
	switch provider {
	case ProviderGoogle:
		return FieldGoogleID, providerID, nil
	case ProviderVK:
		id, err := strconv.ParseInt(providerID, 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("users: vk id %q is not numeric: %w", providerID, err)
		}
		return FieldVKID, id, nil
	case ProviderYandex:
		id, err := strconv.ParseInt(providerID, 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("users: yandex id %q is not numeric: %w", providerID, err)
		}
		return FieldYandexID, id, nil
	default:
		return "", nil, fmt.Errorf("%w: provider %q", ErrInvalidField, provider)
	}
}

// buildUpdate assembles the SET clause from non-nil patch fields.
func buildUpdate(id int64, patch Patch) (string, []any, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.MiddleName != nil {
		add("middle_name", *patch.MiddleName)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.PasswordHash != nil {
		add("password_hash", *patch.PasswordHash)
	}
	if patch.Role != nil {
		if _, err := ParseRole(string(*patch.Role)); err != nil {
			return "", nil, err
		}
		add("role", *patch.Role)
	}
	if patch.Avatar != nil {
		add("avatar", *patch.Avatar)
	}
	if patch.Active != nil {
		add("active", *patch.Active)
	}

	if len(sets) == 0 {
		return "", nil, ErrEmptyPatch
	}

	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), userColumns)
	return query, args, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.MiddleName, &u.Email, &u.Phone,
		&u.PasswordHash, &u.Role, &u.Avatar, &u.Active,
		&u.VKID, &u.GoogleID, &u.YandexID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

