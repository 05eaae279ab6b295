// Package postgres implements pubhub.Repository over pgx. See schema.sql
// for the expected tables.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pubhub/pubhub/pkg/pubhub"
)

// Repository implements pubhub.Repository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewWithPool creates a repository over a connection pool. The pool's
// lifecycle belongs to the process bootstrap.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// translateError maps driver errors to repository sentinels without
// leaking driver details upward.
func translateError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "username") {
				return pubhub.ErrUsernameTaken
			}
			if strings.Contains(pgErr.ConstraintName, "email") {
				return pubhub.ErrEmailTaken
			}
			return fmt.Errorf("%s: duplicate entry", op)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: referenced record not found", op)
		}
		return fmt.Errorf("%s: database error (code %s)", op, pgErr.Code)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Publication operations

const publicationColumns = "id, kind, author_id, title, intro_text, intro_image, level, tags, status, created_at"

func (r *Repository) scanPublication(row pgx.Row) (*pubhub.Publication, error) {
	var p pubhub.Publication
	err := row.Scan(&p.ID, &p.Kind, &p.AuthorID, &p.Title, &p.IntroText,
		&p.IntroImage, &p.Level, &p.Tags, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pubhub.ErrPublicationNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreatePublication(ctx context.Context, p *pubhub.Publication) error {
	query := `
		INSERT INTO publications (kind, author_id, title, intro_text, intro_image, level, tags, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		p.Kind, p.AuthorID, p.Title, p.IntroText, p.IntroImage,
		p.Level, p.Tags, p.Status, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return translateError("create publication", err)
	}
	return r.replaceMentions(ctx, r.pool, p)
}

func (r *Repository) GetPublication(ctx context.Context, kind pubhub.PublicationKind, id int64) (*pubhub.Publication, error) {
	query := "SELECT " + publicationColumns + " FROM publications WHERE kind = $1 AND id = $2"
	p, err := r.scanPublication(r.pool.QueryRow(ctx, query, kind, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadMentions(ctx, kind, []*pubhub.Publication{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) GetPublishedPublication(ctx context.Context, kind pubhub.PublicationKind, id int64) (*pubhub.Publication, error) {
	query := "SELECT " + publicationColumns + " FROM publications WHERE kind = $1 AND id = $2 AND status"
	p, err := r.scanPublication(r.pool.QueryRow(ctx, query, kind, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadMentions(ctx, kind, []*pubhub.Publication{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) UpdatePublication(ctx context.Context, p *pubhub.Publication) error {
	query := `
		UPDATE publications SET
			title = $3, intro_text = $4, intro_image = $5, level = $6,
			tags = $7, status = $8
		WHERE kind = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query,
		p.Kind, p.ID, p.Title, p.IntroText, p.IntroImage, p.Level, p.Tags, p.Status)
	if err != nil {
		return translateError("update publication", err)
	}
	if tag.RowsAffected() == 0 {
		return pubhub.ErrPublicationNotFound
	}
	return r.replaceMentions(ctx, r.pool, p)
}

func (r *Repository) DeletePublication(ctx context.Context, kind pubhub.PublicationKind, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return translateError("delete publication", err)
	}
	defer tx.Rollback(ctx)

	// Cascade: items first (via their content rows), then the rows, then
	// the publication itself.
	_, err = tx.Exec(ctx, `
		DELETE FROM items USING contents
		WHERE items.id = contents.item_id AND items.kind = contents.item_kind
		  AND contents.publication_kind = $1 AND contents.publication_id = $2`, kind, id)
	if err != nil {
		return translateError("delete publication items", err)
	}
	for _, q := range []string{
		"DELETE FROM contents WHERE publication_kind = $1 AND publication_id = $2",
		"DELETE FROM publication_mentions WHERE publication_kind = $1 AND publication_id = $2",
		"DELETE FROM publication_reactions WHERE publication_kind = $1 AND publication_id = $2",
	} {
		if _, err := tx.Exec(ctx, q, kind, id); err != nil {
			return translateError("delete publication", err)
		}
	}

	tag, err := tx.Exec(ctx, "DELETE FROM publications WHERE kind = $1 AND id = $2", kind, id)
	if err != nil {
		return translateError("delete publication", err)
	}
	if tag.RowsAffected() == 0 {
		return pubhub.ErrPublicationNotFound
	}
	return tx.Commit(ctx)
}

func (r *Repository) ListPublished(ctx context.Context, kind pubhub.PublicationKind, limit, offset int) ([]*pubhub.Publication, error) {
	query := "SELECT " + publicationColumns + ` FROM publications
		WHERE kind = $1 AND status
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, kind, limit, offset)
	if err != nil {
		return nil, translateError("list publications", err)
	}
	defer rows.Close()

	var result []*pubhub.Publication
	for rows.Next() {
		p, err := r.scanPublication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("list publications", err)
	}
	if err := r.loadMentions(ctx, kind, result); err != nil {
		return nil, err
	}
	return result, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *Repository) replaceMentions(ctx context.Context, db execer, p *pubhub.Publication) error {
	if _, err := db.Exec(ctx,
		"DELETE FROM publication_mentions WHERE publication_kind = $1 AND publication_id = $2",
		p.Kind, p.ID); err != nil {
		return translateError("replace mentions", err)
	}
	for _, userID := range p.Mention {
		if _, err := db.Exec(ctx, `
			INSERT INTO publication_mentions (publication_kind, publication_id, user_id)
			VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			p.Kind, p.ID, userID); err != nil {
			return translateError("replace mentions", err)
		}
	}
	return nil
}

func (r *Repository) loadMentions(ctx context.Context, kind pubhub.PublicationKind, pubs []*pubhub.Publication) error {
	if len(pubs) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(pubs))
	byID := make(map[int64]*pubhub.Publication, len(pubs))
	for _, p := range pubs {
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	rows, err := r.pool.Query(ctx, `
		SELECT publication_id, user_id FROM publication_mentions
		WHERE publication_kind = $1 AND publication_id = ANY($2)
		ORDER BY user_id`, kind, ids)
	if err != nil {
		return translateError("load mentions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pubID, userID int64
		if err := rows.Scan(&pubID, &userID); err != nil {
			return err
		}
		p := byID[pubID]
		p.Mention = append(p.Mention, userID)
	}
	return rows.Err()
}

func (r *Repository) SetReaction(ctx context.Context, kind pubhub.PublicationKind, id, userID int64, reaction pubhub.Reaction, add bool) (bool, error) {
	if add {
		tag, err := r.pool.Exec(ctx, `
			INSERT INTO publication_reactions (publication_kind, publication_id, user_id, reaction)
			VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
			kind, id, userID, reaction)
		if err != nil {
			return false, translateError("add reaction", err)
		}
		return tag.RowsAffected() > 0, nil
	}

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM publication_reactions
		WHERE publication_kind = $1 AND publication_id = $2 AND user_id = $3 AND reaction = $4`,
		kind, id, userID, reaction)
	if err != nil {
		return false, translateError("remove reaction", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Item and content operations

func (r *Repository) CreateItemWithContent(ctx context.Context, item *pubhub.Item, pubKind pubhub.PublicationKind, pubID int64) (*pubhub.Content, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, translateError("create item", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO items (creator_id, kind, payload) VALUES ($1, $2, $3)
		RETURNING id`, item.CreatorID, item.Kind, item.Payload).Scan(&item.ID)
	if err != nil {
		return nil, translateError("create item", err)
	}

	c := &pubhub.Content{
		PublicationKind: pubKind,
		PublicationID:   pubID,
		ItemKind:        item.Kind,
		ItemID:          item.ID,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO contents (publication_kind, publication_id, item_kind, item_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, c.PublicationKind, c.PublicationID, c.ItemKind, c.ItemID).Scan(&c.ID)
	if err != nil {
		// The rollback also discards the item, so no orphan survives a
		// failed association.
		return nil, translateError("create content", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateError("create item", err)
	}
	return c, nil
}

func (r *Repository) GetItem(ctx context.Context, kind pubhub.ItemKind, id int64) (*pubhub.Item, error) {
	var item pubhub.Item
	err := r.pool.QueryRow(ctx,
		"SELECT id, creator_id, kind, payload FROM items WHERE kind = $1 AND id = $2",
		kind, id).Scan(&item.ID, &item.CreatorID, &item.Kind, &item.Payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pubhub.ErrItemNotFound
		}
		return nil, translateError("get item", err)
	}
	return &item, nil
}

func (r *Repository) UpdateItem(ctx context.Context, item *pubhub.Item) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE items SET payload = $3 WHERE kind = $1 AND id = $2",
		item.Kind, item.ID, item.Payload)
	if err != nil {
		return translateError("update item", err)
	}
	if tag.RowsAffected() == 0 {
		return pubhub.ErrItemNotFound
	}
	return nil
}

func (r *Repository) DeleteItemWithContent(ctx context.Context, kind pubhub.ItemKind, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return translateError("delete item", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"DELETE FROM contents WHERE item_kind = $1 AND item_id = $2", kind, id)
	if err != nil {
		return translateError("delete content", err)
	}
	if tag.RowsAffected() == 0 {
		// Missing association for an existing item is state corruption;
		// surface it and leave everything in place.
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM items WHERE kind = $1 AND id = $2)",
			kind, id).Scan(&exists); err != nil {
			return translateError("delete item", err)
		}
		if !exists {
			return pubhub.ErrItemNotFound
		}
		return pubhub.ErrContentNotFound
	}

	tag, err = tx.Exec(ctx, "DELETE FROM items WHERE kind = $1 AND id = $2", kind, id)
	if err != nil {
		return translateError("delete item", err)
	}
	if tag.RowsAffected() == 0 {
		return pubhub.ErrItemNotFound
	}
	return tx.Commit(ctx)
}

func (r *Repository) ListContentsFor(ctx context.Context, pubKind pubhub.PublicationKind, pubIDs []int64, kind *pubhub.ItemKind) ([]*pubhub.ContentWithItem, error) {
	query := `
		SELECT c.id, c.publication_kind, c.publication_id, c.item_kind, c.item_id,
		       i.creator_id, i.payload
		FROM contents c
		JOIN items i ON i.id = c.item_id AND i.kind = c.item_kind
		WHERE c.publication_kind = $1 AND c.publication_id = ANY($2)`
	args := []any{pubKind, pubIDs}
	if kind != nil {
		query += " AND c.item_kind = $3"
		args = append(args, *kind)
	}
	query += " ORDER BY c.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError("list contents", err)
	}
	defer rows.Close()

	var result []*pubhub.ContentWithItem
	for rows.Next() {
		var cw pubhub.ContentWithItem
		if err := rows.Scan(&cw.Content.ID, &cw.PublicationKind, &cw.PublicationID,
			&cw.ItemKind, &cw.Content.ItemID, &cw.Item.CreatorID, &cw.Item.Payload); err != nil {
			return nil, err
		}
		cw.Item.ID = cw.Content.ItemID
		cw.Item.Kind = cw.ItemKind
		result = append(result, &cw)
	}
	return result, rows.Err()
}

// User operations

const userColumns = "id, username, email, password_hash, first_name, last_name, picture, created"

func scanUser(row pgx.Row) (*pubhub.User, error) {
	var u pubhub.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Picture, &u.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pubhub.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) CreateUser(ctx context.Context, u *pubhub.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, picture, created)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Picture, u.Created).Scan(&u.ID)
	if err != nil {
		return translateError("create user", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*pubhub.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*pubhub.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username))
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*pubhub.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
}

func (r *Repository) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*pubhub.User, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, translateError("get users", err)
	}
	defer rows.Close()

	result := make(map[int64]*pubhub.User, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result[u.ID] = u
	}
	return result, rows.Err()
}

func (r *Repository) UpdateUser(ctx context.Context, u *pubhub.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET username = $2, email = $3, password_hash = $4,
			first_name = $5, last_name = $6, picture = $7
		WHERE id = $1`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Picture)
	if err != nil {
		return translateError("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return pubhub.ErrUserNotFound
	}
	return nil
}

// Password reset operations

func (r *Repository) CreatePasswordReset(ctx context.Context, pr *pubhub.PasswordReset) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO password_resets (email, token, created_at) VALUES ($1, $2, $3)",
		pr.Email, pr.Token, pr.CreatedAt)
	if err != nil {
		return translateError("create password reset", err)
	}
	return nil
}

func (r *Repository) GetPasswordReset(ctx context.Context, token string) (*pubhub.PasswordReset, error) {
	var pr pubhub.PasswordReset
	err := r.pool.QueryRow(ctx,
		"SELECT email, token, created_at FROM password_resets WHERE token = $1",
		token).Scan(&pr.Email, &pr.Token, &pr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pubhub.ErrResetNotFound
		}
		return nil, translateError("get password reset", err)
	}
	return &pr, nil
}

func (r *Repository) DeletePasswordReset(ctx context.Context, token string) error {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM password_resets WHERE token = $1", token)
	if err != nil {
		return translateError("delete password reset", err)
	}
	if tag.RowsAffected() == 0 {
		return pubhub.ErrResetNotFound
	}
	return nil
}
