package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oftaclinic/api/internal/models"
)

var ErrImageNotFound = errors.New("image not found")

type ImageRepository struct {
	pool *pgxpool.Pool
}

func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{pool: pool}
}

func (r *ImageRepository) Create(ctx context.Context, image models.Image) error {
	const query = `
		INSERT INTO images (
			id, object_key, url, filename, format, width, height, size_bytes,
			user_id, transformations, tags, created_at, last_accessed
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		)
	`

	transformations, err := image.EncodeTransformations()
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query,
		image.ID,
		image.ObjectKey,
		image.URL,
		image.Filename,
		image.Format,
		image.Width,
		image.Height,
		image.SizeBytes,
		image.UserID,
		transformations,
		image.Tags,
	)
	return err
}

func (r *ImageRepository) GetByID(ctx context.Context, id string) (models.Image, error) {
	const query = `
		SELECT id, object_key, url, filename, format, width, height, size_bytes,
		       user_id, transformations, tags, created_at, last_accessed
		FROM images WHERE id = $1
	`

	row := r.pool.QueryRow(ctx, query, id)
	image, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Image{}, ErrImageNotFound
		}
		return models.Image{}, err
	}
	return image, nil
}

func (r *ImageRepository) List(ctx context.Context) ([]models.Image, error) {
	const query = `
		SELECT id, object_key, url, filename, format, width, height, size_bytes,
		       user_id, transformations, tags, created_at, last_accessed
		FROM images
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

func (r *ImageRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	return nil
}

// AppendTransformation records an applied derivation on the image and bumps
// its last-accessed timestamp.
func (r *ImageRepository) AppendTransformation(ctx context.Context, id string, t models.Transformation) error {
	const query = `
		UPDATE images
		SET transformations = transformations || $2::jsonb,
		    last_accessed = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, []models.Transformation{t})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	return nil
}

// TouchLastAccessed bumps the access timestamp for a served image. Rows are
// keyed by object key here because delivery paths carry the key, not the id.
func (r *ImageRepository) TouchLastAccessed(ctx context.Context, objectKey string) error {
	_, err := r.pool.Exec(ctx, `UPDATE images SET last_accessed = NOW() WHERE object_key = $1`, objectKey)
	return err
}

func scanImage(row pgx.Row) (models.Image, error) {
	var image models.Image
	err := row.Scan(
		&image.ID,
		&image.ObjectKey,
		&image.URL,
		&image.Filename,
		&image.Format,
		&image.Width,
		&image.Height,
		&image.SizeBytes,
		&image.UserID,
		&image.Transformations,
		&image.Tags,
		&image.CreatedAt,
		&image.LastAccessed,
	)
	return image, err
}
