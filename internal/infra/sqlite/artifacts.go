package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/memeforge-network/memeforge/internal/domain"
)

// ─── Artifact Aggregates ────────────────────────────────────────────────────

// UpsertArtifact inserts an artifact row, or updates its published and
// hidden flags when the row already exists.
func (d *DB) UpsertArtifact(a domain.Artifact) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := upsertArtifactTx(tx, a); err != nil {
		return err
	}
	return tx.Commit()
}

// upsertArtifactTx creates the artifact or updates its moderation and
// publication flags. Rating aggregates are deliberately left alone on
// conflict: they change only through applyVoteTx, so a publish or hide
// cannot overwrite ratings that landed concurrently.
func upsertArtifactTx(tx *sql.Tx, a domain.Artifact) error {
	_, err := tx.Exec(
		`INSERT INTO artifacts
			(id, author_id, created_at, published, hidden, rating_sum, rating_count, unique_voters)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			published=excluded.published,
			hidden=excluded.hidden`,
		a.ID, a.AuthorID, a.CreatedAt.Unix(), a.Published, a.Hidden,
		a.RatingSum, a.RatingCount, a.UniqueVoters,
	)
	if err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	return nil
}

// applyVoteTx records the vote and folds its rating into the artifact
// aggregates with relative updates, so concurrent votes on one artifact
// never lose each other. A replayed vote id is dropped by INSERT OR IGNORE
// and leaves the aggregates untouched.
func applyVoteTx(tx *sql.Tx, v domain.VoteRecord) error {
	res, err := tx.Exec(
		`INSERT OR IGNORE INTO votes (id, artifact_id, voter_id, author_id, rating, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.ArtifactID, v.VoterID, v.AuthorID, v.Rating, v.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record vote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	_, err = tx.Exec(
		`UPDATE artifacts SET
			rating_sum    = rating_sum + ?,
			rating_count  = rating_count + 1,
			unique_voters = (SELECT COUNT(DISTINCT voter_id) FROM votes WHERE artifact_id = ?)
		 WHERE id = ?`,
		v.Rating, v.ArtifactID, v.ArtifactID,
	)
	if err != nil {
		return fmt.Errorf("fold vote into artifact: %w", err)
	}
	return nil
}

// GetArtifact loads one artifact aggregate, or nil when absent.
func (d *DB) GetArtifact(id string) (*domain.Artifact, error) {
	row := d.db.QueryRow(
		`SELECT id, author_id, created_at, published, hidden, rating_sum, rating_count, unique_voters
		 FROM artifacts WHERE id = ?`, id,
	)
	return scanArtifact(row)
}

// ListArtifactsSince returns all artifacts created at or after the cutoff.
// The boost calculator reads the whole week's population from this.
func (d *DB) ListArtifactsSince(cutoff time.Time) ([]domain.Artifact, error) {
	rows, err := d.db.Query(
		`SELECT id, author_id, created_at, published, hidden, rating_sum, rating_count, unique_voters
		 FROM artifacts WHERE created_at >= ? ORDER BY created_at`,
		cutoff.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// AuthorArtifactsSince returns one author's artifacts in the window.
func (d *DB) AuthorArtifactsSince(authorID string, cutoff time.Time) ([]domain.Artifact, error) {
	rows, err := d.db.Query(
		`SELECT id, author_id, created_at, published, hidden, rating_sum, rating_count, unique_voters
		 FROM artifacts WHERE author_id = ? AND created_at >= ? ORDER BY created_at`,
		authorID, cutoff.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ─── Vote Records ───────────────────────────────────────────────────────────

// InsertVote records a server-side vote event. Idempotent on id so a
// replayed intake request cannot double-record the vote.
func (d *DB) InsertVote(v domain.VoteRecord) error {
	_, err := d.db.Exec(
		`INSERT OR IGNORE INTO votes (id, artifact_id, voter_id, author_id, rating, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.ArtifactID, v.VoterID, v.AuthorID, v.Rating, v.CreatedAt.Unix(),
	)
	return err
}

// GetVote loads one vote record, or nil when absent.
func (d *DB) GetVote(id string) (*domain.VoteRecord, error) {
	var v domain.VoteRecord
	var createdAt int64
	err := d.db.QueryRow(
		`SELECT id, artifact_id, voter_id, author_id, rating, created_at
		 FROM votes WHERE id = ?`, id,
	).Scan(&v.ID, &v.ArtifactID, &v.VoterID, &v.AuthorID, &v.Rating, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.CreatedAt = time.Unix(createdAt, 0)
	return &v, nil
}

// CountVotesForAuthor counts ratings an author's memes received since the
// cutoff. Quest metrics read the weekly votes-received figure from this.
func (d *DB) CountVotesForAuthor(authorID string, since time.Time) (int64, error) {
	var n int64
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM votes WHERE author_id = ? AND created_at >= ?`,
		authorID, since.Unix(),
	).Scan(&n)
	return n, err
}

// CountVotersForArtifact returns distinct voters for one artifact.
func (d *DB) CountVotersForArtifact(artifactID string) (int64, error) {
	var n int64
	err := d.db.QueryRow(
		`SELECT COUNT(DISTINCT voter_id) FROM votes WHERE artifact_id = ?`, artifactID,
	).Scan(&n)
	return n, err
}

func scanArtifact(s scanner) (*domain.Artifact, error) {
	var a domain.Artifact
	var createdAt int64
	err := s.Scan(&a.ID, &a.AuthorID, &createdAt, &a.Published, &a.Hidden,
		&a.RatingSum, &a.RatingCount, &a.UniqueVoters)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = time.Unix(createdAt, 0)
	return &a, nil
}
