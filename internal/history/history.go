package history

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Record is one served prediction.
type Record struct {
	ID            string    `json:"id"`
	ModelID       string    `json:"model_id"`
	SquareFootage float64   `json:"square_footage"`
	Bedrooms      float64   `json:"bedrooms"`
	FullBathrooms float64   `json:"full_bathrooms"`
	HalfBathrooms float64   `json:"half_bathrooms"`
	Price         float64   `json:"predicted_price"`
	Confidence    string    `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store persists served predictions to SQLite so the UI can show
// recent activity. Optional: the application serves fine without it.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the history database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
    CREATE TABLE IF NOT EXISTS predictions (
        id TEXT PRIMARY KEY,
        model_id TEXT NOT NULL,
        square_footage REAL NOT NULL,
        bedrooms REAL NOT NULL,
        full_bathrooms REAL NOT NULL,
        half_bathrooms REAL NOT NULL,
        predicted_price REAL NOT NULL,
        confidence TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at
        ON predictions(created_at DESC);
    `
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Record inserts one prediction and returns it with ID and timestamp
// filled in.
func (s *Store) Record(r Record) (Record, error) {
	r.ID = uuid.New().String()
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(`
        INSERT INTO predictions (
            id, model_id, square_footage, bedrooms,
            full_bathrooms, half_bathrooms, predicted_price, confidence, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ModelID, r.SquareFootage, r.Bedrooms,
		r.FullBathrooms, r.HalfBathrooms, r.Price, r.Confidence, r.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	return r, nil
}

// Recent returns the most recent predictions, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
        SELECT id, model_id, square_footage, bedrooms,
               full_bathrooms, half_bathrooms, predicted_price, confidence, created_at
        FROM predictions
        ORDER BY created_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.ModelID, &r.SquareFootage, &r.Bedrooms,
			&r.FullBathrooms, &r.HalfBathrooms, &r.Price, &r.Confidence, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
