package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/focal/internal/model"
)

var (
	// ErrPlaceNotFound is returned when a place ID does not exist.
	ErrPlaceNotFound = errors.New("place not found")
	// ErrReservedPlace is returned when modifying or deleting Anywhere.
	ErrReservedPlace = errors.New("the Anywhere place is reserved")
	// ErrEmptyPlaceName is returned when a place is created without a name.
	ErrEmptyPlaceName = errors.New("place name must not be empty")
)

// CreatePlace inserts a new place. Hours must already be validated;
// included places must reference existing place IDs.
func (s *Store) CreatePlace(name string, hours model.OpenHours, includedPlaces []string) (*model.Place, error) {
	if name == "" {
		return nil, ErrEmptyPlaceName
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}
	for _, id := range includedPlaces {
		if _, err := s.GetPlace(id); err != nil {
			return nil, fmt.Errorf("included place %s: %w", id, err)
		}
	}
	if includedPlaces == nil {
		includedPlaces = []string{}
	}

	place := &model.Place{
		ID:             uuid.New().String(),
		Name:           name,
		Hours:          hours,
		IncludedPlaces: includedPlaces,
	}
	included, err := json.Marshal(place.IncludedPlaces)
	if err != nil {
		return nil, fmt.Errorf("marshal included places: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO places (id, name, hours, included_places, created_at) VALUES (?, ?, ?, ?, ?)`,
		place.ID, place.Name, hours.String(), string(included), time.Now().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert place: %w", err)
	}
	return place, nil
}

// GetPlace loads a single place by ID.
func (s *Store) GetPlace(id string) (*model.Place, error) {
	row := s.db.QueryRow(`SELECT id, name, hours, included_places FROM places WHERE id = ?`, id)
	place, err := scanPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return place, nil
}

// ListPlaces returns all places, Anywhere first, the rest by name.
func (s *Store) ListPlaces() ([]model.Place, error) {
	rows, err := s.db.Query(
		`SELECT id, name, hours, included_places FROM places ORDER BY id != ?, name, id`,
		model.AnywherePlaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()

	var places []model.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, *p)
	}
	return places, rows.Err()
}

func scanPlace(row rowScanner) (*model.Place, error) {
	var p model.Place
	var hours, included string
	if err := row.Scan(&p.ID, &p.Name, &hours, &included); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan place: %w", err)
	}
	parsed, err := model.ParseOpenHours(hours)
	if err != nil {
		return nil, fmt.Errorf("place %s: %w", p.ID, err)
	}
	p.Hours = parsed
	if err := json.Unmarshal([]byte(included), &p.IncludedPlaces); err != nil {
		return nil, fmt.Errorf("place %s: parse included places: %w", p.ID, err)
	}
	if p.IncludedPlaces == nil {
		p.IncludedPlaces = []string{}
	}
	return &p, nil
}

// UpdatePlaceParams holds optional place field updates.
type UpdatePlaceParams struct {
	Name           *string
	Hours          *model.OpenHours
	IncludedPlaces []string
}

// UpdatePlace applies the non-nil fields of params. Anywhere cannot be
// renamed or rescheduled.
func (s *Store) UpdatePlace(id string, params UpdatePlaceParams) (*model.Place, error) {
	if id == model.AnywherePlaceID {
		return nil, ErrReservedPlace
	}
	place, err := s.GetPlace(id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		if *params.Name == "" {
			return nil, ErrEmptyPlaceName
		}
		place.Name = *params.Name
	}
	if params.Hours != nil {
		if err := params.Hours.Validate(); err != nil {
			return nil, err
		}
		place.Hours = *params.Hours
	}
	if params.IncludedPlaces != nil {
		for _, inc := range params.IncludedPlaces {
			if inc == id {
				return nil, fmt.Errorf("place %s cannot include itself", id)
			}
			if _, err := s.GetPlace(inc); err != nil {
				return nil, fmt.Errorf("included place %s: %w", inc, err)
			}
		}
		place.IncludedPlaces = params.IncludedPlaces
	}

	included, err := json.Marshal(place.IncludedPlaces)
	if err != nil {
		return nil, fmt.Errorf("marshal included places: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE places SET name = ?, hours = ?, included_places = ? WHERE id = ?`,
		place.Name, place.Hours.String(), string(included), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update place: %w", err)
	}
	return place, nil
}

// DeletePlace removes a place, detaches it from every task that used it,
// and removes it from other places' inclusion lists. Anywhere cannot be
// deleted.
func (s *Store) DeletePlace(id string) error {
	if id == model.AnywherePlaceID {
		return ErrReservedPlace
	}
	if _, err := s.GetPlace(id); err != nil {
		return err
	}

	places, err := s.ListPlaces()
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE tasks SET place_id = NULL, updated_at = ? WHERE place_id = ?`,
		time.Now().UnixMilli(), id,
	); err != nil {
		return fmt.Errorf("detach tasks: %w", err)
	}

	for _, p := range places {
		if p.ID == id {
			continue
		}
		kept := p.IncludedPlaces[:0]
		changed := false
		for _, inc := range p.IncludedPlaces {
			if inc == id {
				changed = true
				continue
			}
			kept = append(kept, inc)
		}
		if !changed {
			continue
		}
		included, err := json.Marshal(kept)
		if err != nil {
			return fmt.Errorf("marshal included places: %w", err)
		}
		if _, err := tx.Exec(
			`UPDATE places SET included_places = ? WHERE id = ?`,
			string(included), p.ID,
		); err != nil {
			return fmt.Errorf("update place %s: %w", p.ID, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM places WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete place: %w", err)
	}
	return tx.Commit()
}
