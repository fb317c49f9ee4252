package engine

import "github.com/fentz26/focal/internal/model"

// EffectivePlace resolves the place a task is done at. Tasks without an
// explicit place belong to Anywhere.
func EffectivePlace(t *model.Task) string {
	if t.PlaceID != "" {
		return t.PlaceID
	}
	return model.AnywherePlaceID
}

// PlaceOpen reports whether a place accepts work at the given instant.
// Anywhere is always open. A place ID with no backing record is treated
// as closed so a stale reference hides tasks instead of surfacing them
// at the wrong time.
func PlaceOpen(places map[string]*model.Place, placeID string, now int64) bool {
	if placeID == model.AnywherePlaceID {
		return true
	}
	p, ok := places[placeID]
	if !ok {
		return false
	}
	return p.Hours.OpenAt(now)
}

// FilterMatches reports whether a task at placeID passes the view
// filter. Anywhere tasks match every filter. A filter place matches its
// own tasks plus tasks at places it directly includes; inclusion does
// not chain.
func FilterMatches(places map[string]*model.Place, placeID string, filter model.ViewFilter) bool {
	if filter.PlaceID == "" || filter.PlaceID == model.FilterAll {
		return true
	}
	if placeID == model.AnywherePlaceID {
		return true
	}
	if placeID == filter.PlaceID {
		return true
	}
	fp, ok := places[filter.PlaceID]
	if !ok {
		return false
	}
	for _, inc := range fp.IncludedPlaces {
		if inc == placeID {
			return true
		}
	}
	return false
}

// Visible combines open hours and the view filter for a single task.
func Visible(places map[string]*model.Place, t *model.Task, filter model.ViewFilter, now int64) bool {
	place := EffectivePlace(t)
	return PlaceOpen(places, place, now) && FilterMatches(places, place, filter)
}
