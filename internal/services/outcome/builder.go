package outcome

import (
	"errors"
	"fmt"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/service/blaze"
	"SignalPull/pkg/util"
)

// Warning kinds reported while building a window.
const (
	WarnDecode        = "decode"
	WarnMissingID     = "missing_id"
	WarnDuplicateID   = "duplicate_id"
	WarnInvalidRoll   = "invalid_roll"
	WarnBadTimestamp  = "bad_timestamp"
	WarnColorMismatch = "color_mismatch"
)

// Warning is a data-integrity problem found in one feed item.
type Warning struct {
	Kind  string
	Index int
	ID    string
	Err   error
}

func (w Warning) Error() string {
	return fmt.Sprintf("item %d (%s): %s: %v", w.Index, w.ID, w.Kind, w.Err)
}

// Dropped reports whether the item was left out of the window.
func (w Warning) Dropped() bool { return w.Kind != WarnColorMismatch }

var errColorMismatch = errors.New("reported color disagrees with roll")

// BuildWindow keeps the first MaxWindowSize items of env and turns them into
// outcome events. The roll is authoritative for the category. Bad items are
// dropped one by one and reported as warnings; a color mismatch keeps the item.
func BuildWindow(env blaze.Envelope) (models.OutcomeWindow, []Warning) {
	items := env.Items
	if len(items) > models.MaxWindowSize {
		items = items[:models.MaxWindowSize]
	}

	window := make(models.OutcomeWindow, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	var warnings []Warning

	for i, raw := range items {
		r, err := blaze.DecodeResult(raw)
		if err != nil {
			warnings = append(warnings, Warning{Kind: WarnDecode, Index: i, Err: err})
			continue
		}
		id := string(r.ID)
		if id == "" {
			warnings = append(warnings, Warning{Kind: WarnMissingID, Index: i, Err: errors.New("id is empty")})
			continue
		}
		if _, dup := seen[id]; dup {
			warnings = append(warnings, Warning{Kind: WarnDuplicateID, Index: i, ID: id, Err: errors.New("id already in window")})
			continue
		}
		if r.Roll == nil {
			warnings = append(warnings, Warning{Kind: WarnInvalidRoll, Index: i, ID: id, Err: fmt.Errorf("%w: missing", models.ErrInvalidRoll)})
			continue
		}
		cat, err := models.Normalize(*r.Roll)
		if err != nil {
			warnings = append(warnings, Warning{Kind: WarnInvalidRoll, Index: i, ID: id, Err: err})
			continue
		}
		at, ok := util.ParseTime(r.CreatedAt)
		if !ok {
			warnings = append(warnings, Warning{Kind: WarnBadTimestamp, Index: i, ID: id, Err: fmt.Errorf("cannot parse %q", r.CreatedAt)})
			continue
		}
		if r.Color != nil {
			if reported, ok := models.CategoryFromCode(*r.Color); !ok || reported != cat {
				warnings = append(warnings, Warning{
					Kind:  WarnColorMismatch,
					Index: i,
					ID:    id,
					Err:   fmt.Errorf("%w: color=%d roll=%d", errColorMismatch, *r.Color, *r.Roll),
				})
			}
		}

		seen[id] = struct{}{}
		window = append(window, models.OutcomeEvent{
			ID:         id,
			Roll:       *r.Roll,
			Category:   cat,
			OccurredAt: at,
		})
	}
	return window, warnings
}
