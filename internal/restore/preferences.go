package restore

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

// Category-scoped application preferences. Their values hold category IDs
// from the exporting library and must be translated on restore.
const (
	PrefDefaultCategory         = "default_category"
	PrefUpdateCategories        = "library_update_categories"
	PrefUpdateCategoriesExclude = "library_update_categories_exclude"
)

var categoryScopedPrefs = map[string]bool{
	PrefDefaultCategory:         true,
	PrefUpdateCategories:        true,
	PrefUpdateCategoriesExclude: true,
}

// PreferenceStore is the store surface the preference restorer writes through.
type PreferenceStore interface {
	SetPreference(ctx context.Context, key string, value json.RawMessage) error
	SetSourcePreference(ctx context.Context, sourceKey, key string, value json.RawMessage) error
}

// LibraryPreferenceRestorer restores application and source preferences.
type LibraryPreferenceRestorer struct {
	store  PreferenceStore
	logger zerolog.Logger
}

// NewLibraryPreferenceRestorer returns a restorer backed by store.
func NewLibraryPreferenceRestorer(store PreferenceStore, logger zerolog.Logger) *LibraryPreferenceRestorer {
	return &LibraryPreferenceRestorer{store: store, logger: logger}
}

// RestoreApp writes application preferences. Category-scoped values are
// translated to store category IDs through categories when it is non-nil and
// skipped otherwise.
func (r *LibraryPreferenceRestorer) RestoreApp(ctx context.Context, prefs []types.BackupPreference, categories *CategoryMapping) error {
	for _, p := range prefs {
		if err := ctx.Err(); err != nil {
			return err
		}
		value := p.Value
		if categoryScopedPrefs[p.Key] {
			if categories == nil {
				r.logger.Debug().Str("key", p.Key).Msg("skipping category preference, categories not restored")
				continue
			}
			translated, ok := translateCategoryValue(value, categories)
			if !ok {
				r.logger.Debug().Str("key", p.Key).Msg("skipping untranslatable category preference")
				continue
			}
			value = translated
		}
		if err := r.store.SetPreference(ctx, p.Key, value); err != nil {
			return err
		}
	}
	return nil
}

// RestoreSource writes per-source preferences.
func (r *LibraryPreferenceRestorer) RestoreSource(ctx context.Context, prefs []types.BackupSourcePreferences) error {
	for _, sp := range prefs {
		for _, p := range sp.Prefs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.store.SetSourcePreference(ctx, sp.SourceKey, p.Key, p.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// translateCategoryValue rewrites a single ID or a set of IDs. IDs that do
// not map are dropped from sets; the system category ID and negative
// sentinels pass through unchanged. Set elements keep their JSON kind.
func translateCategoryValue(value json.RawMessage, categories *CategoryMapping) (json.RawMessage, bool) {
	var single int64
	if err := json.Unmarshal(value, &single); err == nil {
		if single <= types.UncategorizedID {
			return value, true
		}
		mapped, ok := categories.ByID(single)
		if !ok {
			return nil, false
		}
		out, _ := json.Marshal(mapped)
		return out, true
	}

	var set []json.RawMessage
	if err := json.Unmarshal(value, &set); err != nil {
		return nil, false
	}
	out := make([]any, 0, len(set))
	for _, raw := range set {
		var n int64
		if err := json.Unmarshal(raw, &n); err == nil {
			if mapped, ok := categories.ByID(n); ok {
				out = append(out, mapped)
			}
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false
		}
		if mapped, ok := categories.ByID(n); ok {
			out = append(out, strconv.FormatInt(mapped, 10))
		}
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, false
	}
	return encoded, true
}
