package restore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

// CategorizedDisplayKey is the library preference recomputed after
// categories are reconciled.
const CategorizedDisplayKey = "categorized_display"

// CategoryStore is the store surface the reconciler writes through.
type CategoryStore interface {
	Categories(ctx context.Context) ([]types.Category, error)
	InsertCategory(ctx context.Context, c types.Category) (int64, error)
	UpdateCategoryParent(ctx context.Context, id int64, parentID *int64) error
}

// PreferenceWriter stores an application preference.
type PreferenceWriter interface {
	SetPreference(ctx context.Context, key string, value json.RawMessage) error
}

// ReconcileResult describes what a reconciliation did.
type ReconcileResult struct {
	// Actions holds one executed action per backup category, roots first.
	Actions []CategoryAction
	// Mapping resolves backup category references to the store categories
	// the actions settled on.
	Mapping *CategoryMapping
	// Categories holds every non-system category after the run.
	Categories         []types.Category
	CategorizedDisplay bool
}

// Inserted returns the categories created by the run.
func (r *ReconcileResult) Inserted() []types.Category {
	return r.categoriesWith(ActionInsert)
}

// Reparented returns the categories whose parent link was updated.
func (r *ReconcileResult) Reparented() []types.Category {
	return r.categoriesWith(ActionReparent)
}

func (r *ReconcileResult) categoriesWith(kind ActionKind) []types.Category {
	var out []types.Category
	for _, a := range r.Actions {
		if a.Kind == kind {
			out = append(out, a.Category)
		}
	}
	return out
}

// CategoryReconciler merges backup categories into the store.
type CategoryReconciler struct {
	store CategoryStore
	prefs PreferenceWriter
}

// NewCategoryReconciler returns a reconciler writing categories to store and
// the categorized display flag to prefs. prefs may be nil.
func NewCategoryReconciler(store CategoryStore, prefs PreferenceWriter) *CategoryReconciler {
	return &CategoryReconciler{store: store, prefs: prefs}
}

// Reconcile creates missing root categories, then missing subcategories,
// updating parent links that drifted. It is a no-op for an empty backup
// list. Any store failure stops the run; writes already committed stay.
// Cancellation is checked before every write.
func (r *CategoryReconciler) Reconcile(ctx context.Context, backup []types.BackupCategory) (*ReconcileResult, error) {
	result := &ReconcileResult{Mapping: NewCategoryMapping(nil, nil)}
	if len(backup) == 0 {
		return result, nil
	}

	existing, err := r.store.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}

	m := NewCategoryMatcher(existing)
	roots, subs := partitionCategories(backup)

	for _, bc := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		action := m.PlanRoot(bc)
		if action.Kind == ActionInsert {
			id, err := r.store.InsertCategory(ctx, action.Category)
			if err != nil {
				return nil, fmt.Errorf("creating category %q: %w", bc.Name, err)
			}
			action.Category.ID = id
			m.Record(action.Category, nil)
		}
		result.Actions = append(result.Actions, action)
	}

	parents := m.ParentLookup()
	for _, bc := range subs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		action := m.PlanSubcategory(bc, parents)
		switch action.Kind {
		case ActionInsert:
			id, err := r.store.InsertCategory(ctx, action.Category)
			if err != nil {
				return nil, fmt.Errorf("creating subcategory %q: %w", bc.Name, err)
			}
			action.Category.ID = id
			var parentName *string
			if action.Category.ParentID != nil {
				parentName = bc.ParentName
			}
			m.Record(action.Category, parentName)
			if _, ok := parents[bc.Name]; !ok {
				parents[bc.Name] = action.Category
			}
		case ActionReparent:
			if err := r.store.UpdateCategoryParent(ctx, action.Category.ID, action.ParentID); err != nil {
				return nil, fmt.Errorf("moving category %q under %q: %w", bc.Name, bc.ParentNameOrEmpty(), err)
			}
			action.Category.ParentID = action.ParentID
			m.Reparented(action.Category.ID, action.ParentID)
		}
		result.Actions = append(result.Actions, action)
	}

	result.Mapping = NewCategoryMapping(backup, result.Actions)
	result.Categories = m.Known()
	result.CategorizedDisplay = m.CategorizedDisplay()

	if r.prefs != nil {
		value, _ := json.Marshal(result.CategorizedDisplay)
		if err := r.prefs.SetPreference(ctx, CategorizedDisplayKey, value); err != nil {
			return nil, fmt.Errorf("storing %s: %w", CategorizedDisplayKey, err)
		}
	}
	return result, nil
}

// CategoryMapping resolves the category references a backup carries to store
// category IDs. Library entries refer to categories by backup order;
// category-scoped preferences use the exporting library's category IDs.
// A nil mapping resolves nothing.
type CategoryMapping struct {
	byOrder map[int64]int64
	byID    map[int64]int64
}

// NewCategoryMapping maps every backup category to the store category its
// action settled on. When backup categories share an order or ID, the first
// in backup order wins. Backup categories without an action are skipped.
func NewCategoryMapping(backup []types.BackupCategory, actions []CategoryAction) *CategoryMapping {
	settled := make(map[types.BackupCategory]int64, len(actions))
	for _, a := range actions {
		if _, ok := settled[a.Backup]; !ok {
			settled[a.Backup] = a.Category.ID
		}
	}

	m := &CategoryMapping{
		byOrder: make(map[int64]int64, len(backup)),
		byID:    make(map[int64]int64, len(backup)),
	}
	for _, bc := range backup {
		id, ok := settled[bc]
		if !ok {
			continue
		}
		if _, ok := m.byOrder[bc.Order]; !ok {
			m.byOrder[bc.Order] = id
		}
		if bc.ID > types.UncategorizedID {
			if _, ok := m.byID[bc.ID]; !ok {
				m.byID[bc.ID] = id
			}
		}
	}
	return m
}

// ByOrder returns the store ID of the backup category with the given order.
func (m *CategoryMapping) ByOrder(order int64) (int64, bool) {
	if m == nil {
		return 0, false
	}
	id, ok := m.byOrder[order]
	return id, ok
}

// ByID returns the store ID of the backup category exported with id.
func (m *CategoryMapping) ByID(id int64) (int64, bool) {
	if m == nil {
		return 0, false
	}
	storeID, ok := m.byID[id]
	return storeID, ok
}

// Len returns the number of mapped backup categories.
func (m *CategoryMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byOrder)
}
