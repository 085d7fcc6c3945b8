package restore

import (
	"sort"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

// categoryIdentity is the merge identity of a category: its name plus the
// name of its parent. Roots have no parent name.
type categoryIdentity struct {
	name       string
	parentName string
	hasParent  bool
}

func identityOf(name string, parentName *string) categoryIdentity {
	if parentName == nil {
		return categoryIdentity{name: name}
	}
	return categoryIdentity{name: name, parentName: *parentName, hasParent: true}
}

// identityIndex maps merge identities of store categories to the first
// category carrying them. The system category is never indexed.
type identityIndex map[categoryIdentity]types.Category

// newIdentityIndex indexes categories, resolving each parent ID to the
// parent's name. A parent ID that points nowhere indexes as a root.
func newIdentityIndex(categories []types.Category) identityIndex {
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	idx := make(identityIndex, len(categories))
	for _, c := range categories {
		if c.IsSystemCategory() {
			continue
		}
		var parentName *string
		if c.ParentID != nil {
			if n, ok := names[*c.ParentID]; ok {
				parentName = &n
			}
		}
		key := identityOf(c.Name, parentName)
		if _, ok := idx[key]; !ok {
			idx[key] = c
		}
	}
	return idx
}

// lookup returns the category matching a backup category's merge identity.
func (idx identityIndex) lookup(bc types.BackupCategory) (types.Category, bool) {
	c, ok := idx[identityOf(bc.Name, bc.ParentName)]
	return c, ok
}

// ActionKind says what reconciliation does with one backup category.
type ActionKind int

const (
	// ActionReuse keeps an existing category with the same merge identity.
	ActionReuse ActionKind = iota
	// ActionReuseRenamedParent keeps the only existing subcategory with the
	// backup category's name, assuming its parent was renamed.
	ActionReuseRenamedParent
	// ActionReparent keeps an existing category but moves it under the
	// resolved parent.
	ActionReparent
	// ActionInsert creates a new category.
	ActionInsert
)

func (k ActionKind) String() string {
	switch k {
	case ActionReuse:
		return "reuse"
	case ActionReuseRenamedParent:
		return "reuse-renamed-parent"
	case ActionReparent:
		return "reparent"
	case ActionInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// CategoryAction is the planned outcome for one backup category.
// Category is the existing category for reuse and reparent actions, and the
// row to create for inserts (ID is filled in once the store assigns one).
// ParentID is the target parent of a reparent.
type CategoryAction struct {
	Kind     ActionKind
	Backup   types.BackupCategory
	Category types.Category
	ParentID *int64
}

// CategoryMatcher plans how backup categories merge into the categories
// already in the store. It keeps per-run state: the order counter and the
// categories created so far, which the caller registers with Record.
//
// The renamed-parent fallback is a heuristic. A subcategory whose parent was
// renamed and a different subcategory that happens to share its name cannot
// be told apart; when exactly one same-named subcategory exists it is
// reused, otherwise a new category is created.
type CategoryMatcher struct {
	index       identityIndex
	subsByName  map[string][]types.Category
	known       []types.Category
	systemFlags *int64
	nextOrder   int64
}

// NewCategoryMatcher builds a matcher over the current store categories,
// which should be in store order (sort, then ID).
func NewCategoryMatcher(existing []types.Category) *CategoryMatcher {
	m := &CategoryMatcher{
		index:      newIdentityIndex(existing),
		subsByName: make(map[string][]types.Category),
	}

	maxOrder := int64(-1)
	for _, c := range existing {
		if c.Order > maxOrder {
			maxOrder = c.Order
		}
		if c.IsSystemCategory() {
			flags := c.Flags
			m.systemFlags = &flags
			continue
		}
		m.known = append(m.known, c)
		if c.IsSubCategory() {
			m.subsByName[c.Name] = append(m.subsByName[c.Name], c)
		}
	}
	m.nextOrder = maxOrder + 1
	return m
}

func (m *CategoryMatcher) allocOrder() int64 {
	order := m.nextOrder
	m.nextOrder++
	return order
}

// PlanRoot plans a backup root category: reuse the existing root with the
// same name, or insert a new root with the next order value.
func (m *CategoryMatcher) PlanRoot(bc types.BackupCategory) CategoryAction {
	if c, ok := m.index[identityOf(bc.Name, nil)]; ok {
		return CategoryAction{Kind: ActionReuse, Backup: bc, Category: c}
	}
	return CategoryAction{
		Kind:   ActionInsert,
		Backup: bc,
		Category: types.Category{
			Name:  bc.Name,
			Order: m.allocOrder(),
			Flags: bc.Flags,
		},
	}
}

// PlanSubcategory plans a backup subcategory against the parent lookup
// returned by ParentLookup.
func (m *CategoryMatcher) PlanSubcategory(bc types.BackupCategory, parents map[string]types.Category) CategoryAction {
	var target *int64
	if p, ok := parents[bc.ParentNameOrEmpty()]; ok && bc.ParentName != nil {
		id := p.ID
		target = &id
	}

	if c, ok := m.index.lookup(bc); ok {
		if target != nil && !c.HasParent(target) {
			return CategoryAction{Kind: ActionReparent, Backup: bc, Category: c, ParentID: target}
		}
		return CategoryAction{Kind: ActionReuse, Backup: bc, Category: c}
	}

	if candidates := m.subsByName[bc.Name]; len(candidates) == 1 {
		return CategoryAction{Kind: ActionReuseRenamedParent, Backup: bc, Category: candidates[0]}
	}

	// An orphan would be created parentless; a parentless category with the
	// same name is that row from an earlier run.
	if target == nil {
		if c, ok := m.index[identityOf(bc.Name, nil)]; ok {
			return CategoryAction{Kind: ActionReuse, Backup: bc, Category: c}
		}
	}

	return CategoryAction{
		Kind:   ActionInsert,
		Backup: bc,
		Category: types.Category{
			Name:     bc.Name,
			Order:    m.allocOrder(),
			Flags:    bc.Flags,
			ParentID: target,
		},
	}
}

// Record registers a category created during this run under the merge
// identity (name, parentName) so later plans and lookups see it.
func (m *CategoryMatcher) Record(c types.Category, parentName *string) {
	key := identityOf(c.Name, parentName)
	if _, ok := m.index[key]; !ok {
		m.index[key] = c
	}
	m.known = append(m.known, c)
}

// Reparented updates the matcher's view after a parent-link update.
func (m *CategoryMatcher) Reparented(id int64, parentID *int64) {
	for i := range m.known {
		if m.known[i].ID == id {
			m.known[i].ParentID = parentID
		}
	}
}

// ParentLookup returns a name to category lookup over every known category
// for resolving parent names. Roots win over subcategories sharing a name;
// within a tier the first in store order wins.
func (m *CategoryMatcher) ParentLookup() map[string]types.Category {
	lookup := make(map[string]types.Category, len(m.known))
	for _, c := range m.known {
		if c.IsRootCategory() {
			if _, ok := lookup[c.Name]; !ok {
				lookup[c.Name] = c
			}
		}
	}
	for _, c := range m.known {
		if c.IsSubCategory() {
			if _, ok := lookup[c.Name]; !ok {
				lookup[c.Name] = c
			}
		}
	}
	return lookup
}

// Known returns every non-system category the matcher knows about:
// existing ones plus those recorded during this run.
func (m *CategoryMatcher) Known() []types.Category {
	out := make([]types.Category, len(m.known))
	copy(out, m.known)
	return out
}

// CategorizedDisplay reports whether the store's categories, the system
// category included, carry more than one distinct flags value.
func (m *CategoryMatcher) CategorizedDisplay() bool {
	flags := make(map[int64]struct{})
	if m.systemFlags != nil {
		flags[*m.systemFlags] = struct{}{}
	}
	for _, c := range m.known {
		flags[c.Flags] = struct{}{}
	}
	return len(flags) > 1
}

// partitionCategories splits backup categories into roots and subcategories,
// each sorted by declared order with ties kept in backup order.
func partitionCategories(backup []types.BackupCategory) (roots, subs []types.BackupCategory) {
	for _, bc := range backup {
		if bc.IsRoot() {
			roots = append(roots, bc)
		} else {
			subs = append(subs, bc)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool { return roots[i].Order < roots[j].Order })
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Order < subs[j].Order })
	return roots, subs
}
