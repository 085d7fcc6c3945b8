package types

// UncategorizedID is the reserved ID of the system "Default" category.
const UncategorizedID int64 = 0

// Category is a live library category.
// ParentID is nil for root categories.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Order    int64  `json:"order"`
	Flags    int64  `json:"flags"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// IsSystemCategory reports whether c is the reserved uncategorized category.
func (c Category) IsSystemCategory() bool {
	return c.ID == UncategorizedID
}

// IsRootCategory reports whether c has no parent.
func (c Category) IsRootCategory() bool {
	return c.ParentID == nil
}

// IsSubCategory reports whether c has a parent.
func (c Category) IsSubCategory() bool {
	return c.ParentID != nil
}

// HasParent reports whether c's parent is id. A nil id matches roots.
func (c Category) HasParent(id *int64) bool {
	if c.ParentID == nil || id == nil {
		return c.ParentID == nil && id == nil
	}
	return *c.ParentID == *id
}

// BackupCategory is a category as recorded in a backup snapshot.
// ParentName is a name reference; backups carry no stable parent ID.
// ID is the category's store ID at export time and is only meaningful for
// translating category-scoped preference values.
type BackupCategory struct {
	Name       string  `json:"name"`
	Order      int64   `json:"order"`
	ID         int64   `json:"id,omitempty"`
	Flags      int64   `json:"flags"`
	ParentName *string `json:"parent_name,omitempty"`
}

// IsRoot reports whether the backup category declares no parent.
func (b BackupCategory) IsRoot() bool {
	return b.ParentName == nil
}

// ParentNameOrEmpty returns the declared parent name, or "" for roots.
func (b BackupCategory) ParentNameOrEmpty() string {
	if b.ParentName == nil {
		return ""
	}
	return *b.ParentName
}
