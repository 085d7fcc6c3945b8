package types

// RestoreOptions selects which restore stages run. Each toggle enables
// exactly one stage.
type RestoreOptions struct {
	Categories            bool `json:"categories" yaml:"categories" mapstructure:"categories"`
	AppSettings           bool `json:"app_settings" yaml:"app_settings" mapstructure:"app_settings"`
	SourceSettings        bool `json:"source_settings" yaml:"source_settings" mapstructure:"source_settings"`
	LibraryEntries        bool `json:"library_entries" yaml:"library_entries" mapstructure:"library_entries"`
	ExtensionRepoSettings bool `json:"extension_repos" yaml:"extension_repos" mapstructure:"extension_repos"`
}

// AllRestoreOptions returns options with every stage enabled.
func AllRestoreOptions() RestoreOptions {
	return RestoreOptions{
		Categories:            true,
		AppSettings:           true,
		SourceSettings:        true,
		LibraryEntries:        true,
		ExtensionRepoSettings: true,
	}
}

// AnyEnabled reports whether at least one stage is selected.
func (o RestoreOptions) AnyEnabled() bool {
	return o.Categories || o.AppSettings || o.SourceSettings || o.LibraryEntries || o.ExtensionRepoSettings
}

// Units returns the number of progress units a restore of b with these
// options processes: one per settings stage, one for categories, one per
// manga and one per extension repo.
func (o RestoreOptions) Units(b *Backup) int {
	units := 0
	if o.Categories {
		units++
	}
	if o.AppSettings {
		units++
	}
	if o.SourceSettings {
		units++
	}
	if o.LibraryEntries {
		units += len(b.Manga)
	}
	if o.ExtensionRepoSettings {
		units += len(b.ExtensionRepos)
	}
	return units
}
