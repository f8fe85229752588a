package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldManga is the standardized structured logging key for manga slugs.
	FieldManga = "manga"
	// FieldVolume is the standardized structured logging key for volume numbers.
	FieldVolume = "volume"
	// FieldPage is the standardized structured logging key for logical page numbers.
	FieldPage = "page"
)
