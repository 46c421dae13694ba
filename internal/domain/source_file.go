package domain

// SourceFile is a single text file loaded from a repository at a given
// reference. It is produced by the repository loader, consumed once by the
// indexing worker, and never persisted in this form.
type SourceFile struct {
	Path    string
	Content string
	Size    int
}
