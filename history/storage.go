package history

import "context"

// OpenPersister picks a backend for the storage setting: a sqlite3:// or
// postgres:// DSN opens a SQLStore, anything else is a file path for a
// FileStore. An empty setting uses DefaultFilePath.
func OpenPersister(ctx context.Context, storage string) (Persister, error) {
	if IsDSN(storage) {
		return OpenSQLStore(ctx, storage)
	}
	if storage == "" {
		path, err := DefaultFilePath()
		if err != nil {
			return nil, err
		}
		storage = path
	}
	return NewFileStore(storage)
}
