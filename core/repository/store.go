package repository

// Store bundles the per-entity repositories behind a single handle so the
// services can take one metadata dependency.
type Store struct {
	*ExperimentRepository
	*RunRepository
	*ArtifactRepository
}

// NewStore creates the repository bundle over a shared database handle
func NewStore(db *DB) *Store {
	return &Store{
		ExperimentRepository: NewExperimentRepository(db),
		RunRepository:        NewRunRepository(db),
		ArtifactRepository:   NewArtifactRepository(db),
	}
}
