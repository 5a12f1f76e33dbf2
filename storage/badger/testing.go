package badger

// Repositories groups the repositories that share one backend.
type Repositories struct {
	Backend *Backend
	Jobs    *JobRepository
	Results *ResultRepository
	Chunks  *ChunkRepository
}

// Close closes the shared backend.
func (r *Repositories) Close() error {
	return r.Backend.Close()
}

// NewRepositories creates job, result and chunk repositories over backend.
func NewRepositories(backend *Backend) *Repositories {
	return &Repositories{
		Backend: backend,
		Jobs:    NewJobRepository(backend),
		Results: NewResultRepository(backend),
		Chunks:  NewChunkRepository(backend),
	}
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must Close the result when done.
func NewMemoryRepositories() (*Repositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return NewRepositories(backend), nil
}
