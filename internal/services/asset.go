package services

// Asset describes a generated media artifact returned by a service adapter.
// Location is a URL or filesystem path depending on the backing service.
type Asset struct {
	Location        string
	Format          string
	DurationSeconds float64
	SizeBytes       int64
}
