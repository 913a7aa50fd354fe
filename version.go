package songstore

const (
	Name    = "songstore"
	Version = "1.0.0"
)
