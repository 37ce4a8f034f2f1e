package types

// Module is an optional coarse classification of files into a named group.
type Module struct {
	ID          int64
	Name        string
	Description string
}

// FileModule maps a file to at most one module, with a confidence score.
type FileModule struct {
	FilePath string
	ModuleID int64
	Score    float64
}
