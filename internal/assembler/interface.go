package assembler

import "context"

// Assembler merges an ordered list of stored objects into one object
type Assembler interface {
	// Assemble concatenates sources into dest and returns the number of compose rounds
	Assemble(ctx context.Context, sources []string, dest string) (int, error)
}

// Composer is the subset of the object store the merge tree needs
type Composer interface {
	Compose(ctx context.Context, sources []string, dest string) error
	Copy(ctx context.Context, src, dest string) error
	DeletePrefix(ctx context.Context, prefix string) error
}
