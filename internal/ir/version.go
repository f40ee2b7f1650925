package ir

// Version constants for the instruction format and the program.
const (
	// IRVersion is the instruction encoding version.
	IRVersion = "1"

	// ProgramVersion is the blogsol program version.
	ProgramVersion = "0.1.0"
)
