package types

type Dir string

const (
	DirLong  Dir = "LONG"
	DirShort Dir = "SHORT"
)

// Opposite returns the other direction.
func (d Dir) Opposite() Dir {
	if d == DirLong {
		return DirShort
	}

	return DirLong
}

// Sign is +1 for long and -1 for short.
func (d Dir) Sign() float64 {
	if d == DirLong {
		return 1
	}

	return -1
}

func (d Dir) Valid() bool {
	return d == DirLong || d == DirShort
}
