package email

//go:generate go run golang.org/x/tools/cmd/stringer -type=Stage
type Stage int

const (
	FormatCheck Stage = iota
	LengthCheck
	DisposableCheck
	SuppressionCheck
	MxCheck
)
