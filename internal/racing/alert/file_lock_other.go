//go:build !unix

package alert

// Sem flock: Claim fica atômico só dentro do processo (mutex do FileLedger).
func lockFile(string) (func(), error) { return func() {}, nil }
