package engine

const primeCount = 16

// First 16 primes. The table is a hard bound: the prime sequence wraps back
// to index 0 after the last entry instead of computing further primes.
var primeTable = [primeCount]uint16{
	2, 3, 5, 7, 11, 13, 17, 19,
	23, 29, 31, 37, 41, 43, 47, 53,
}
